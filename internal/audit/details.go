// Package audit records who changed what. Entries are append-only rows in
// activity_logs whose details column holds a small versioned JSON document
// keyed by action.
package audit

import (
	"encoding/json"
	"fmt"
)

// Action names a kind of audited change.
type Action string

const (
	ActionCreateEvent   Action = "create_event"
	ActionEditEvent     Action = "edit_event"
	ActionDeleteEvent   Action = "delete_event"
	ActionCreateManager Action = "create_manager"
	ActionEditManager   Action = "edit_manager"
	ActionDeleteManager Action = "delete_manager"
)

// detailsVersion is written as "v" in every details document.
const detailsVersion = 1

// Details is the typed payload of one audit entry.
type Details interface {
	Action() Action
}

type CreateEvent struct {
	EventName        string `json:"event_name"`
	EventID          int64  `json:"event_id"`
	ParticipantCount int    `json:"participant_count"`
}

type EditEvent struct {
	EventName        string `json:"event_name"`
	EventID          int64  `json:"event_id"`
	OldName          string `json:"old_name"`
	ParticipantCount int    `json:"participant_count"`
}

type DeleteEvent struct {
	EventName string `json:"event_name"`
	EventID   int64  `json:"event_id"`
}

type CreateManager struct {
	Username  string `json:"username"`
	ManagerID int64  `json:"manager_id"`
}

type EditManager struct {
	Username        string `json:"username"`
	ManagerID       int64  `json:"manager_id"`
	OldUsername     string `json:"old_username"`
	PasswordChanged bool   `json:"password_changed"`
}

type DeleteManager struct {
	Username  string `json:"username"`
	ManagerID int64  `json:"manager_id"`
}

// Unknown is returned when decoding an action this build doesn't know.
type Unknown struct {
	Name Action `json:"-"`
}

func (CreateEvent) Action() Action   { return ActionCreateEvent }
func (EditEvent) Action() Action     { return ActionEditEvent }
func (DeleteEvent) Action() Action   { return ActionDeleteEvent }
func (CreateManager) Action() Action { return ActionCreateManager }
func (EditManager) Action() Action   { return ActionEditManager }
func (DeleteManager) Action() Action { return ActionDeleteManager }
func (u Unknown) Action() Action     { return u.Name }

// encodeDetails renders d as a JSON object with a "v" version key alongside
// the record's own fields.
func encodeDetails(d Details) (string, error) {
	if _, ok := d.(Unknown); ok {
		return "", fmt.Errorf("cannot record unknown action %q", d.Action())
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	fields["v"] = json.RawMessage(fmt.Sprint(detailsVersion))

	out, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeAs parses raw into a T. Any problem yields the zero T.
func decodeAs[T Details](raw string, ok bool) T {
	var zero T
	if !ok || raw == "" {
		return zero
	}

	var header struct {
		V *int `json:"v"`
	}
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return zero
	}
	// Rows without "v" predate versioning and share the v1 field names.
	if header.V != nil && (*header.V < 1 || *header.V > detailsVersion) {
		return zero
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero
	}
	return out
}

// DecodeDetails returns the typed record for e. It never fails: missing,
// malformed or newer-version details give the action's empty record, and an
// unrecognised action gives Unknown.
func DecodeDetails(e Entry) Details {
	raw, ok := e.Details.String, e.Details.Valid
	switch e.Action {
	case ActionCreateEvent:
		return decodeAs[CreateEvent](raw, ok)
	case ActionEditEvent:
		return decodeAs[EditEvent](raw, ok)
	case ActionDeleteEvent:
		return decodeAs[DeleteEvent](raw, ok)
	case ActionCreateManager:
		return decodeAs[CreateManager](raw, ok)
	case ActionEditManager:
		return decodeAs[EditManager](raw, ok)
	case ActionDeleteManager:
		return decodeAs[DeleteManager](raw, ok)
	default:
		return Unknown{Name: e.Action}
	}
}
