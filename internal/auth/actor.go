package auth

import "fmt"

// Role is an account's permission level.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleEventManager Role = "event_manager"
)

// ParseRole validates a stored or submitted role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleEventManager:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor identifies who is performing an operation. It is resolved once per
// request by the HTTP layer and passed explicitly into every service call.
// The zero Actor is anonymous.
type Actor struct {
	UserID   int64
	Username string
	Role     Role
}

// Anonymous reports whether no authenticated account is attached.
func (a Actor) Anonymous() bool { return a.UserID == 0 }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
