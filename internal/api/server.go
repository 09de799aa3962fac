package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/intermernet/scoreboard/internal/accounts"
	"github.com/intermernet/scoreboard/internal/apperr"
	"github.com/intermernet/scoreboard/internal/audit"
	"github.com/intermernet/scoreboard/internal/config"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
	"github.com/intermernet/scoreboard/internal/scoring"
)

// Server holds the dependencies of the HTTP handlers. Handlers stay thin:
// they decode the request, resolve the actor, call a service and map the
// result or error to JSON.
type Server struct {
	config   *config.Config
	db       *database.Service
	scoring  *scoring.Service
	accounts *accounts.Service
	audit    *audit.Writer
}

// NewServer wires the services into a Server.
func NewServer(cfg *config.Config, db *database.Service, scoringSvc *scoring.Service, accountsSvc *accounts.Service, auditWriter *audit.Writer) *Server {
	return &Server{
		config:   cfg,
		db:       db,
		scoring:  scoringSvc,
		accounts: accountsSvc,
		audit:    auditWriter,
	}
}

// envelope wraps JSON responses, e.g. `envelope{"user": userObject}`.
type envelope map[string]interface{}

// writeJSON marshals data and writes it with the given status and optional
// extra headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}, headers ...http.Header) {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		http.Error(w, "Internal Server Error: Failed to marshal JSON", http.StatusInternalServerError)
		return
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

// errorJSON sends `{"error": "message"}` with the given status, 500 by
// default.
func (s *Server) errorJSON(w http.ResponseWriter, err error, status ...int) {
	statusCode := http.StatusInternalServerError
	if len(status) > 0 {
		statusCode = status[0]
	}
	s.writeJSON(w, statusCode, envelope{"error": err.Error()})
}

// serviceError maps a service error to its HTTP status. Unclassified errors
// are logged and reported to the client without detail.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		s.errorJSON(w, err, http.StatusBadRequest)
	case errors.Is(err, apperr.ErrNotFound):
		s.errorJSON(w, err, http.StatusNotFound)
	case errors.Is(err, apperr.ErrPermission):
		s.errorJSON(w, err, http.StatusForbidden)
	default:
		logger := log.WithComponent("api")
		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		s.errorJSON(w, errors.New("internal server error"), http.StatusInternalServerError)
	}
}
