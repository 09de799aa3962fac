package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/intermernet/scoreboard/internal/accounts"
	"github.com/intermernet/scoreboard/internal/auth"
)

// loginPayload is the login body, sent as JSON or as a form.
type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// isJSON reports whether the request body is JSON. Anything else is treated
// as a form submission.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// handleLogin checks the credentials, returns a session token with the user's
// profile and sets it as an HttpOnly cookie for browser clients.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.errorJSON(w, errors.New("bad request: could not parse form"), http.StatusBadRequest)
			return
		}
		payload.Username = r.PostFormValue("username")
		payload.Password = r.PostFormValue("password")
	}

	user, err := s.accounts.Authenticate(payload.Username, payload.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	tokenString, err := auth.GenerateJWT(user.ID, user.Role, s.config.JwtSecret, s.config.SessionTTL)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(s.config.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	s.writeJSON(w, http.StatusOK, envelope{
		"token": tokenString,
		"user":  toUserResponse(user),
	})
}

// handleLogout clears the session cookie. Bearer tokens simply expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, envelope{"message": "you have been logged out"})
}
