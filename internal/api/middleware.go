package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/intermernet/scoreboard/internal/apperr"
	"github.com/intermernet/scoreboard/internal/auth"
	"github.com/intermernet/scoreboard/internal/log"
	"github.com/intermernet/scoreboard/internal/metrics"
)

// contextKey is a custom type used for keys in context.Context. Using a custom
// type prevents collisions between context keys defined in different packages.
type contextKey string

// actorContextKey holds the authenticated auth.Actor.
const actorContextKey = contextKey("actor")

// sessionCookieName is the cookie set by login and read by authMiddleware.
const sessionCookieName = "session"

// authMiddleware protects routes that require a signed-in account. The
// session token is taken from the "Authorization: Bearer" header or, for
// browsers, the session cookie. The account is re-read on every request so a
// deleted account or changed role takes effect immediately.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		headerParts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(headerParts) == 2 && strings.ToLower(headerParts[0]) == "bearer" {
			tokenString = headerParts[1]
		}
		if tokenString == "" {
			if c, err := r.Cookie(sessionCookieName); err == nil {
				tokenString = c.Value
			}
		}
		if tokenString == "" {
			s.errorJSON(w, errors.New("authorization token is required"), http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateJWT(tokenString, s.config.JwtSecret)
		if err != nil {
			s.errorJSON(w, errors.New("invalid or expired token"), http.StatusUnauthorized)
			return
		}

		user, err := s.accounts.GetUser(claims.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			s.errorJSON(w, errors.New("account no longer exists"), http.StatusUnauthorized)
			return
		}
		if err != nil {
			s.serviceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey, user.Actor())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-admin actors. It must run after authMiddleware.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFromContext(r).IsAdmin() {
			s.errorJSON(w, errors.New("admin access required"), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actorFromContext returns the request's actor, or the anonymous actor on
// routes without authMiddleware.
func actorFromContext(r *http.Request) auth.Actor {
	actor, _ := r.Context().Value(actorContextKey).(auth.Actor)
	return actor
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger := log.WithComponent("http")
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// instrument records request counts and latencies labelled by chi route
// pattern, so path parameters don't explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := metrics.NewTimer()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method, route)
	})
}
