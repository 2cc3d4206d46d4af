// Package api holds the HTTP middleware shared by pages and the JSON API.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"flylow/internal/auth"
	"flylow/models"
)

// SignInPath is where gated pages send anonymous visitors.
const SignInPath = "/signin"

// SessionValidator resolves a token to a live session.
type SessionValidator interface {
	Validate(token string) (models.Session, error)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func resolveSession(validator SessionValidator, r *http.Request) (models.Session, bool) {
	token := auth.TokenFromRequest(r)
	if token == "" || validator == nil {
		return models.Session{}, false
	}
	session, err := validator.Validate(token)
	if err != nil {
		return models.Session{}, false
	}
	return session, true
}

// AccountAuthMiddleware rejects API requests without a valid bearer token or
// session cookie and injects the session into the context.
func AccountAuthMiddleware(validator SessionValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if auth.TokenFromRequest(r) == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			session, ok := resolveSession(validator, r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// PageAuthMiddleware redirects anonymous visitors of gated pages to the
// sign-in page, remembering where they were headed.
func PageAuthMiddleware(validator SessionValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := resolveSession(validator, r)
			if !ok {
				target := SignInPath
				if r.Method == http.MethodGet && r.URL.Path != "/" {
					target += "?next=" + url.QueryEscape(r.URL.Path)
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// OptionalAuthMiddleware attaches the session when one is present and never rejects.
func OptionalAuthMiddleware(validator SessionValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, ok := resolveSession(validator, r); ok {
				r = r.WithContext(auth.WithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogger logs method, path, status and duration of each request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
