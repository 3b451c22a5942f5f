package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const accountKey ctxKey = iota

func apiPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/api")
}

// recordMiddleware keeps a log of every call for the hit counters and, in
// dev mode, prints it.
func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Request{
			Method:        r.Method,
			Path:          apiPath(r),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		}
		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()

		if !s.devLog {
			next.ServeHTTP(w, r)
			return
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		s.log.Info().
			Str("request_id", rec.RequestID).
			Bool("bearer", rec.Authorization != "").
			Dur("duration", time.Since(start)).
			Msg(fmt.Sprintf("%s %s %s%d%s", routeTag(r.Method), r.URL.Path, statusColour(status), status, reset))
	})
}

func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + apiPath(r)
		s.mu.Lock()
		queue := s.failures[key]
		var fail *injected
		if len(queue) > 0 {
			fail = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves a bearer token to an account. A request without a
// token goes through anonymously; a request with a bad token is rejected even
// on public endpoints.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Authorization header must contain two space-delimited values")
			return
		}

		s.mu.Lock()
		_, acc, err := s.verify(raw, accessType)
		s.mu.Unlock()
		if err != nil {
			if !errors.Is(err, errTokenInvalid) {
				s.log.Err(err).Msg("verify access token")
			}
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acc.user.Username)))
	})
}

// requireUser rejects anonymous callers.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		acc := s.caller(r)
		s.mu.Unlock()
		if acc == nil {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next(w, r, acc)
	}
}

// caller returns the authenticated account, nil when anonymous. Expects s.mu to be held.
func (s *Server) caller(r *http.Request) *account {
	username, _ := r.Context().Value(accountKey).(string)
	if username == "" {
		return nil
	}
	return s.accounts[username]
}
