// Package fakeapi is an in-memory implementation of the docshare HTTP API.
// It backs the end to end tests and the local fakeapi command.
package fakeapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-docshare-client/courses"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/users"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour

	maxUploadSize = 32 << 20
)

// Request is what the server recorded about one incoming call.
type Request struct {
	Method        string
	Path          string // without the /api prefix
	Authorization string
	RequestID     string
}

type injected struct {
	status int
	body   string
}

// Server holds all state of the fake API. The zero value is not usable, call New.
type Server struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	rotate     bool
	devLog     bool
	now        func() time.Time
	log        zerolog.Logger

	router chi.Router

	mu           sync.Mutex
	accounts     map[string]*account
	courses      map[int64]*courses.Course
	documents    map[int64]*storedDocument
	nextUserID   int64
	nextCourseID int64
	nextDocID    int64
	accessGen    int
	refreshGen   int
	blacklist    map[string]bool
	requests     []Request
	failures     map[string][]injected
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HS256 signing key.
func WithSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithAccessTTL sets how long access tokens live.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.accessTTL = d
		}
	}
}

// WithRefreshTTL sets how long refresh tokens live.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.refreshTTL = d
		}
	}
}

// WithRefreshRotation makes the refresh endpoint return a new refresh token
// and blacklist the one it was given.
func WithRefreshRotation() Option {
	return func(s *Server) {
		s.rotate = true
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) {
		s.bcryptCost = cost
	}
}

// WithNowTime overrides the clock.
func WithNowTime(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger sets the logger. With dev set, every request is printed with a
// coloured method tag.
func WithLogger(l zerolog.Logger, dev bool) Option {
	return func(s *Server) {
		s.log = l
		s.devLog = dev
	}
}

// New creates a server holding the sample course catalogue and no accounts.
func New(options ...Option) *Server {
	s := &Server{
		secret:     []byte("docshare-fake-secret"),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		log:        zerolog.Nop(),
		accounts:   make(map[string]*account),
		courses:    make(map[int64]*courses.Course),
		documents:  make(map[int64]*storedDocument),
		blacklist:  make(map[string]bool),
		failures:   make(map[string][]injected),
	}
	for _, opt := range options {
		opt(s)
	}

	s.mu.Lock()
	for _, c := range seedCourses {
		s.addCourse(c)
	}
	s.mu.Unlock()

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.recordMiddleware)
	r.Use(s.failureMiddleware)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login/", s.login)
		api.Post("/auth/refresh/", s.refresh)
		api.Post("/auth/register/", s.register)

		api.Group(func(auth chi.Router) {
			auth.Use(s.authenticate)

			auth.Get("/profile/", s.requireUser(s.getProfile))
			auth.Patch("/profile/", s.requireUser(s.updateProfile))
			auth.Get("/my-documents/", s.requireUser(s.myDocuments))

			auth.Get("/courses/", s.listCourses)
			auth.Post("/courses/", s.requireUser(s.createCourse))
			auth.Get("/courses/{id}/", s.getCourse)
			auth.Patch("/courses/{id}/", s.requireUser(s.updateCourse))
			auth.Put("/courses/{id}/", s.requireUser(s.updateCourse))
			auth.Delete("/courses/{id}/", s.requireUser(s.deleteCourse))

			auth.Get("/documents/", s.listDocumentsHandler)
			auth.Post("/documents/", s.requireUser(s.uploadDocument))
			auth.Get("/documents/{id}/", s.getDocument)
			auth.Patch("/documents/{id}/", s.requireUser(s.updateDocument))
			auth.Delete("/documents/{id}/", s.requireUser(s.deleteDocument))

			auth.Get("/documents/{id}/download/", s.download)
			auth.Get("/documents/{id}/preview/", s.preview)

			auth.Get("/stats/", s.stats)
		})
	})
	return r
}

// ServeHTTP serves the API under /api.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser creates an account directly, bypassing registration checks.
func (s *Server) AddUser(username, password string, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[username]; exists {
		return users.User{}, fmt.Errorf("[fakeapi AddUser] user %q exists", username)
	}
	acc, err := s.addAccount(username, password, u)
	if err != nil {
		return users.User{}, fmt.Errorf("[fakeapi AddUser] %w", err)
	}
	return acc.user, nil
}

// SetProfileFields sets the editable profile fields of an account.
func (s *Server) SetProfileFields(username, bio, institution string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[username]; ok {
		acc.bio = bio
		acc.institution = institution
	}
}

// SeedSampleUsers adds the sample accounts, all with SeedPassword.
func (s *Server) SeedSampleUsers() error {
	for _, sa := range seedAccounts {
		if _, err := s.AddUser(sa.username, SeedPassword, users.User{
			Email:     sa.email,
			FirstName: sa.first,
			LastName:  sa.last,
		}); err != nil {
			return err
		}
		s.SetProfileFields(sa.username, "", sa.institution)
	}
	return nil
}

// IssueTokens mints a pair for username as the login endpoint would.
func (s *Server) IssueTokens(username string) (token.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return token.Pair{}, fmt.Errorf("[fakeapi IssueTokens] unknown user %q", username)
	}
	return s.issuePair(acc)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.accessGen++
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshGen++
	s.mu.Unlock()
}

// FailNext makes the next call to method path answer status with a detail body.
// Calls queue up: FailNext twice fails the next two calls.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], injected{
		status: status,
		body:   fmt.Sprintf(`{"detail":"injected failure %d"}`, status),
	})
}

// FailNextWithBody is FailNext with a raw response body.
func (s *Server) FailNextWithBody(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], injected{status: status, body: body})
}

// Hits counts the calls received for method path, e.g. ("POST", "/auth/refresh/").
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Requests returns every call received, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
