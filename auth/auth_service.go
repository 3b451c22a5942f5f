package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-docshare-client/gateway"
	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/session"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/users"
	"github.com/rs/zerolog"
)

// API is the part of the HTTP client the service needs.
type API interface {
	Login(ctx context.Context, username, password string) (token.Pair, error)
	Register(ctx context.Context, reg users.Registration) (*users.User, error)
	Profile(ctx context.Context) (*users.Profile, error)
	UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.Profile, error)
}

// Service runs the session operations: restore, login, register, logout and
// profile update. It never panics on a server failure; every outcome is a Result.
type Service struct {
	api   API
	store *session.Store
	log   zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a Service over an API client and the session store it manages.
func NewService(api API, store *session.Store, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	s := &Service{api: api, store: store, log: zerolog.Nop()}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Restore resumes a persisted session. Without a stored access token the
// result is simply unauthenticated. Otherwise the profile is fetched to prove
// the tokens still work; any failure clears the session.
func (s *Service) Restore(ctx context.Context) RestoreResult {
	pair, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored session unreadable, clearing")
		s.clear(ctx)
		return RestoreResult{Error: dserrors.Message(err), Kind: dserrors.Classify(err)}
	}
	if pair.Access == "" {
		return RestoreResult{}
	}

	profile, err := s.api.Profile(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("stored session rejected, clearing")
		s.clear(ctx)
		return RestoreResult{Error: dserrors.Message(err), Kind: dserrors.Classify(err)}
	}

	s.store.SetProfile(profile)
	return RestoreResult{Authenticated: true, User: profile.Clone()}
}

// Login authenticates and fetches the profile with the new access token. The
// session is only written once both succeeded, so a failed login leaves it as it was.
func (s *Service) Login(ctx context.Context, username, password string) Result {
	pair, err := s.api.Login(ctx, username, password)
	if err != nil {
		return s.loginFailed(err)
	}

	profile, err := s.api.Profile(gateway.WithToken(ctx, pair.Access))
	if err != nil {
		return s.loginFailed(err)
	}

	if err := s.store.Establish(ctx, pair, profile); err != nil {
		s.log.Err(err).Msg("persist session")
		return failure(fmt.Errorf("[Login] %w", err), "could not save the session")
	}

	s.log.Info().Str("username", profile.User.Username).Msg("logged in")
	return Result{Success: true, User: profile.Clone()}
}

// Register creates an account. It does not log in and never touches the session.
func (s *Service) Register(ctx context.Context, reg users.Registration) Result {
	if _, err := s.api.Register(ctx, reg); err != nil {
		return failure(err, "registration failed")
	}
	return Result{Success: true}
}

// Logout clears the session. It always succeeds from the caller point of view;
// a failure to remove the persisted tokens is only logged.
func (s *Service) Logout(ctx context.Context) {
	s.clear(ctx)
}

// UpdateProfile sends a partial update and replaces the cached profile with
// what the server returned. On failure the cached profile is unchanged.
func (s *Service) UpdateProfile(ctx context.Context, update users.ProfileUpdate) Result {
	profile, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		return failure(err, "profile update failed")
	}
	s.store.SetProfile(profile)
	return Result{Success: true, User: profile.Clone()}
}

// CurrentUser returns the cached profile, nil when unknown.
func (s *Service) CurrentUser() *users.Profile {
	return s.store.Profile()
}

// Authenticated reports whether the session holds an access token.
func (s *Service) Authenticated() bool {
	return s.store.Authenticated()
}

func (s *Service) clear(ctx context.Context) {
	if _, err := s.store.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("clear persisted session")
	}
}

// loginFailed surfaces the server detail when there is one. Field errors of a
// 400 are kept so a caller can show them next to the inputs.
func (s *Service) loginFailed(err error) Result {
	s.log.Debug().Err(err).Msg("login failed")
	res := Result{Error: "login failed", Kind: dserrors.Classify(err), err: err}

	var apiErr *dserrors.APIError
	if dserrors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			res.Error = apiErr.Detail
		}
		res.FieldErrors = fieldErrorsOf(apiErr)
	} else if res.Kind == dserrors.KindTransient {
		res.Error = dserrors.Message(err)
	}
	return res
}

func failure(err error, fallback string) Result {
	res := Result{Error: fallback, Kind: dserrors.Classify(err), err: err}

	var apiErr *dserrors.APIError
	if !dserrors.As(err, &apiErr) {
		if res.Kind == dserrors.KindTransient || res.Kind == dserrors.KindCredential {
			res.Error = dserrors.Message(err)
		}
		return res
	}

	res.FieldErrors = fieldErrorsOf(apiErr)
	switch {
	case len(apiErr.Fields) > 0:
		res.Error = apiErr.FieldSummary()
	case apiErr.Detail != "":
		res.Error = apiErr.Detail
	case res.Kind == dserrors.KindTransient:
		res.Error = dserrors.Message(err)
	}
	return res
}

func fieldErrorsOf(apiErr *dserrors.APIError) FieldErrors {
	if len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(FieldErrors, len(apiErr.Fields))
	for k, v := range apiErr.Fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}
