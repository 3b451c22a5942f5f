package session

import (
	"context"
	"fmt"
	"sync"

	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/users"
	"github.com/rs/zerolog"
)

// Snapshot is a point in time copy of the session state.
type Snapshot struct {
	Tokens token.Pair
	User   *users.Profile
}

// Authenticated is derived from token presence, never stored.
func (s Snapshot) Authenticated() bool {
	return s.Tokens.Access != ""
}

// Store is the single source of truth for authentication state.
// Tokens are always persisted to the durable repo before memory changes,
// so a failed write leaves both sides as they were.
type Store struct {
	repo token.Repo
	log  zerolog.Logger

	writeMu sync.Mutex // serializes repo writes with the memory update that follows
	mu      sync.RWMutex
	tokens token.Pair
	user   *users.Profile

	subsMu sync.Mutex
	subs   map[uint64]func(Snapshot)
	nextID uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New creates an empty, unauthenticated store backed by repo.
func New(repo token.Repo, options ...Option) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("[session New] token repo is required")
	}
	s := &Store{
		repo: repo,
		log:  zerolog.Nop(),
		subs: make(map[uint64]func(Snapshot)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load reads the persisted pair into memory and drops any cached profile.
// It returns the loaded pair; the zero pair means nothing was stored.
func (s *Store) Load(ctx context.Context) (token.Pair, error) {
	s.writeMu.Lock()
	pair, err := s.repo.Load(ctx)
	if err != nil {
		s.writeMu.Unlock()
		return token.Pair{}, fmt.Errorf("[session Load] %w", err)
	}
	if !pair.Complete() {
		pair = token.Pair{}
	}
	s.set(pair, nil)
	s.writeMu.Unlock()

	s.notify()
	return pair, nil
}

// Establish commits a fresh login: both tokens and the profile fetched with them.
func (s *Store) Establish(ctx context.Context, pair token.Pair, profile *users.Profile) error {
	if !pair.Complete() {
		return fmt.Errorf("[session Establish] %w: incomplete token pair", dserrors.ErrMalformedResponse)
	}

	s.writeMu.Lock()
	if err := s.repo.Save(ctx, pair); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("[session Establish] persist tokens: %w", err)
	}
	s.set(pair, profile.Clone())
	s.writeMu.Unlock()

	s.log.Debug().Msg("session established")
	s.notify()
	return nil
}

// ApplyRefresh stores a new access token obtained by exchanging usedRefresh.
// The refresh token is kept unless the server rotated it, in which case rotated
// replaces it. The write is a whole pair and only happens while usedRefresh is
// still the current refresh token; otherwise nothing is written and
// ErrSessionReplaced is returned.
func (s *Store) ApplyRefresh(ctx context.Context, usedRefresh, access, rotated string) error {
	if access == "" {
		return fmt.Errorf("[session ApplyRefresh] %w: empty access token", dserrors.ErrMalformedResponse)
	}

	s.writeMu.Lock()
	current := s.Tokens()
	if current.Refresh == "" || current.Refresh != usedRefresh {
		s.writeMu.Unlock()
		return fmt.Errorf("[session ApplyRefresh] %w", dserrors.ErrSessionReplaced)
	}

	next := token.Pair{Access: access, Refresh: current.Refresh}
	if rotated != "" {
		next.Refresh = rotated
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("[session ApplyRefresh] persist tokens: %w", err)
	}
	s.set(next, s.Profile())
	s.writeMu.Unlock()

	s.log.Debug().Bool("rotated", rotated != "").Msg("access token refreshed")
	s.notify()
	return nil
}

// SetProfile replaces the cached profile with the server representation.
func (s *Store) SetProfile(profile *users.Profile) {
	s.mu.Lock()
	s.user = profile.Clone()
	s.mu.Unlock()
	s.notify()
}

// Clear drops tokens and profile from memory and from the durable repo.
// It is safe to call on an empty store. The returned bool reports whether
// there was a session to clear. Memory is cleared even when the repo fails.
func (s *Store) Clear(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	return s.clearLocked(ctx, "session Clear")
}

// Expire clears the session after usedRefresh was rejected. A session that no
// longer holds usedRefresh belongs to a later login or logout and is kept;
// Expire then returns ErrSessionReplaced.
func (s *Store) Expire(ctx context.Context, usedRefresh string) (bool, error) {
	s.writeMu.Lock()
	if s.Tokens().Refresh != usedRefresh {
		s.writeMu.Unlock()
		return false, fmt.Errorf("[session Expire] %w", dserrors.ErrSessionReplaced)
	}
	return s.clearLocked(ctx, "session Expire")
}

// clearLocked must be called with writeMu held and releases it.
func (s *Store) clearLocked(ctx context.Context, op string) (bool, error) {
	snap := s.Snapshot()
	hadSession := !snap.Tokens.IsZero() || snap.User != nil
	s.set(token.Pair{}, nil)

	err := s.repo.Clear(ctx)
	s.writeMu.Unlock()

	if err != nil {
		s.log.Err(err).Msg("failed to clear persisted tokens")
		err = fmt.Errorf("[%s] %w", op, err)
	}
	if hadSession {
		s.log.Debug().Msg("session cleared")
		s.notify()
	}
	return hadSession, err
}

func (s *Store) set(pair token.Pair, profile *users.Profile) {
	s.mu.Lock()
	s.tokens = pair
	s.user = profile
	s.mu.Unlock()
}

// Tokens returns the current pair.
func (s *Store) Tokens() token.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// AccessToken returns the current access token, empty when unauthenticated.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

// Profile returns a copy of the cached profile, nil until fetched.
func (s *Store) Profile() *users.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Authenticated reports whether an access token is present.
func (s *Store) Authenticated() bool {
	return s.AccessToken() != ""
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Tokens: s.tokens, User: s.user.Clone()}
}

// Subscribe registers fn to be called with a snapshot after every change.
// Calling the returned function removes the listener; it is never called again.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// notify runs listeners outside the state lock. A listener removed while
// notifications are in progress is skipped.
func (s *Store) notify() {
	snap := s.Snapshot()

	s.subsMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	s.subsMu.Unlock()

	for _, id := range ids {
		s.subsMu.Lock()
		fn, ok := s.subs[id]
		s.subsMu.Unlock()
		if ok {
			fn(snap)
		}
	}
}
