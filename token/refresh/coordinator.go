package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const flightKey = "refresh"

// DefaultTimeout bounds a refresh exchange when WithTimeout is not given.
const DefaultTimeout = 10 * time.Second

// Grant is the answer of the refresh endpoint. Refresh is only set when the
// server rotates refresh tokens.
type Grant struct {
	Access  string
	Refresh string
}

// Exchanger trades a refresh token for a new access token.
type Exchanger func(ctx context.Context, refreshToken string) (Grant, error)

// Store is the part of the session the coordinator reads and writes.
type Store interface {
	Tokens() token.Pair
	ApplyRefresh(ctx context.Context, usedRefresh, access, rotated string) error
	Expire(ctx context.Context, usedRefresh string) (bool, error)
}

// Stats counts what the coordinator did.
type Stats struct {
	Flights  int64 // exchanges started
	Failures int64 // flights that failed
	Waiters  int64 // Refresh calls that waited on a flight, including the one that started it
	Reused   int64 // Refresh calls answered by a token another caller already obtained
}

// Coordinator makes sure there is at most one refresh exchange in flight.
// Every caller that sees a 401 while a flight is running waits for that flight
// and receives its outcome.
type Coordinator struct {
	store     Store
	exchange  Exchanger
	timeout   time.Duration
	onExpired func(error)
	log       zerolog.Logger

	group singleflight.Group

	flights  atomic.Int64
	failures atomic.Int64
	waiters  atomic.Int64
	reused   atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds each exchange. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSessionExpired registers the hook fired once per failed flight, after the
// session has been cleared.
func WithSessionExpired(fn func(error)) Option {
	return func(c *Coordinator) {
		c.onExpired = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// NewCoordinator creates a coordinator over store using exchange for the network call.
func NewCoordinator(store Store, exchange Exchanger, options ...Option) (*Coordinator, error) {
	if store == nil || exchange == nil {
		return nil, fmt.Errorf("[refresh NewCoordinator] store and exchanger are required")
	}
	c := &Coordinator{
		store:    store,
		exchange: exchange,
		timeout:  DefaultTimeout,
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Refresh returns an access token newer than staleAccess. staleAccess is the
// token the failed request carried, empty for an anonymous request.
//
// If the session already holds a different access token it is returned with no
// network call. Otherwise the caller joins the shared flight. The flight is not
// tied to ctx: a caller giving up does not cancel it for the others.
func (c *Coordinator) Refresh(ctx context.Context, staleAccess string) (string, error) {
	if current := c.store.Tokens().Access; current != "" && current != staleAccess {
		c.reused.Add(1)
		return current, nil
	}

	c.waiters.Add(1)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		return c.flight(ctx, staleAccess)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stats returns a copy of the counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Flights:  c.flights.Load(),
		Failures: c.failures.Load(),
		Waiters:  c.waiters.Load(),
		Reused:   c.reused.Load(),
	}
}

func (c *Coordinator) flight(ctx context.Context, staleAccess string) (string, error) {
	// the flight may have been scheduled right after another one finished
	if current := c.store.Tokens().Access; current != "" && current != staleAccess {
		return current, nil
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	refreshToken := c.store.Tokens().Refresh
	if refreshToken == "" {
		// a straggler from a flight that already ended the session must not
		// announce the expiry a second time
		return c.fail(fctx, "", dserrors.ErrNoRefreshToken, staleAccess == "")
	}

	c.flights.Add(1)
	start := time.Now()
	grant, err := c.exchange(fctx, refreshToken)
	if err == nil && grant.Access == "" {
		err = fmt.Errorf("%w: refresh response without access token", dserrors.ErrMalformedResponse)
	}
	if err == nil {
		err = c.store.ApplyRefresh(fctx, refreshToken, grant.Access, grant.Refresh)
	}
	if errors.Is(err, dserrors.ErrSessionReplaced) {
		return c.replaced(err)
	}
	if err != nil {
		return c.fail(fctx, refreshToken, err, true)
	}

	c.log.Debug().
		Dur("duration", time.Since(start)).
		Bool("rotated", grant.Refresh != "").
		Msg("token refreshed")
	return grant.Access, nil
}

// replaced answers a flight whose session was logged out or replaced by a new
// login while the exchange ran. The newer session is left untouched.
func (c *Coordinator) replaced(cause error) (string, error) {
	if current := c.store.Tokens().Access; current != "" {
		c.log.Debug().Msg("session changed during refresh, using current token")
		return current, nil
	}
	c.log.Debug().Msg("session ended during refresh")
	return "", fmt.Errorf("[refresh Refresh] %w: %w", dserrors.ErrNotAuthenticated, cause)
}

// fail ends the session that held usedRefresh and reports the failure. When a
// login or logout replaced that session during the exchange nothing is cleared
// and nothing is announced.
func (c *Coordinator) fail(ctx context.Context, usedRefresh string, cause error, announce bool) (string, error) {
	if _, err := c.store.Expire(ctx, usedRefresh); err != nil {
		if errors.Is(err, dserrors.ErrSessionReplaced) {
			return c.replaced(cause)
		}
		c.log.Err(err).Msg("clearing session after failed refresh")
	}
	c.failures.Add(1)

	err := fmt.Errorf("[refresh Refresh] %w: %w", dserrors.ErrRefreshFailed, cause)
	c.log.Debug().Err(cause).Msg("refresh failed, session cleared")
	if announce && c.onExpired != nil {
		c.onExpired(err)
	}
	return "", err
}
