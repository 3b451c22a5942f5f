package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries one id for a logical request, replay included.
const RequestIDHeader = "X-Request-ID"

// maxDrain bounds how much of a 401 body is read before the connection is reused.
const maxDrain = 64 << 10

// TokenSource returns the access token to attach, empty when unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// Refresher obtains an access token newer than the stale one.
type Refresher interface {
	Refresh(ctx context.Context, staleAccess string) (string, error)
}

// Transport is an http.RoundTripper that authenticates every request and
// recovers from one expired access token per logical request.
type Transport struct {
	base      http.RoundTripper
	tokens    TokenSource
	refresher Refresher
	limiter   *rate.Limiter
	log       zerolog.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the transport requests are dispatched on. Defaults to http.DefaultTransport.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithRateLimit waits for the limiter before each dispatch, retries included.
// A zero limit disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(t *Transport) {
		if limit <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger. Token values are never logged.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = l
	}
}

// New creates a gateway transport.
func New(tokens TokenSource, refresher Refresher, options ...Option) (*Transport, error) {
	if tokens == nil || refresher == nil {
		return nil, fmt.Errorf("[gateway New] token source and refresher are required")
	}
	t := &Transport{
		base:      http.DefaultTransport,
		tokens:    tokens,
		refresher: refresher,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// attempt identifies one dispatch of a logical request.
type attempt struct {
	requestID string
	number    int
}

// RoundTrip dispatches req with the current access token. On a 401 it asks
// the refresher for a new token and dispatches a fresh copy exactly once. If
// the refresh fails the original 401 response is returned. The retried
// response is final whatever its status.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayable(req)
	if err != nil {
		return nil, fmt.Errorf("[gateway RoundTrip] buffer body: %w", err)
	}

	at := attempt{requestID: req.Header.Get(RequestIDHeader), number: 1}
	if at.requestID == "" {
		at.requestID = uuid.NewString()
	}

	access, overridden := tokenOverride(ctx)
	if !overridden {
		access = t.tokens.AccessToken()
	}

	resp, err := t.dispatch(req, getBody, access, at)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || overridden || refreshDisabled(ctx) {
		return resp, nil
	}

	fresh, err := t.refresher.Refresh(ctx, access)
	if err != nil {
		t.log.Debug().Err(err).Str("request_id", at.requestID).Msg("refresh failed, returning 401")
		return resp, nil
	}
	discard(resp)

	at.number++
	return t.dispatch(req, getBody, fresh, at)
}

func (t *Transport) dispatch(req *http.Request, getBody func() (io.ReadCloser, error), access string, at attempt) (*http.Response, error) {
	ctx := req.Context()
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("[gateway dispatch] rate limit: %w", err)
		}
	}

	out := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("[gateway dispatch] rewind body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	out.Header.Del("Authorization")
	token.SetAuthHeader(out, access)
	out.Header.Set(RequestIDHeader, at.requestID)

	start := time.Now()
	resp, err := t.base.RoundTrip(out)

	ev := t.log.Debug().
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Int("attempt", at.number).
		Bool("authenticated", access != "").
		Str("request_id", at.requestID).
		Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("request")
	return resp, nil
}

// replayable returns a function producing a fresh copy of the request body,
// or nil when the request has none.
func replayable(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}

	buf, err := io.ReadAll(req.Body)
	closeErr := req.Body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}

func discard(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	_ = resp.Body.Close()
}
