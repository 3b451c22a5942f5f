package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-docshare-client/api"
	"github.com/jrsteele09/go-docshare-client/auth"
	"github.com/jrsteele09/go-docshare-client/gateway"
	"github.com/jrsteele09/go-docshare-client/internal/config"
	"github.com/jrsteele09/go-docshare-client/session"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/token/filestore"
	"github.com/jrsteele09/go-docshare-client/token/redisstore"
	"github.com/jrsteele09/go-docshare-client/token/refresh"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is the wired docshare client: one session, one refresh coordinator and
// an API client whose requests go through the authenticated gateway.
type Client struct {
	Auth    *auth.Service
	API     *api.Client
	Session *session.Store
	Refresh *refresh.Coordinator

	redis *redis.Client // owned, nil unless the redis store was built here
}

type options struct {
	repo      token.Repo
	base      http.RoundTripper
	onExpired func(error)
	log       zerolog.Logger
}

// Option configures New.
type Option func(*options)

// WithTokenRepo replaces the repository chosen by the configuration.
func WithTokenRepo(repo token.Repo) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// WithHTTPTransport sets the transport under the gateway, http.DefaultTransport otherwise.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithSessionExpired is called once each time a refresh fails and the session is cleared.
func WithSessionExpired(fn func(error)) Option {
	return func(o *options) {
		o.onExpired = fn
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New builds the client graph from cfg. The stored session is not read here,
// call Auth.Restore for that.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	o := options{base: http.DefaultTransport, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.base == nil {
		o.base = http.DefaultTransport
	}

	c := &Client{}
	repo := o.repo
	if repo == nil {
		var err error
		if repo, err = c.newRepo(ctx, cfg, o.log); err != nil {
			return nil, fmt.Errorf("[client New] %w", err)
		}
	}

	store, err := session.New(repo, session.WithLogger(o.log))
	if err != nil {
		return nil, c.fail(fmt.Errorf("[client New] %w", err))
	}

	// Refresh exchanges bypass the gateway so a rejected refresh can never recurse.
	raw, err := api.New(cfg.GetAPIURL(), &http.Client{Transport: o.base, Timeout: cfg.GetRequestTimeout()}, api.WithLogger(o.log))
	if err != nil {
		return nil, c.fail(fmt.Errorf("[client New] %w", err))
	}

	coordinator, err := refresh.NewCoordinator(store, raw.RefreshAccess,
		refresh.WithTimeout(cfg.GetRefreshTimeout()),
		refresh.WithSessionExpired(o.onExpired),
		refresh.WithLogger(o.log),
	)
	if err != nil {
		return nil, c.fail(fmt.Errorf("[client New] %w", err))
	}

	transport, err := gateway.New(store, coordinator,
		gateway.WithBase(o.base),
		gateway.WithRateLimit(rate.Limit(cfg.GetRateLimit()), cfg.GetRateBurst()),
		gateway.WithLogger(o.log),
	)
	if err != nil {
		return nil, c.fail(fmt.Errorf("[client New] %w", err))
	}

	authed, err := api.New(cfg.GetAPIURL(), &http.Client{Transport: transport, Timeout: cfg.GetRequestTimeout()}, api.WithLogger(o.log))
	if err != nil {
		return nil, c.fail(fmt.Errorf("[client New] %w", err))
	}

	service, err := auth.NewService(authed, store, auth.WithLogger(o.log))
	if err != nil {
		return nil, c.fail(fmt.Errorf("[client New] %w", err))
	}

	c.Auth = service
	c.API = authed
	c.Session = store
	c.Refresh = coordinator
	return c, nil
}

// Close releases the redis connection when the client opened one.
func (c *Client) Close() error {
	if c.redis == nil {
		return nil
	}
	err := c.redis.Close()
	c.redis = nil
	return err
}

func (c *Client) fail(err error) error {
	_ = c.Close()
	return err
}

func (c *Client) newRepo(ctx context.Context, cfg config.Config, l zerolog.Logger) (token.Repo, error) {
	switch cfg.GetTokenStore() {
	case config.StoreMemory:
		return token.NewInMemoryRepo(cfg.GetProfile()), nil
	case config.StoreRedis:
		rdb, err := redisstore.NewClient(ctx, cfg.GetRedisURL())
		if err != nil {
			return nil, err
		}
		repo, err := redisstore.New(rdb, cfg.GetProfile())
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		c.redis = rdb
		return repo, nil
	default:
		fileOpts := []filestore.Option{filestore.WithLogger(l)}
		if key := cfg.GetTokenKey(); key != nil {
			fileOpts = append(fileOpts, filestore.WithKey(key))
		} else if pass := cfg.GetTokenPassphrase(); pass != "" {
			fileOpts = append(fileOpts, filestore.WithPassphrase(pass))
		}
		return filestore.New(cfg.GetTokenFile(), fileOpts...)
	}
}
