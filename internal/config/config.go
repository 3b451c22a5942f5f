package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	HTTPConfig
	StoreConfig
	FakeAPIConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetProfile() string
}

type HTTPConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
}

type FakeAPIConfig interface {
	GetFakeAPIPort() string
	GetFakeAPISecret() string
	GetFakeAPIAccessTTL() time.Duration
	GetFakeAPIRefreshTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	HTTP
	Store
	FakeAPI
}

// New reads an optional .env file from the working directory and then the process
// environment. Variables already set in the environment win over the .env file.
func New() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config New] failed to load .env: %w", err)
	}
	return parse(env.Options{})
}

// NewFromMap builds a Config from an explicit set of variables, ignoring the process
// environment. Used by tests and embedders that manage their own settings.
func NewFromMap(vars map[string]string) (Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	c := mainConfig{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("[config parse] failed to parse environment: %w", err)
	}
	c.Store.profile = c.EnvVars.Profile
	if err := c.Store.validate(); err != nil {
		return nil, fmt.Errorf("[config parse] %w", err)
	}
	return c, nil
}
