package config

import (
	"fmt"
	"strings"
	"time"
)

type EnvVars struct {
	AppName  string `env:"DOCSHARE_APP_NAME" envDefault:"docshare"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"DOCSHARE_LOG_LEVEL" envDefault:"warn"`
	Profile  string `env:"DOCSHARE_PROFILE" envDefault:"default"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.LogLevel)
}

// GetProfile names the session. Each profile keeps its own stored tokens.
func (e EnvVars) GetProfile() string {
	return e.Profile
}

type HTTP struct {
	APIURL         string        `env:"DOCSHARE_API_URL" envDefault:"http://localhost:8000/api"`
	RequestTimeout time.Duration `env:"DOCSHARE_TIMEOUT" envDefault:"30s"`
	RefreshTimeout time.Duration `env:"DOCSHARE_REFRESH_TIMEOUT" envDefault:"10s"`
	RateLimit      float64       `env:"DOCSHARE_RATE_LIMIT" envDefault:"0"` // requests per second, 0 disables
	RateBurst      int           `env:"DOCSHARE_RATE_BURST" envDefault:"5"`
}

var _ HTTPConfig = HTTP{}

// GetAPIURL returns the API base including the /api prefix, without a trailing slash
func (h HTTP) GetAPIURL() string {
	return strings.TrimRight(h.APIURL, "/")
}

func (h HTTP) GetRequestTimeout() time.Duration {
	return h.RequestTimeout
}

func (h HTTP) GetRefreshTimeout() time.Duration {
	return h.RefreshTimeout
}

func (h HTTP) GetRateLimit() float64 {
	return h.RateLimit
}

func (h HTTP) GetRateBurst() int {
	if h.RateBurst < 1 {
		return 1
	}
	return h.RateBurst
}

type FakeAPI struct {
	Port       string        `env:"FAKEAPI_PORT" envDefault:"8000"`
	Secret     string        `env:"FAKEAPI_SECRET" envDefault:"fakeapi-dev-secret"`
	AccessTTL  time.Duration `env:"FAKEAPI_ACCESS_TTL" envDefault:"5m"`
	RefreshTTL time.Duration `env:"FAKEAPI_REFRESH_TTL" envDefault:"24h"`
}

var _ FakeAPIConfig = FakeAPI{}

func (f FakeAPI) GetFakeAPIPort() string {
	port := f.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (f FakeAPI) GetFakeAPISecret() string {
	return f.Secret
}

func (f FakeAPI) GetFakeAPIAccessTTL() time.Duration {
	return f.AccessTTL
}

func (f FakeAPI) GetFakeAPIRefreshTTL() time.Duration {
	return f.RefreshTTL
}
