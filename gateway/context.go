package gateway

import "context"

type ctxKey int

const (
	tokenKey ctxKey = iota
	noRefreshKey
)

// WithToken makes the request use access instead of the session token.
// A 401 on such a request is returned as is; it never triggers a refresh.
func WithToken(ctx context.Context, access string) context.Context {
	return context.WithValue(ctx, tokenKey, access)
}

// WithoutRefresh keeps the session token but returns a 401 as is.
// Login and register calls use it: their 401 is a credential answer, not an expiry.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRefreshKey, true)
}

func tokenOverride(ctx context.Context) (string, bool) {
	access, ok := ctx.Value(tokenKey).(string)
	return access, ok
}

func refreshDisabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(noRefreshKey).(bool)
	return disabled
}
