package token

import (
	"net/http"

	"golang.org/x/oauth2"
)

// Storage key names. They match the entries the web client kept in local storage.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Pair is the access/refresh credential pair of a session.
// Both values are opaque to the client; a pair is only ever written as a whole.
type Pair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// IsZero reports whether neither token is present.
func (p Pair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}

// Complete reports whether both tokens are present.
func (p Pair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// OAuth2 converts the pair to an oauth2 bearer token. Expiry is taken from the
// access token exp claim when the token is a JWT, and is zero otherwise.
func (p Pair) OAuth2() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
		TokenType:    "Bearer",
	}
	if claims, err := Inspect(p.Access); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	return t
}

// SetAuthHeader writes "Authorization: Bearer <access>" onto r.
// It is a no-op when there is no access token.
func SetAuthHeader(r *http.Request, access string) {
	if access == "" {
		return
	}
	(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(r)
}
