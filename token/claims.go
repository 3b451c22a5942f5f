package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access token claims the client cares about.
// The client never verifies signatures; the server remains the authority.
type Claims struct {
	Subject   string
	UserID    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token is past its exp claim at now.
// Tokens without an exp claim never expire from the client's point of view.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes the claims of a JWT access token without verifying it.
func Inspect(rawToken string) (Claims, error) {
	if rawToken == "" {
		return Claims{}, errors.New("[token Inspect] empty token")
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("[token Inspect] not a JWT: %w", err)
	}

	mapClaims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, errors.New("[token Inspect] error extracting claims")
	}

	claims := Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	// SimpleJWT puts the user primary key in user_id
	switch v := mapClaims["user_id"].(type) {
	case string:
		claims.UserID = v
	case float64:
		claims.UserID = fmt.Sprintf("%.0f", v)
	}
	return claims, nil
}
