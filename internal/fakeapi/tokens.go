package fakeapi

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-docshare-client/token"
)

const (
	accessType  = "access"
	refreshType = "refresh"
)

var errTokenInvalid = errors.New("token invalid")

type tokenClaims struct {
	TokenType  string `json:"token_type"`
	UserID     int64  `json:"user_id"`
	Generation int    `json:"gen"`
	jwtlib.RegisteredClaims
}

// sign mints a token of the given type. Expects s.mu to be held.
func (s *Server) sign(tokenType string, acc *account) (string, error) {
	now := s.now()
	ttl, gen := s.accessTTL, s.accessGen
	if tokenType == refreshType {
		ttl, gen = s.refreshTTL, s.refreshGen
	}
	claims := tokenClaims{
		TokenType:  tokenType,
		UserID:     acc.user.ID,
		Generation: gen,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acc.user.Username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) issuePair(acc *account) (token.Pair, error) {
	access, err := s.sign(accessType, acc)
	if err != nil {
		return token.Pair{}, err
	}
	refresh, err := s.sign(refreshType, acc)
	if err != nil {
		return token.Pair{}, err
	}
	return token.Pair{Access: access, Refresh: refresh}, nil
}

// verify checks signature, expiry, type and generation. Expects s.mu to be held.
func (s *Server) verify(raw, tokenType string) (*tokenClaims, *account, error) {
	claims := &tokenClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims,
		func(*jwtlib.Token) (interface{}, error) { return s.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}
	if claims.TokenType != tokenType {
		return nil, nil, fmt.Errorf("%w: wrong token type", errTokenInvalid)
	}

	minGen := s.accessGen
	if tokenType == refreshType {
		minGen = s.refreshGen
		if s.blacklist[claims.ID] {
			return nil, nil, fmt.Errorf("%w: blacklisted", errTokenInvalid)
		}
	}
	if claims.Generation < minGen {
		return nil, nil, fmt.Errorf("%w: revoked", errTokenInvalid)
	}

	acc := s.accountByID(claims.UserID)
	if acc == nil {
		return nil, nil, fmt.Errorf("%w: unknown user", errTokenInvalid)
	}
	return claims, acc, nil
}
