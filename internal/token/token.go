package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// creates a codec; the two secrets must differ so an access token can
// never be presented where a refresh token is expected, or vice versa
func NewCodec(config Config) (*Codec, error) {
	if len(config.AccessSecret) == 0 || len(config.RefreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}

	if string(config.AccessSecret) == string(config.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}

	return &Codec{config: config}, nil
}

// signs identity claims as a token of the given kind, stamping issued-at,
// the kind-specific expiry, and the kind itself into the payload. Every
// token also carries a fresh jti: iat/exp have second granularity, so
// without it two tokens minted in the same second would be byte-identical
// and rotation could replace a refresh token with itself
func (c *Codec) Sign(claims Claims, kind Kind) (string, error) {
	now := time.Now()

	claims.TokenUse = kind
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl(kind)))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret(kind))
}

// verifies signature, expiry, and declared kind, returning the embedded claims
func (c *Codec) Verify(raw string, kind Kind) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return c.secret(kind), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}

		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenUse != kind {
		return nil, fmt.Errorf("%w: wrong token kind", ErrInvalidToken)
	}

	return claims, nil
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.config.RefreshSecret
	}

	return c.config.AccessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.config.RefreshTTL
	}

	return c.config.AccessTTL
}
