package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// distinguishes the two kinds of tokens the service issues
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// holds the signing secrets and expiries for both token kinds; built once
// at startup and never read from the environment during a request
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// signs and verifies access and refresh tokens
type Codec struct {
	config Config
}

// identity claims embedded in every issued token
type Claims struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TokenUse Kind   `json:"token_use"`
	jwt.RegisteredClaims
}

// bundles the tokens returned by login, social login, and refresh
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
