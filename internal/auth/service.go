package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/gatekeep/server/gatekeep/users"
	"codeberg.org/gatekeep/server/internal/logger"
	"codeberg.org/gatekeep/server/internal/password"
	"codeberg.org/gatekeep/server/internal/token"
)

// trims and lowercases an email before any lookup or write
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// creates an account with a hashed password; the pre-check keeps the
// common case cheap, the unique constraint on email is the final arbiter
// when two registrations race
func (s *Service) Register(ctx context.Context, email, plaintext, name string) (*users.User, error) {
	email = NormalizeEmail(email)

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("register lookup: %w", err)
	}

	digest, err := password.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.Create(ctx, email, name, &digest)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}

		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// verifies a password and issues a token pair; a successful login
// overwrites the stored refresh token, superseding any earlier session
func (s *Service) Login(ctx context.Context, email, plaintext string) (*token.Pair, error) {
	email = NormalizeEmail(email)

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("login lookup: %w", err)
	}

	// social-only accounts have no password to verify against
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := password.Verify(plaintext, *user.PasswordHash)
	if err != nil {
		logger.ErrorErr(err, "stored password digest unreadable", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return pair, nil
}

// exchanges a refresh token for a fresh pair under single-use rotation:
// once a token has been exchanged the old one is dead even if unexpired,
// and of two concurrent calls with the same token exactly one succeeds
func (s *Service) Refresh(ctx context.Context, presented string) (*token.Pair, error) {
	if presented == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.codec.Verify(presented, token.KindRefresh)
	if err != nil {
		return nil, ErrInvalidOrExpired
	}

	// the claims are trusted only as a lookup key; identity fields are
	// re-read from the live record below
	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrTokenRevoked
		}

		return nil, fmt.Errorf("refresh lookup: %w", err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		return nil, ErrTokenRevoked
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.store.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	if !rotated {
		// a concurrent refresh won; its token is the current one now
		return nil, ErrTokenRevoked
	}

	return pair, nil
}

// resolves or atomically creates a passwordless account for a social
// identity, then issues a token pair exactly as login does
func (s *Service) SocialLogin(ctx context.Context, email, name string) (*users.User, *token.Pair, error) {
	email = NormalizeEmail(email)

	user, err := s.store.FindOrCreateByEmail(ctx, email, name)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve social identity: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return user, pair, nil
}

// clears the stored refresh token; the session cannot be refreshed afterwards
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.store.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

// loads the account behind a verified access token
func (s *Service) CurrentUser(ctx context.Context, userID string) (*users.User, error) {
	return s.store.FindByID(ctx, userID)
}

// checks an access token and returns its claims; used by the middleware
func (s *Service) VerifyAccessToken(raw string) (*token.Claims, error) {
	return s.codec.Verify(raw, token.KindAccess)
}

// signs an access and a refresh token carrying the record's current
// identity; callers persist the refresh half as the user's live session
func (s *Service) issuePair(user *users.User) (*token.Pair, error) {
	claims := token.Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}

	access, err := s.codec.Sign(claims, token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.codec.Sign(claims, token.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &token.Pair{AccessToken: access, RefreshToken: refresh}, nil
}
