package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// postgres unique_violation
const uniqueViolationCode = "23505"

// creates a new user repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// finds a user by email; the caller normalizes the email first
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.queryOne(ctx, queryFindByEmail, email)
}

// finds a user by their ID
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.queryOne(ctx, queryFindByID, id)
}

// creates a user; the unique constraint on email is the final arbiter for
// concurrent registrations, surfacing as ErrDuplicateEmail
func (r *Repository) Create(ctx context.Context, email, name string, passwordHash *string) (*User, error) {
	user, err := r.queryOne(ctx, queryCreate, email, name, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}

		return nil, err
	}

	return user, nil
}

// finds a user by email or creates a passwordless one in a single
// conditional insert, so concurrent first-time social logins for the same
// email can never produce two records
func (r *Repository) FindOrCreateByEmail(ctx context.Context, email, name string) (*User, error) {
	return r.queryOne(ctx, queryFindOrCreateByEmail, email, name)
}

// overwrites the stored refresh token, invalidating any previous session
func (r *Repository) UpdateRefreshToken(ctx context.Context, id, refreshToken string) error {
	tag, err := r.db.Exec(ctx, queryUpdateRefreshToken, id, refreshToken)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// replaces the stored refresh token only if it still equals current;
// returns false when another rotation won the race. The single conditional
// UPDATE is what makes concurrent refreshes yield exactly one winner
func (r *Repository) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	tag, err := r.db.Exec(ctx, queryRotateRefreshToken, id, current, next)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// clears the stored refresh token, ending the session
func (r *Repository) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, queryClearRefreshToken, id)
	return err
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (*User, error) {
	var user User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
