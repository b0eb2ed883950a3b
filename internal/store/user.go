package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pranganb/vtube/internal/auth"
	"github.com/pranganb/vtube/types"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

// UserRepository handles persistence for users.
//
// Create and UpdateAccount are full writes that go through every table
// constraint. The Set*/Clear* methods are partial writes touching a single
// column and never re-hash or re-validate anything else.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var refreshToken sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Fullname,
		&user.Avatar,
		&user.CoverImage,
		&user.PasswordHash,
		&refreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.RefreshToken = refreshToken.String
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsernameOrEmail returns the first user whose username or email
// matches. Blank arguments never match.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (types.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)
	if username == "" && email == "" {
		return types.User{}, ErrNotFound
	}

	const query = `SELECT ` + userColumns + ` FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		ORDER BY created_at
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, username, email))
}

// Create hashes the password and inserts a new user.
func (r *UserRepository) Create(ctx context.Context, in types.NewUser) (types.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now().UTC()
	user := types.User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(in.Username),
		Email:        in.Email,
		Fullname:     in.Fullname,
		Avatar:       in.Avatar,
		CoverImage:   in.CoverImage,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	const query = `
		INSERT INTO users (id, username, email, fullname, avatar, cover_image, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.Fullname,
		user.Avatar,
		user.CoverImage,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdateAccount(ctx context.Context, id string, in types.AccountUpdate) (types.User, error) {
	const query = `
		UPDATE users
		SET fullname = $1,
			username = $2,
			email = $3,
			updated_at = $4
		WHERE id = $5
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		in.Fullname,
		strings.ToLower(in.Username),
		in.Email,
		time.Now().UTC(),
		id,
	))
	if err != nil && isUniqueViolation(err) {
		return types.User{}, ErrConflict
	}
	return user, err
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	const query = `UPDATE users SET refresh_token = $1 WHERE id = $2`
	return r.execOne(ctx, query, token, id)
}

// RotateRefreshToken swaps current for next in a single conditional update,
// so of several requests presenting the same token only one can win.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, current, next string) error {
	const query = `UPDATE users SET refresh_token = $1 WHERE id = $2 AND refresh_token = $3`
	if err := r.execOne(ctx, query, next, id, current); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrStaleToken
		}
		return err
	}
	return nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	const query = `UPDATE users SET refresh_token = NULL WHERE id = $1`
	return r.execOne(ctx, query, id)
}

// SetPassword hashes plain and stores it as the user's new password.
func (r *UserRepository) SetPassword(ctx context.Context, id, plain string) error {
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return err
	}
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, query, hash, time.Now().UTC(), id)
}

func (r *UserRepository) SetAvatar(ctx context.Context, id, url string) (types.User, error) {
	const query = `UPDATE users SET avatar = $1, updated_at = $2 WHERE id = $3 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, url, time.Now().UTC(), id))
}

func (r *UserRepository) SetCoverImage(ctx context.Context, id, url string) (types.User, error) {
	const query = `UPDATE users SET cover_image = $1, updated_at = $2 WHERE id = $3 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, url, time.Now().UTC(), id))
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
