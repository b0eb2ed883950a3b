package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranganb/vtube/internal/auth"
	"github.com/pranganb/vtube/types"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userColumnNames = []string{
	"id", "username", "email", "fullname", "avatar", "cover_image",
	"password_hash", "refresh_token", "created_at", "updated_at",
}

func userRow(id, username, email string, refresh any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumnNames).AddRow(
		id, username, email, "Full Name", "https://cdn/avatar.png", "",
		"$2a$10$hash", refresh, now, now,
	)
}

// passwordArg matches a bcrypt hash of the given plaintext.
type passwordArg string

func (p passwordArg) Match(v driver.Value) bool {
	hash, ok := v.(string)
	return ok && hash != string(p) && auth.VerifyPassword(string(p), hash)
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(userRow("u1", "alice", "alice@example.com", "refresh-1"))

	user, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "refresh-1", user.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02"})

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsernameOrEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)")).
		WithArgs("alice", "").
		WillReturnRows(userRow("u1", "alice", "alice@example.com", nil))

	user, err := repo.GetByUsernameOrEmail(context.Background(), "  Alice ", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Empty(t, user.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsernameOrEmail_BlankNeverQueries(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByUsernameOrEmail(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_HashesAndLowercases(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(
			sqlmock.AnyArg(),
			"alice",
			"alice@example.com",
			"Alice A",
			"https://cdn/a.png",
			"",
			passwordArg("s3cret"),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.Create(context.Background(), types.NewUser{
		Username: "Alice",
		Email:    "alice@example.com",
		Fullname: "Alice A",
		Password: "s3cret",
		Avatar:   "https://cdn/a.png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, auth.VerifyPassword("s3cret", user.PasswordHash))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), types.NewUser{Username: "a", Email: "a@x", Password: "p"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepository_UpdateAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs("New Name", "bob", "bob@example.com", sqlmock.AnyArg(), "u1").
		WillReturnRows(userRow("u1", "bob", "bob@example.com", nil))

	user, err := repo.UpdateAccount(context.Background(), "u1", types.AccountUpdate{
		Fullname: "New Name",
		Username: "BOB",
		Email:    "bob@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WillReturnError(&pq.Error{Code: "23505"})
	_, err = repo.UpdateAccount(context.Background(), "u1", types.AccountUpdate{Username: "taken"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RefreshTokenWrites(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token = $1 WHERE id = $2")).
		WithArgs("tok", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token = NULL WHERE id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token = NULL WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetRefreshToken(context.Background(), "u1", "tok"))
	require.NoError(t, repo.ClearRefreshToken(context.Background(), "u1"))
	assert.ErrorIs(t, repo.ClearRefreshToken(context.Background(), "ghost"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RotateRefreshToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	const query = "UPDATE users SET refresh_token = $1 WHERE id = $2 AND refresh_token = $3"
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("new", "u1", "old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("newer", "u1", "old").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RotateRefreshToken(context.Background(), "u1", "old", "new"))
	assert.ErrorIs(t, repo.RotateRefreshToken(context.Background(), "u1", "old", "newer"), ErrStaleToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetPassword_Hashes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $1")).
		WithArgs(passwordArg("n3w-pass"), sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPassword(context.Background(), "u1", "n3w-pass"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetAvatarAndCover(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET avatar = $1")).
		WithArgs("https://cdn/new.png", sqlmock.AnyArg(), "u1").
		WillReturnRows(userRow("u1", "alice", "alice@example.com", nil))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET cover_image = $1")).
		WithArgs("https://cdn/cover.png", sqlmock.AnyArg(), "u2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SetAvatar(context.Background(), "u1", "https://cdn/new.png")
	require.NoError(t, err)
	_, err = repo.SetCoverImage(context.Background(), "u2", "https://cdn/cover.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_PropagatesDriverErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token")).WillReturnError(boom)

	err := repo.SetRefreshToken(context.Background(), "u1", "tok")
	assert.ErrorIs(t, err, boom)
}
