package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranganb/vtube/types"
)

func newTestTokenService() *TokenService {
	return NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 240*time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestTokenService()
	user := types.User{ID: "6f1c1f0e-1111-4c1b-9a55-000000000001", Username: "alice", Email: "alice@example.com", Fullname: "Alice A"}

	token, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Alice A", claims.Fullname)
}

func TestRefreshToken_RoundTripAndUniqueness(t *testing.T) {
	svc := newTestTokenService()

	first, err := svc.IssueRefreshToken("u1")
	require.NoError(t, err)
	second, err := svc.IssueRefreshToken("u1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	claims, err := svc.VerifyRefreshToken(first)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerify_SecretsAreSeparate(t *testing.T) {
	svc := newTestTokenService()

	refresh, err := svc.IssueRefreshToken("u1")
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	access, err := svc.IssueAccessToken(types.User{ID: "u1"})
	require.NoError(t, err)
	_, err = svc.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Expired(t *testing.T) {
	svc := newTestTokenService()
	issuedAt := time.Now().Add(-300 * time.Hour)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.IssueRefreshToken("u1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.VerifyAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.VerifyRefreshToken("")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestTokenService()
	claims := RefreshClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_MissingSubject(t *testing.T) {
	svc := newTestTokenService()
	token, err := svc.IssueRefreshToken("")
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, VerifyPassword("s3cret!", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("s3cret!", ""))
}
