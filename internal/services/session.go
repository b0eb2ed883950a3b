package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pranganb/vtube/internal/apperr"
	"github.com/pranganb/vtube/internal/auth"
	"github.com/pranganb/vtube/internal/store"
	"github.com/pranganb/vtube/types"
)

// Machine codes carried by 401 responses.
const (
	CodeRefreshTokenMissing = "REFRESH_TOKEN_MISSING"
	CodeRefreshTokenExpired = "REFRESH_TOKEN_EXPIRED"
	CodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
	CodeRefreshTokenReused  = "REFRESH_TOKEN_REUSED"
	CodeRefreshUserNotFound = "REFRESH_USER_NOT_FOUND"
	CodeAccessTokenMissing  = "ACCESS_TOKEN_MISSING"
	CodeAccessTokenExpired  = "ACCESS_TOKEN_EXPIRED"
	CodeAccessTokenInvalid  = "ACCESS_TOKEN_INVALID"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccessUserNotFound  = "ACCESS_USER_NOT_FOUND"
)

// TokenIssuer signs and verifies the session token pair.
type TokenIssuer interface {
	IssueAccessToken(user types.User) (string, error)
	IssueRefreshToken(userID string) (string, error)
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
	VerifyRefreshToken(token string) (*auth.RefreshClaims, error)
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the result of a successful login.
type Session struct {
	User types.User `json:"user"`
	TokenPair
}

// SessionService drives login, logout and refresh token rotation. Each user
// holds at most one valid refresh token; issuing a new one overwrites it.
type SessionService struct {
	repo   UserRepository
	tokens TokenIssuer
	events *Events
	logger *slog.Logger
}

func NewSessionService(repo UserRepository, tokens TokenIssuer, events *Events, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		repo:   repo,
		tokens: tokens,
		events: events,
		logger: logger,
	}
}

// Login checks the credentials and starts a new session.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (Session, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return Session{}, apperr.Validation("username or email is required")
	}

	user, err := s.repo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, apperr.NotFound("user does not exist")
		}
		return Session{}, apperr.Internal("failed to load user", err)
	}

	if !auth.VerifyPassword(in.Password, user.PasswordHash) {
		return Session{}, apperr.Unauthorized("incorrect password").WithCode(CodeInvalidCredentials)
	}

	pair, err := s.issuePair(ctx, user, "")
	if err != nil {
		return Session{}, err
	}

	s.events.emit(ctx, types.EventUserLoggedIn, user)
	return Session{User: user.Sanitized(), TokenPair: pair}, nil
}

// Logout drops the stored refresh token so it can no longer be rotated.
func (s *SessionService) Logout(ctx context.Context, user types.User) error {
	if err := s.repo.ClearRefreshToken(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized("invalid access token").WithCode(CodeAccessUserNotFound)
		}
		return apperr.Internal("failed to log out", err)
	}

	s.events.emit(ctx, types.EventUserLoggedOut, user)
	return nil
}

// Refresh exchanges the presented refresh token for a new pair. The token
// must match the one stored on the user; a stale token is rejected.
func (s *SessionService) Refresh(ctx context.Context, token string) (TokenPair, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenPair{}, apperr.Unauthorized("unauthorized request").WithCode(CodeRefreshTokenMissing)
	}

	claims, err := s.tokens.VerifyRefreshToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return TokenPair{}, apperr.Unauthorized("refresh token has expired").WithCode(CodeRefreshTokenExpired)
		}
		return TokenPair{}, apperr.Unauthorized("invalid refresh token").WithCode(CodeRefreshTokenInvalid)
	}

	user, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, apperr.Unauthorized("invalid refresh token").WithCode(CodeRefreshUserNotFound)
		}
		return TokenPair{}, apperr.Internal("failed to load user", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != token {
		s.logger.WarnContext(ctx, "stale refresh token presented", "user_id", user.ID)
		return TokenPair{}, errRefreshReused()
	}

	return s.issuePair(ctx, user, token)
}

func errRefreshReused() error {
	return apperr.Unauthorized("refresh token is expired or used").WithCode(CodeRefreshTokenReused)
}

// Authenticate resolves an access token to the user it was issued for.
func (s *SessionService) Authenticate(ctx context.Context, token string) (types.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.User{}, apperr.Unauthorized("unauthorized request").WithCode(CodeAccessTokenMissing)
	}

	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return types.User{}, apperr.Unauthorized("access token has expired").WithCode(CodeAccessTokenExpired)
		}
		return types.User{}, apperr.Unauthorized("invalid access token").WithCode(CodeAccessTokenInvalid)
	}

	user, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.Unauthorized("invalid access token").WithCode(CodeAccessUserNotFound)
		}
		return types.User{}, apperr.Internal("failed to load user", err)
	}
	return user.Sanitized(), nil
}

// issuePair mints a new pair. With a non-empty previous token the stored
// token is rotated conditionally; otherwise it is overwritten.
func (s *SessionService) issuePair(ctx context.Context, user types.User, previous string) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, apperr.Internal("failed to generate tokens", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, apperr.Internal("failed to generate tokens", err)
	}

	if previous == "" {
		err = s.repo.SetRefreshToken(ctx, user.ID, refresh)
	} else {
		err = s.repo.RotateRefreshToken(ctx, user.ID, previous, refresh)
	}
	if err != nil {
		if errors.Is(err, store.ErrStaleToken) {
			s.logger.WarnContext(ctx, "refresh token rotated concurrently", "user_id", user.ID)
			return TokenPair{}, errRefreshReused()
		}
		return TokenPair{}, apperr.Internal("failed to persist refresh token", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
