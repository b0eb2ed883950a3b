package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pranganb/vtube/internal/apperr"
	"github.com/pranganb/vtube/internal/auth"
	"github.com/pranganb/vtube/internal/media"
	"github.com/pranganb/vtube/internal/store"
	"github.com/pranganb/vtube/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (types.User, error)
	Create(ctx context.Context, user types.NewUser) (types.User, error)
	UpdateAccount(ctx context.Context, id string, update types.AccountUpdate) (types.User, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	RotateRefreshToken(ctx context.Context, id, current, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, plain string) error
	SetAvatar(ctx context.Context, id, url string) (types.User, error)
	SetCoverImage(ctx context.Context, id, url string) (types.User, error)
}

// MediaUploader pushes staged files to the media host.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (media.Upload, error)
	Delete(ctx context.Context, key string) error
}

// RegisterInput is the registration form. File fields hold local temp paths.
type RegisterInput struct {
	Fullname       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo     UserRepository
	uploader MediaUploader
	events   *Events
	logger   *slog.Logger
}

func NewUserService(repo UserRepository, uploader MediaUploader, events *Events, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:     repo,
		uploader: uploader,
		events:   events,
		logger:   logger,
	}
}

// GetByID returns the user without credential fields.
func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound("user does not exist")
		}
		return types.User{}, apperr.Internal("failed to load user", err)
	}
	return user.Sanitized(), nil
}

// Register validates the form, uploads the avatar (and optional cover image)
// and creates the account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Fullname == "" || in.Email == "" || in.Username == "" || strings.TrimSpace(in.Password) == "" {
		return types.User{}, apperr.Validation("all fields are required")
	}

	if _, err := s.repo.GetByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		return types.User{}, apperr.Conflict("user with this username or email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, apperr.Internal("failed to check user", err)
	}

	if strings.TrimSpace(in.AvatarPath) == "" {
		return types.User{}, apperr.Validation("avatar file is required")
	}

	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		s.logger.WarnContext(ctx, "avatar upload failed", "error", err)
		return types.User{}, apperr.Validation("avatar file is required")
	}

	cover, err := s.uploader.Upload(ctx, in.CoverImagePath)
	if err != nil && !errors.Is(err, media.ErrNoFile) {
		s.logger.WarnContext(ctx, "cover image upload failed, continuing without it", "error", err)
	}

	created, err := s.repo.Create(ctx, types.NewUser{
		Username:   strings.ToLower(in.Username),
		Email:      in.Email,
		Fullname:   in.Fullname,
		Password:   in.Password,
		Avatar:     avatar.URL,
		CoverImage: cover.URL,
	})
	if err != nil {
		s.discardUploads(ctx, avatar.Key, cover.Key)
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, apperr.Conflict("user with this username or email already exists")
		}
		return types.User{}, apperr.Internal("something went wrong while registering the user", err)
	}

	user, err := s.repo.GetByID(ctx, created.ID)
	if err != nil {
		return types.User{}, apperr.Internal("something went wrong while registering the user", err)
	}

	s.events.emit(ctx, types.EventUserRegistered, user)
	return user.Sanitized(), nil
}

// ChangePassword verifies the old password and stores the new one.
func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized("invalid access token")
		}
		return apperr.Internal("failed to load user", err)
	}

	if !auth.VerifyPassword(in.OldPassword, user.PasswordHash) {
		return apperr.Validation("incorrect old password")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperr.Validation("passwords do not match")
	}
	if strings.TrimSpace(in.NewPassword) == "" {
		return apperr.Validation("new password is required")
	}

	if err := s.repo.SetPassword(ctx, user.ID, in.NewPassword); err != nil {
		return apperr.Internal("failed to change password", err)
	}

	s.events.emit(ctx, types.EventUserPasswordChanged, user)
	return nil
}

// UpdateAccount replaces fullname, username and email.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, in types.AccountUpdate) (types.User, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.TrimSpace(in.Email)
	if in.Fullname == "" || in.Username == "" || in.Email == "" {
		return types.User{}, apperr.Validation("all fields are required")
	}

	user, err := s.repo.UpdateAccount(ctx, userID, in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.User{}, apperr.Conflict("username or email is already taken")
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, apperr.NotFound("user does not exist")
		default:
			return types.User{}, apperr.Internal("failed to update account", err)
		}
	}

	s.events.emit(ctx, types.EventUserAccountUpdated, user)
	return user.Sanitized(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID, localPath string) (types.User, error) {
	user, err := s.replaceImage(ctx, userID, localPath, "avatar", s.repo.SetAvatar)
	if err != nil {
		return types.User{}, err
	}
	s.events.emit(ctx, types.EventUserAvatarUpdated, user)
	return user, nil
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID, localPath string) (types.User, error) {
	user, err := s.replaceImage(ctx, userID, localPath, "cover image", s.repo.SetCoverImage)
	if err != nil {
		return types.User{}, err
	}
	s.events.emit(ctx, types.EventUserCoverImageUpdated, user)
	return user, nil
}

func (s *UserService) replaceImage(
	ctx context.Context,
	userID, localPath, label string,
	set func(ctx context.Context, id, url string) (types.User, error),
) (types.User, error) {
	if strings.TrimSpace(localPath) == "" {
		return types.User{}, apperr.Validation(label + " file is missing")
	}

	up, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		s.logger.WarnContext(ctx, "image upload failed", "field", label, "error", err)
		return types.User{}, apperr.Validation("error while uploading " + label)
	}

	user, err := set(ctx, userID, up.URL)
	if err != nil {
		s.discardUploads(ctx, up.Key)
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound("user does not exist")
		}
		return types.User{}, apperr.Internal("failed to update "+label, err)
	}
	return user.Sanitized(), nil
}

func (s *UserService) discardUploads(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned upload", "key", key, "error", err)
		}
	}
}
