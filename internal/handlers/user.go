package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pranganb/vtube/internal/apperr"
	"github.com/pranganb/vtube/internal/services"
	"github.com/pranganb/vtube/types"
)

const (
	formFieldAvatar     = "avatar"
	formFieldCoverImage = "coverImage"
	formFieldFullname   = "fullname"
	formFieldEmail      = "email"
	formFieldUsername   = "username"
	formFieldPassword   = "password"
)

// Accounts is the account side of the user API.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (types.User, error)
	ChangePassword(ctx context.Context, userID string, in services.ChangePasswordInput) error
	UpdateAccount(ctx context.Context, userID string, in types.AccountUpdate) (types.User, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (types.User, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (types.User, error)
}

// Sessions is the login/logout/refresh side of the user API.
type Sessions interface {
	Authenticator
	Login(ctx context.Context, in services.LoginInput) (services.Session, error)
	Logout(ctx context.Context, user types.User) error
	Refresh(ctx context.Context, token string) (services.TokenPair, error)
}

// Profiles serves the aggregated read views.
type Profiles interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (types.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]types.WatchHistoryEntry, error)
}

// UserHandler provides HTTP handlers for the user resource.
type UserHandler struct {
	accounts Accounts
	sessions Sessions
	profiles Profiles
	cookies  CookieOptions
	uploads  UploadOptions
}

func NewUserHandler(accounts Accounts, sessions Sessions, profiles Profiles, cookies CookieOptions, uploads UploadOptions) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		sessions: sessions,
		profiles: profiles,
		cookies:  cookies,
		uploads:  uploads,
	}
}

// UserRouter registers user routes on the given router. limiter may be nil.
func UserRouter(r chi.Router, h *UserHandler, limiter func(http.Handler) http.Handler) {
	public := r
	if limiter != nil {
		public = r.With(limiter)
	}
	public.Post("/register", h.Register)
	public.Post("/login", h.Login)
	public.Post("/refresh-token", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.sessions))

		r.Post("/logout", h.Logout)
		r.Post("/change_password", h.ChangePassword)
		r.Get("/current-user", h.CurrentUser)
		r.Patch("/update-account", h.UpdateAccount)
		r.Patch("/update-avatar", h.UpdateAvatar)
		r.Patch("/update-coverImage", h.UpdateCoverImage)
		r.Get("/c/{username}", h.ChannelProfile)
		r.Get("/watch-history", h.WatchHistory)
	})
}

// Register creates an account from a multipart form.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	files, err := h.uploads.stageMultipart(w, r, formFieldAvatar, formFieldCoverImage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer files.cleanup()

	user, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Fullname:       r.FormValue(formFieldFullname),
		Email:          r.FormValue(formFieldEmail),
		Username:       r.FormValue(formFieldUsername),
		Password:       r.FormValue(formFieldPassword),
		AvatarPath:     files[formFieldAvatar],
		CoverImagePath: files[formFieldCoverImage],
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, user, "user registered successfully")
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.sessions.Login(r.Context(), services.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.set(w, sess.AccessToken, sess.RefreshToken)
	writeData(w, http.StatusOK, sess, "user logged in successfully")
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	if err := h.sessions.Logout(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.clear(w)
	writeData(w, http.StatusOK, map[string]any{}, "user logged out")
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates the session pair. The cookie wins over the body.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(cookieRefreshToken); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req RefreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.set(w, pair.AccessToken, pair.RefreshToken)
	writeData(w, http.StatusOK, pair, "access token refreshed")
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.accounts.ChangePassword(r.Context(), user.ID, services.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{}, "password changed successfully")
}

func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}
	writeData(w, http.StatusOK, user, "current user fetched successfully")
}

type UpdateAccountRequest struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	var req UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.accounts.UpdateAccount(r.Context(), user.ID, types.AccountUpdate{
		Fullname: req.Fullname,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, updated, "account details updated successfully")
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, formFieldAvatar, h.accounts.UpdateAvatar, "avatar updated successfully")
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, formFieldCoverImage, h.accounts.UpdateCoverImage, "cover image updated successfully")
}

func (h *UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID, localPath string) (types.User, error),
	message string,
) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	files, err := h.uploads.stageMultipart(w, r, field)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer files.cleanup()

	updated, err := update(r.Context(), user.ID, files[field])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, updated, message)
}

func (h *UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	profile, err := h.profiles.ChannelProfile(r.Context(), chi.URLParam(r, "username"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, profile, "user channel fetched successfully")
}

func (h *UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	history, err := h.profiles.WatchHistory(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, history, "watch history fetched successfully")
}
