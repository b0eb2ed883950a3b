package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pranganb/vtube/internal/apperr"
	"github.com/pranganb/vtube/types"
)

type contextKey string

const (
	contextUserKey   contextKey = "user"
	contextLoggerKey contextKey = "logger"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// userFromContext returns the identity attached by RequireAuth.
func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok && user.ID != ""
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextLoggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// writeError is the single place where errors become responses. Anything
// that is not an *apperr.Error is reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)

	if appErr.Status >= http.StatusInternalServerError {
		loggerFromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"code", appErr.Code,
			"error", err,
		)
	}

	details := appErr.Details
	if details == nil {
		details = []string{}
	}
	writeJSON(w, appErr.Status, ErrorResponse{
		StatusCode: appErr.Status,
		Code:       appErr.Code,
		Message:    appErr.Message,
		Success:    false,
		Errors:     details,
	})
}

// decodeJSON decodes an optional JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "ok")
}
