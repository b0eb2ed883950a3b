package types

import "time"

// Account event types published after successful account writes.
const (
	EventUserRegistered        = "user.registered"
	EventUserLoggedIn          = "user.logged_in"
	EventUserLoggedOut         = "user.logged_out"
	EventUserPasswordChanged   = "user.password_changed"
	EventUserAccountUpdated    = "user.account_updated"
	EventUserAvatarUpdated     = "user.avatar_updated"
	EventUserCoverImageUpdated = "user.cover_image_updated"
)

// AccountEvent is the JSON payload of an account event message.
type AccountEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurredAt"`
}
