package types

import "time"

// User represents an account in the system.
// It contains identity, media references, and session metadata.
type User struct {
	// ID is the unique identifier of the user (UUID string).
	ID string `json:"id" db:"id"`

	// Username is the unique login name, always stored lowercase.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// Fullname is the user's display name.
	Fullname string `json:"fullname" db:"fullname"`

	// Avatar is the public URL of the user's avatar image.
	// It is always set once registration succeeds.
	Avatar string `json:"avatar" db:"avatar"`

	// CoverImage is the public URL of the channel cover image.
	// Empty when the user never uploaded one.
	CoverImage string `json:"coverImage" db:"cover_image"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// RefreshToken is the single currently valid refresh token.
	// Overwritten on every login and refresh, cleared on logout.
	// This field is never exposed in API responses.
	RefreshToken string `json:"-" db:"refresh_token"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Sanitized returns a copy of the user without credential material.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

// NewUser carries the fields needed to create an account.
// Password is plaintext; the store hashes it before writing.
type NewUser struct {
	Username   string
	Email      string
	Fullname   string
	Password   string
	Avatar     string
	CoverImage string
}

// AccountUpdate carries the editable profile fields of an account.
type AccountUpdate struct {
	Fullname string
	Username string
	Email    string
}
