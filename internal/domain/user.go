package domain

import "time"

// User is the canonical user record. The auth core only writes
// CurrentRefreshToken and PasswordHash; everything else is profile data
// owned by the wider platform.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username" validate:"required,min=3"`
	Email         string `json:"email" validate:"required,email"`
	FullName      string `json:"full_name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	PasswordHash  string `json:"-"`

	// CurrentRefreshToken holds the single refresh token that is valid for
	// this user right now. Empty means no active session. Overwritten on
	// every login and rotation, cleared on logout.
	CurrentRefreshToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
