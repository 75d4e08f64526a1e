package models

import "time"

// Identity is an authenticated account. It exists for every email that has
// signed in, whether or not that email is an active family member.
type Identity struct {
	ID           int64
	Email        string
	CreatedAt    time.Time
	LastSignInAt *time.Time
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// LoginCodePurpose distinguishes sign-in links from invitation links
type LoginCodePurpose string

const (
	PurposeLogin  LoginCodePurpose = "login"
	PurposeInvite LoginCodePurpose = "invite"
)

// LoginCode is the server-side record of an emailed one-time code
type LoginCode struct {
	ID        string
	Email     string
	Purpose   LoginCodePurpose
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the code has expired
func (c *LoginCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsUsed reports whether the code was already exchanged
func (c *LoginCode) IsUsed() bool {
	return c.UsedAt != nil
}

// Profile is the display information for an identity
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back to the email when no name is set
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}
