package models

import "time"

// Album groups photos behind a share token
type Album struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	ShareToken  string     `json:"share_token"`
	IsPublic    bool       `json:"is_public"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PhotoCount  int        `json:"photo_count"`
}

// IsShareable reports whether the share token currently grants public access
func (a *Album) IsShareable(now time.Time) bool {
	if !a.IsPublic {
		return false
	}
	return a.ExpiresAt == nil || now.Before(*a.ExpiresAt)
}

// AlbumPhoto places a photo in an album
type AlbumPhoto struct {
	AlbumID  int64     `json:"album_id"`
	PhotoID  int64     `json:"photo_id"`
	Position int       `json:"position"`
	AddedAt  time.Time `json:"added_at"`
}
