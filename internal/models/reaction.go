package models

import "time"

// HeartEmoji is the reaction set by a double tap
const HeartEmoji = "❤️"

// Reaction is the single emoji a user has left on a photo
type Reaction struct {
	ID        int64     `json:"id"`
	PhotoID   int64     `json:"photo_id"`
	UserID    int64     `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionOutcome tells the caller what a toggle did
type ReactionOutcome string

const (
	ReactionAdded    ReactionOutcome = "added"
	ReactionReplaced ReactionOutcome = "replaced"
	ReactionRemoved  ReactionOutcome = "removed"
)

// ReactionCount is one line of a photo's reaction summary
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}
