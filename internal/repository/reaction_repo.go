package repository

import (
	"context"
	"database/sql"
	"fmt"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

// ReactionRepository handles database operations for reactions
type ReactionRepository struct {
	db *database.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *database.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// ToggleResult is the outcome of a toggle together with the reaction now held, if any
type ToggleResult struct {
	Outcome  models.ReactionOutcome
	Reaction *models.Reaction
}

// Toggle applies emoji for actor on a photo: no reaction becomes emoji, the
// same emoji is removed, a different emoji replaces the old one. It returns
// nil when the photo does not exist. Concurrent toggles by the same user are
// resolved by whichever commits last.
func (r *ReactionRepository) Toggle(ctx context.Context, actor, photoID int64, emoji string) (*ToggleResult, error) {
	var result *ToggleResult
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		exists, err := photoExists(ctx, tx, photoID)
		if err != nil || !exists {
			return err
		}

		current, err := getReaction(ctx, tx, photoID, actor)
		if err != nil {
			return err
		}

		switch {
		case current == nil:
			reaction, err := insertReaction(ctx, tx, photoID, actor, emoji)
			if err != nil {
				return err
			}
			result = &ToggleResult{Outcome: models.ReactionAdded, Reaction: reaction}
		case current.Emoji == emoji:
			if _, err := tx.ExecContext(ctx, "DELETE FROM reactions WHERE id = ?", current.ID); err != nil {
				return fmt.Errorf("failed to delete reaction: %w", err)
			}
			result = &ToggleResult{Outcome: models.ReactionRemoved}
		default:
			if _, err := tx.ExecContext(ctx, "UPDATE reactions SET emoji = ? WHERE id = ?", emoji, current.ID); err != nil {
				return fmt.Errorf("failed to update reaction: %w", err)
			}
			current.Emoji = emoji
			result = &ToggleResult{Outcome: models.ReactionReplaced, Reaction: current}
		}
		return nil
	})
	return result, err
}

func insertReaction(ctx context.Context, tx *database.Tx, photoID, userID int64, emoji string) (*models.Reaction, error) {
	ts := now()
	id, err := tx.ExecReturningID(ctx, "INSERT INTO reactions (photo_id, user_id, emoji, created_at) VALUES (?, ?, ?, ?)",
		photoID, userID, emoji, ts)
	if err != nil {
		if translate(tx, err) == ErrDuplicate {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create reaction: %w", err)
	}
	return &models.Reaction{ID: id, PhotoID: photoID, UserID: userID, Emoji: emoji, CreatedAt: ts}, nil
}

func getReaction(ctx context.Context, q database.DBTX, photoID, userID int64) (*models.Reaction, error) {
	query := "SELECT id, photo_id, user_id, emoji, created_at FROM reactions WHERE photo_id = ? AND user_id = ?"
	var rx models.Reaction
	err := q.QueryRowContext(ctx, query, photoID, userID).Scan(&rx.ID, &rx.PhotoID, &rx.UserID, &rx.Emoji, &rx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction: %w", err)
	}
	return &rx, nil
}

// Get returns actor's reaction on a photo, or nil
func (r *ReactionRepository) Get(ctx context.Context, actor, photoID int64) (*models.Reaction, error) {
	var reaction *models.Reaction
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		reaction, err = getReaction(ctx, tx, photoID, actor)
		return err
	})
	return reaction, err
}

// ListForPhoto returns all reactions on a photo
func (r *ReactionRepository) ListForPhoto(ctx context.Context, actor, photoID int64) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		reactions, err = queryReactions(ctx, tx,
			"SELECT id, photo_id, user_id, emoji, created_at FROM reactions WHERE photo_id = ? ORDER BY created_at, id", photoID)
		return err
	})
	return reactions, err
}

// Summary counts reactions on a photo by emoji, most used first
func (r *ReactionRepository) Summary(ctx context.Context, actor, photoID int64) ([]models.ReactionCount, error) {
	var counts []models.ReactionCount
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		query := `SELECT emoji, COUNT(*) AS n FROM reactions WHERE photo_id = ?
			GROUP BY emoji ORDER BY n DESC, emoji`
		rows, err := tx.QueryContext(ctx, query, photoID)
		if err != nil {
			return fmt.Errorf("failed to summarise reactions: %w", err)
		}
		defer rows.Close()

		counts = []models.ReactionCount{}
		for rows.Next() {
			var c models.ReactionCount
			if err := rows.Scan(&c.Emoji, &c.Count); err != nil {
				return fmt.Errorf("failed to scan reaction count: %w", err)
			}
			counts = append(counts, c)
		}
		return rows.Err()
	})
	return counts, err
}

func queryReactions(ctx context.Context, q database.DBTX, query string, args ...any) ([]models.Reaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	reactions := []models.Reaction{}
	for rows.Next() {
		var rx models.Reaction
		if err := rows.Scan(&rx.ID, &rx.PhotoID, &rx.UserID, &rx.Emoji, &rx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		reactions = append(reactions, rx)
	}
	return reactions, rows.Err()
}

// All returns every reaction without a gate check, for operator exports
func (r *ReactionRepository) All(ctx context.Context) ([]models.Reaction, error) {
	return queryReactions(ctx, r.db, "SELECT id, photo_id, user_id, emoji, created_at FROM reactions ORDER BY id")
}
