package repository

import (
	"context"
	"database/sql"
	"fmt"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

const commentSelect = `SELECT c.id, c.photo_id, c.user_id, c.text, c.created_at, c.updated_at,
	COALESCE(pr.full_name, pr.email, '')
	FROM comments c
	LEFT JOIN profiles pr ON pr.id = c.user_id`

// CommentRepository handles database operations for comments
type CommentRepository struct {
	db *database.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func scanComment(s rowScanner) (*models.Comment, error) {
	var c models.Comment
	if err := s.Scan(&c.ID, &c.PhotoID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt, &c.AuthorName); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a comment to a photo. It returns false when the photo does not exist.
func (r *CommentRepository) Create(ctx context.Context, actor int64, c *models.Comment) (bool, error) {
	var created bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		exists, err := photoExists(ctx, tx, c.PhotoID)
		if err != nil || !exists {
			return err
		}

		ts := now()
		query := "INSERT INTO comments (photo_id, user_id, text, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
		id, err := tx.ExecReturningID(ctx, query, c.PhotoID, actor, c.Text, ts, ts)
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		c.ID = id
		c.UserID = actor
		c.CreatedAt = ts
		c.UpdatedAt = ts
		created = true
		return nil
	})
	return created, err
}

// ListForPhoto returns a photo's comments, oldest first
func (r *CommentRepository) ListForPhoto(ctx context.Context, actor, photoID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		comments, err = queryComments(ctx, tx, commentSelect+" WHERE c.photo_id = ? ORDER BY c.created_at, c.id", photoID)
		return err
	})
	return comments, err
}

func queryComments(ctx context.Context, q database.DBTX, query string, args ...any) ([]models.Comment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// Get retrieves a comment by ID
func (r *CommentRepository) Get(ctx context.Context, actor, id int64) (*models.Comment, error) {
	var comment *models.Comment
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		c, err := scanComment(tx.QueryRowContext(ctx, commentSelect+" WHERE c.id = ?", id))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get comment: %w", err)
		}
		comment = c
		return nil
	})
	return comment, err
}

// Update replaces the text of a comment written by actor. It reports false
// when no such comment exists for that author.
func (r *CommentRepository) Update(ctx context.Context, actor, id int64, text string) (bool, error) {
	var updated bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE comments SET text = ?, updated_at = ? WHERE id = ? AND user_id = ?", text, now(), id, actor)
		if err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}
		updated, err = rowsAffected(res)
		return err
	})
	return updated, err
}

// Delete removes a comment written by actor
func (r *CommentRepository) Delete(ctx context.Context, actor, id int64) (bool, error) {
	var deleted bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE id = ? AND user_id = ?", id, actor)
		if err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		deleted, err = rowsAffected(res)
		return err
	})
	return deleted, err
}

// All returns every comment without a gate check, for operator exports
func (r *CommentRepository) All(ctx context.Context) ([]models.Comment, error) {
	return queryComments(ctx, r.db, commentSelect+" ORDER BY c.id")
}
