package repository

import (
	"context"
	"database/sql"
	"fmt"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

const photoColumns = `p.id, p.filename, p.original_filename, p.caption, p.storage_path, p.content_type,
	p.size_bytes, p.uploaded_by, p.uploaded_at, COALESCE(pr.full_name, pr.email, '')`

const photoFrom = `FROM photos p
	LEFT JOIN profiles pr ON pr.id = p.uploaded_by`

// PhotoRepository handles database operations for photos. Every method except
// All requires the actor to pass the access gate.
type PhotoRepository struct {
	db *database.DB
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *database.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(s rowScanner) (*models.Photo, error) {
	var p models.Photo
	var caption sql.NullString
	if err := s.Scan(&p.ID, &p.Filename, &p.OriginalFilename, &caption, &p.StoragePath, &p.ContentType,
		&p.SizeBytes, &p.UploadedBy, &p.UploadedAt, &p.UploaderName); err != nil {
		return nil, err
	}
	p.Caption = stringPtr(caption)
	return &p, nil
}

// Create inserts a photo row and sets its ID
func (r *PhotoRepository) Create(ctx context.Context, actor int64, p *models.Photo) error {
	return withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		if p.UploadedAt.IsZero() {
			p.UploadedAt = now()
		}
		query := `INSERT INTO photos (filename, original_filename, caption, storage_path, content_type, size_bytes, uploaded_by, uploaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		id, err := tx.ExecReturningID(ctx, query, p.Filename, p.OriginalFilename, nullString(p.Caption),
			p.StoragePath, p.ContentType, p.SizeBytes, actor, p.UploadedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to create photo: %w", err)
		}
		p.ID = id
		p.UploadedBy = actor
		return nil
	})
}

// Get retrieves a photo by ID, or nil when it does not exist
func (r *PhotoRepository) Get(ctx context.Context, actor, id int64) (*models.Photo, error) {
	var photo *models.Photo
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		photo, err = getPhoto(ctx, tx, id)
		return err
	})
	return photo, err
}

func getPhoto(ctx context.Context, q database.DBTX, id int64) (*models.Photo, error) {
	query := "SELECT " + photoColumns + " " + photoFrom + " WHERE p.id = ?"
	p, err := scanPhoto(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

func photoExists(ctx context.Context, q database.DBTX, id int64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check photo: %w", err)
	}
	return n > 0, nil
}

// List returns a page of photos, newest first
func (r *PhotoRepository) List(ctx context.Context, actor int64, limit, offset int) ([]models.Photo, error) {
	var photos []models.Photo
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		query := "SELECT " + photoColumns + " " + photoFrom + " ORDER BY p.uploaded_at DESC, p.id DESC LIMIT ? OFFSET ?"
		var err error
		photos, err = queryPhotos(ctx, tx, query, limit, offset)
		return err
	})
	return photos, err
}

// Count returns the total number of photos
func (r *PhotoRepository) Count(ctx context.Context, actor int64) (int, error) {
	var n int
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&n); err != nil {
			return fmt.Errorf("failed to count photos: %w", err)
		}
		return nil
	})
	return n, err
}

func queryPhotos(ctx context.Context, q database.DBTX, query string, args ...any) ([]models.Photo, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// UpdateCaption sets or clears a photo caption
func (r *PhotoRepository) UpdateCaption(ctx context.Context, actor, id int64, caption *string) (bool, error) {
	var updated bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE photos SET caption = ? WHERE id = ?", nullString(caption), id)
		if err != nil {
			return fmt.Errorf("failed to update caption: %w", err)
		}
		updated, err = rowsAffected(res)
		return err
	})
	return updated, err
}

// Delete removes a photo. Comments, reactions and album entries cascade.
func (r *PhotoRepository) Delete(ctx context.Context, actor, id int64) (bool, error) {
	var deleted bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete photo: %w", err)
		}
		deleted, err = rowsAffected(res)
		return err
	})
	return deleted, err
}

// All returns every photo without a gate check, for operator exports
func (r *PhotoRepository) All(ctx context.Context) ([]models.Photo, error) {
	return queryPhotos(ctx, r.db, "SELECT "+photoColumns+" "+photoFrom+" ORDER BY p.id")
}
