package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

// ErrOrderMismatch is returned by Reorder when the supplied IDs are not exactly
// the album's current photos
var ErrOrderMismatch = errors.New("photo order does not match album contents")

const albumSelect = `SELECT a.id, a.name, a.description, a.created_by, a.share_token, a.is_public,
	a.expires_at, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM album_photos ap WHERE ap.album_id = a.id)
	FROM albums a`

// AlbumRepository handles database operations for albums and their photos.
// GetByShareToken and PhotosForShare are the only methods without a gate check.
type AlbumRepository struct {
	db *database.DB
}

// NewAlbumRepository creates a new album repository
func NewAlbumRepository(db *database.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

func scanAlbum(s rowScanner) (*models.Album, error) {
	var a models.Album
	var description sql.NullString
	var expiresAt sql.NullTime
	if err := s.Scan(&a.ID, &a.Name, &description, &a.CreatedBy, &a.ShareToken, &a.IsPublic,
		&expiresAt, &a.CreatedAt, &a.UpdatedAt, &a.PhotoCount); err != nil {
		return nil, err
	}
	a.Description = stringPtr(description)
	a.ExpiresAt = timePtr(expiresAt)
	return &a, nil
}

func getAlbum(ctx context.Context, q database.DBTX, where string, arg any) (*models.Album, error) {
	a, err := scanAlbum(q.QueryRowContext(ctx, albumSelect+" WHERE "+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", err)
	}
	return a, nil
}

// Create inserts an album owned by actor and sets its ID
func (r *AlbumRepository) Create(ctx context.Context, actor int64, a *models.Album) error {
	return withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		ts := now()
		query := `INSERT INTO albums (name, description, created_by, share_token, is_public, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		id, err := tx.ExecReturningID(ctx, query, a.Name, nullString(a.Description), actor, a.ShareToken,
			a.IsPublic, nullTime(a.ExpiresAt), ts, ts)
		if err != nil {
			if translate(tx, err) == ErrDuplicate {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create album: %w", err)
		}
		a.ID = id
		a.CreatedBy = actor
		a.CreatedAt = ts
		a.UpdatedAt = ts
		return nil
	})
}

// Get retrieves an album by ID
func (r *AlbumRepository) Get(ctx context.Context, actor, id int64) (*models.Album, error) {
	var album *models.Album
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		album, err = getAlbum(ctx, tx, "a.id = ?", id)
		return err
	})
	return album, err
}

// List returns every album, most recently updated first
func (r *AlbumRepository) List(ctx context.Context, actor int64) ([]models.Album, error) {
	var albums []models.Album
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		albums, err = queryAlbums(ctx, tx, albumSelect+" ORDER BY a.updated_at DESC, a.id DESC")
		return err
	})
	return albums, err
}

func queryAlbums(ctx context.Context, q database.DBTX, query string, args ...any) ([]models.Album, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := []models.Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, *a)
	}
	return albums, rows.Err()
}

// Update writes the editable fields of a
func (r *AlbumRepository) Update(ctx context.Context, actor int64, a *models.Album) (bool, error) {
	var updated bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		a.UpdatedAt = now()
		query := `UPDATE albums SET name = ?, description = ?, is_public = ?, expires_at = ?, updated_at = ?
			WHERE id = ?`
		res, err := tx.ExecContext(ctx, query, a.Name, nullString(a.Description), a.IsPublic, nullTime(a.ExpiresAt), a.UpdatedAt, a.ID)
		if err != nil {
			return fmt.Errorf("failed to update album: %w", err)
		}
		updated, err = rowsAffected(res)
		return err
	})
	return updated, err
}

// SetShareToken replaces the share token, invalidating old public links
func (r *AlbumRepository) SetShareToken(ctx context.Context, actor, id int64, token string) (bool, error) {
	var updated bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE albums SET share_token = ?, updated_at = ? WHERE id = ?", token, now(), id)
		if err != nil {
			if translate(tx, err) == ErrDuplicate {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to set share token: %w", err)
		}
		updated, err = rowsAffected(res)
		return err
	})
	return updated, err
}

// Delete removes an album. Its photos are kept.
func (r *AlbumRepository) Delete(ctx context.Context, actor, id int64) (bool, error) {
	var deleted bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}
		deleted, err = rowsAffected(res)
		return err
	})
	return deleted, err
}

// AddPhoto appends a photo to the end of an album. It returns ErrNotFound when
// the photo does not exist and ErrDuplicate when it is already in the album.
func (r *AlbumRepository) AddPhoto(ctx context.Context, actor, albumID, photoID int64) (*models.AlbumPhoto, error) {
	var entry *models.AlbumPhoto
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		exists, err := photoExists(ctx, tx, photoID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		var position int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), 0) + 1 FROM album_photos WHERE album_id = ?", albumID).Scan(&position); err != nil {
			return fmt.Errorf("failed to read album position: %w", err)
		}

		ts := now()
		_, err = tx.ExecContext(ctx, "INSERT INTO album_photos (album_id, photo_id, position, added_at) VALUES (?, ?, ?, ?)",
			albumID, photoID, position, ts)
		if err != nil {
			if translate(tx, err) == ErrDuplicate {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to add photo to album: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE albums SET updated_at = ? WHERE id = ?", ts, albumID); err != nil {
			return fmt.Errorf("failed to touch album: %w", err)
		}
		entry = &models.AlbumPhoto{AlbumID: albumID, PhotoID: photoID, Position: position, AddedAt: ts}
		return nil
	})
	return entry, err
}

// RemovePhoto takes a photo out of an album
func (r *AlbumRepository) RemovePhoto(ctx context.Context, actor, albumID, photoID int64) (bool, error) {
	var removed bool
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM album_photos WHERE album_id = ? AND photo_id = ?", albumID, photoID)
		if err != nil {
			return fmt.Errorf("failed to remove photo from album: %w", err)
		}
		removed, err = rowsAffected(res)
		if err != nil || !removed {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE albums SET updated_at = ? WHERE id = ?", now(), albumID)
		return err
	})
	return removed, err
}

// Reorder assigns positions 1..n in the order of photoIDs, which must list
// every photo of the album exactly once.
func (r *AlbumRepository) Reorder(ctx context.Context, actor, albumID int64, photoIDs []int64) error {
	return withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		current, err := albumPhotoIDs(ctx, tx, albumID)
		if err != nil {
			return err
		}
		if !sameSet(current, photoIDs) {
			return ErrOrderMismatch
		}

		for i, photoID := range photoIDs {
			if _, err := tx.ExecContext(ctx, "UPDATE album_photos SET position = ? WHERE album_id = ? AND photo_id = ?",
				i+1, albumID, photoID); err != nil {
				return fmt.Errorf("failed to reorder album: %w", err)
			}
		}
		_, err = tx.ExecContext(ctx, "UPDATE albums SET updated_at = ? WHERE id = ?", now(), albumID)
		return err
	})
}

func albumPhotoIDs(ctx context.Context, q database.DBTX, albumID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, "SELECT photo_id FROM album_photos WHERE album_id = ?", albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album photos: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func sameSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int64]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}

const albumPhotosQuery = "SELECT " + photoColumns + " " + photoFrom + `
	INNER JOIN album_photos ap ON ap.photo_id = p.id
	WHERE ap.album_id = ?
	ORDER BY ap.position, p.id`

// Photos returns an album's photos in display order
func (r *AlbumRepository) Photos(ctx context.Context, actor, albumID int64) ([]models.Photo, error) {
	var photos []models.Photo
	err := withGate(ctx, r.db, actor, func(tx *database.Tx) error {
		var err error
		photos, err = queryPhotos(ctx, tx, albumPhotosQuery, albumID)
		return err
	})
	return photos, err
}

// GetByShareToken looks up an album for a public link. Callers must check
// Album.IsShareable before exposing it.
func (r *AlbumRepository) GetByShareToken(ctx context.Context, token string) (*models.Album, error) {
	return getAlbum(ctx, r.db, "a.share_token = ?", token)
}

// PhotosForShare returns an album's photos for a public link
func (r *AlbumRepository) PhotosForShare(ctx context.Context, albumID int64) ([]models.Photo, error) {
	return queryPhotos(ctx, r.db, albumPhotosQuery, albumID)
}

// All returns every album without a gate check, for operator exports
func (r *AlbumRepository) All(ctx context.Context) ([]models.Album, error) {
	return queryAlbums(ctx, r.db, albumSelect+" ORDER BY a.id")
}

// AllEntries returns every album membership row, for operator exports
func (r *AlbumRepository) AllEntries(ctx context.Context) ([]models.AlbumPhoto, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT album_id, photo_id, position, added_at FROM album_photos ORDER BY album_id, position")
	if err != nil {
		return nil, fmt.Errorf("failed to query album photos: %w", err)
	}
	defer rows.Close()

	entries := []models.AlbumPhoto{}
	for rows.Next() {
		var e models.AlbumPhoto
		if err := rows.Scan(&e.AlbumID, &e.PhotoID, &e.Position, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan album photo: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
