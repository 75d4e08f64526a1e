package repository

import (
	"context"
	"database/sql"
	"fmt"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	q database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(q database.DBTX) *ProfileRepository {
	return &ProfileRepository{q: q}
}

// InTx returns a repository bound to tx
func (r *ProfileRepository) InTx(tx *database.Tx) *ProfileRepository {
	return &ProfileRepository{q: tx}
}

// Ensure inserts a profile for the identity unless one exists. An existing
// profile is left untouched. It reports whether a row was created.
func (r *ProfileRepository) Ensure(ctx context.Context, id int64, email string, fullName *string) (bool, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	ts := now()
	query := "INSERT INTO profiles (id, email, full_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.q.ExecContext(ctx, query, id, email, nullString(fullName), ts, ts); err != nil {
		if translate(r.q, err) == ErrDuplicate {
			return false, nil
		}
		return false, fmt.Errorf("failed to create profile: %w", err)
	}
	return true, nil
}

// Get retrieves a profile by identity ID
func (r *ProfileRepository) Get(ctx context.Context, id int64) (*models.Profile, error) {
	query := "SELECT id, email, full_name, avatar_url, created_at, updated_at FROM profiles WHERE id = ?"
	p, err := scanProfile(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// List returns every profile
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, email, full_name, avatar_url, created_at, updated_at FROM profiles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpdateFullName sets or clears the display name
func (r *ProfileRepository) UpdateFullName(ctx context.Context, id int64, fullName *string) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE profiles SET full_name = ?, updated_at = ? WHERE id = ?", nullString(fullName), now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	return rowsAffected(res)
}

// SetAvatar records the storage path of the profile picture
func (r *ProfileRepository) SetAvatar(ctx context.Context, id int64, path string) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE profiles SET avatar_url = ?, updated_at = ? WHERE id = ?", path, now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to set avatar: %w", err)
	}
	return rowsAffected(res)
}

func scanProfile(s rowScanner) (*models.Profile, error) {
	var p models.Profile
	var fullName, avatar sql.NullString
	if err := s.Scan(&p.ID, &p.Email, &fullName, &avatar, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.FullName = stringPtr(fullName)
	p.AvatarURL = stringPtr(avatar)
	return &p, nil
}
