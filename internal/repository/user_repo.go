package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

// UserRepository handles database operations for identities, sessions and login codes
type UserRepository struct {
	q database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(q database.DBTX) *UserRepository {
	return &UserRepository{q: q}
}

// InTx returns a repository bound to tx
func (r *UserRepository) InTx(tx *database.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// GetOrCreateByEmail returns the identity for email, creating it on first sign-in
func (r *UserRepository) GetOrCreateByEmail(ctx context.Context, email string) (*models.Identity, error) {
	identity, err := r.GetByEmail(ctx, email)
	if err != nil || identity != nil {
		return identity, err
	}

	createdAt := now()
	id, err := r.q.ExecReturningID(ctx, "INSERT INTO users (email, created_at) VALUES (?, ?)", email, createdAt)
	if err != nil {
		if translate(r.q, err) == ErrDuplicate {
			// Lost a race with a concurrent first sign-in
			return r.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.Identity{ID: id, Email: email, CreatedAt: createdAt}, nil
}

// GetByEmail retrieves an identity by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByID retrieves an identity by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.Identity, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.Identity, error) {
	query := "SELECT id, email, created_at, last_sign_in_at FROM users WHERE " + where
	identity := &models.Identity{}
	var lastSignIn sql.NullTime
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&identity.ID, &identity.Email, &identity.CreatedAt, &lastSignIn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	identity.LastSignInAt = timePtr(lastSignIn)
	return identity, nil
}

// TouchSignIn records a successful sign-in
func (r *UserRepository) TouchSignIn(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, "UPDATE users SET last_sign_in_at = ? WHERE id = ?", now(), id); err != nil {
		return fmt.Errorf("failed to record sign-in: %w", err)
	}
	return nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now(),
	}

	query := "INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"
	if _, err := r.q.ExecContext(ctx, query, session.ID, session.UserID, session.ExpiresAt, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := "SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?"
	session := &models.Session{}
	err := r.q.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions that expired before cutoff
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// CreateLoginCode stores the server-side half of an emailed code
func (r *UserRepository) CreateLoginCode(ctx context.Context, code *models.LoginCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = now()
	}
	query := "INSERT INTO login_codes (id, email, purpose, expires_at, created_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.q.ExecContext(ctx, query, code.ID, code.Email, string(code.Purpose), code.ExpiresAt.UTC(), code.CreatedAt); err != nil {
		return fmt.Errorf("failed to create login code: %w", err)
	}
	return nil
}

// ConsumeLoginCode marks a code used. It reports false when the code is
// unknown, belongs to another email, has expired, or was already used.
func (r *UserRepository) ConsumeLoginCode(ctx context.Context, id, email string, at time.Time) (bool, error) {
	query := `UPDATE login_codes SET used_at = ?
		WHERE id = ? AND email = ? AND used_at IS NULL AND expires_at > ?`
	at = at.UTC()
	res, err := r.q.ExecContext(ctx, query, at, id, email, at)
	if err != nil {
		return false, fmt.Errorf("failed to consume login code: %w", err)
	}
	return rowsAffected(res)
}

// DeleteExpiredLoginCodes removes used codes and codes that expired before cutoff
func (r *UserRepository) DeleteExpiredLoginCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM login_codes WHERE expires_at < ? OR used_at IS NOT NULL", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login codes: %w", err)
	}
	return res.RowsAffected()
}
