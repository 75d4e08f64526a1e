package repository

import (
	"context"
	"database/sql"
	"fmt"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

const memberColumns = `fm.id, fm.user_id, fm.email, fm.full_name, fm.status, fm.invited_at,
	fm.accepted_at, fm.invitation_token, fm.invited_by,
	COALESCE(inv.full_name, inv.email, '')`

const memberFrom = `FROM family_members fm
	LEFT JOIN family_members inv ON inv.id = fm.invited_by`

// MemberRepository handles database operations for the family membership list
type MemberRepository struct {
	q database.DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(q database.DBTX) *MemberRepository {
	return &MemberRepository{q: q}
}

// InTx returns a repository bound to tx
func (r *MemberRepository) InTx(tx *database.Tx) *MemberRepository {
	return &MemberRepository{q: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(s rowScanner) (*models.FamilyMember, error) {
	var (
		m          models.FamilyMember
		userID     sql.NullInt64
		fullName   sql.NullString
		acceptedAt sql.NullTime
		invitedBy  sql.NullInt64
		status     string
	)
	if err := s.Scan(&m.ID, &userID, &m.Email, &fullName, &status, &m.InvitedAt,
		&acceptedAt, &m.InvitationToken, &invitedBy, &m.InviterName); err != nil {
		return nil, err
	}
	m.UserID = int64Ptr(userID)
	m.FullName = stringPtr(fullName)
	m.Status = models.MemberStatus(status)
	m.AcceptedAt = timePtr(acceptedAt)
	m.InvitedBy = int64Ptr(invitedBy)
	return &m, nil
}

// Create inserts a new member row and sets its ID. A row that already exists
// for the email or token yields ErrDuplicate.
func (r *MemberRepository) Create(ctx context.Context, m *models.FamilyMember) error {
	if m.InvitedAt.IsZero() {
		m.InvitedAt = now()
	}
	query := `INSERT INTO family_members (user_id, email, full_name, status, invited_at, accepted_at, invitation_token, invited_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.q.ExecReturningID(ctx, query,
		nullInt64(m.UserID), m.Email, nullString(m.FullName), string(m.Status), m.InvitedAt.UTC(),
		nullTime(m.AcceptedAt), m.InvitationToken, nullInt64(m.InvitedBy))
	if err != nil {
		if translate(r.q, err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create family member: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MemberRepository) getOne(ctx context.Context, where string, arg any) (*models.FamilyMember, error) {
	query := "SELECT " + memberColumns + " " + memberFrom + " WHERE " + where
	m, err := scanMember(r.q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return m, nil
}

// GetByEmail retrieves a member by normalized email
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*models.FamilyMember, error) {
	return r.getOne(ctx, "fm.email = ?", email)
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.FamilyMember, error) {
	return r.getOne(ctx, "fm.id = ?", id)
}

// GetByToken retrieves a member by invitation token
func (r *MemberRepository) GetByToken(ctx context.Context, token string) (*models.FamilyMember, error) {
	return r.getOne(ctx, "fm.invitation_token = ?", token)
}

// GetByUserID retrieves the member row linked to an identity
func (r *MemberRepository) GetByUserID(ctx context.Context, userID int64) (*models.FamilyMember, error) {
	return r.getOne(ctx, "fm.user_id = ?", userID)
}

// List returns every member, most recently invited first
func (r *MemberRepository) List(ctx context.Context) ([]models.FamilyMember, error) {
	query := "SELECT " + memberColumns + " " + memberFrom + " ORDER BY fm.invited_at DESC, fm.id DESC"
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Stats counts members by status
func (r *MemberRepository) Stats(ctx context.Context) (*models.FamilyStats, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT status, COUNT(*) FROM family_members GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count family members: %w", err)
	}
	defer rows.Close()

	stats := &models.FamilyStats{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan member count: %w", err)
		}
		stats.Add(models.MemberStatus(status), n)
	}
	return stats, rows.Err()
}

// Activate links an invited row to an identity and marks it active. It reports
// false when the row was no longer in the invited state.
func (r *MemberRepository) Activate(ctx context.Context, id, userID int64) (bool, error) {
	query := `UPDATE family_members SET user_id = ?, status = 'active', accepted_at = ?
		WHERE id = ? AND status = 'invited'`
	res, err := r.q.ExecContext(ctx, query, userID, now(), id)
	if err != nil {
		if translate(r.q, err) == ErrDuplicate {
			return false, ErrDuplicate
		}
		return false, fmt.Errorf("failed to activate family member: %w", err)
	}
	return rowsAffected(res)
}

// SetStatus moves a member from one status to another. It reports false when
// the row was not in the expected status.
func (r *MemberRepository) SetStatus(ctx context.Context, id int64, from, to models.MemberStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE family_members SET status = ? WHERE id = ? AND status = ?", string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update member status: %w", err)
	}
	return rowsAffected(res)
}

// Delete removes a member row
func (r *MemberRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM family_members WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete family member: %w", err)
	}
	return rowsAffected(res)
}
