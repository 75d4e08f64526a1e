package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"familyphotos/internal/database"
	"familyphotos/internal/gate"
)

var (
	// ErrDuplicate is returned when an insert or update hits a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned when an operation references a row that does not exist
	ErrNotFound = errors.New("record not found")
)

// withGate runs fn in a transaction after confirming that actor is an active
// family member. The membership check and the operation see the same snapshot.
func withGate(ctx context.Context, db *database.DB, actor int64, fn func(tx *database.Tx) error) error {
	return db.WithTx(ctx, func(tx *database.Tx) error {
		if err := gate.Check(ctx, tx, actor); err != nil {
			return err
		}
		return fn(tx)
	})
}

// translate maps a dialect unique violation onto ErrDuplicate
func translate(q database.DBTX, err error) error {
	if err != nil && q.Dialect().IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
