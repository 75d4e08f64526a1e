package gate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyphotos/internal/apperr"
	"familyphotos/internal/database"
	"familyphotos/internal/gate"
)

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)
	return db
}

func addMember(t *testing.T, db *database.DB, email, status string, linked bool) int64 {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	var userID any
	if linked {
		id, err := db.ExecReturningID(ctx, `INSERT INTO users (email, created_at) VALUES (?, ?)`, email, now)
		require.NoError(t, err)
		userID = id
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO family_members (user_id, email, status, invited_at, invitation_token) VALUES (?, ?, ?, ?, ?)`,
		userID, email, status, now, "tok-"+email)
	require.NoError(t, err)
	if id, ok := userID.(int64); ok {
		return id
	}
	return 0
}

func TestCheck(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	active := addMember(t, db, "active@example.com", "active", true)
	inactive := addMember(t, db, "inactive@example.com", "inactive", true)
	addMember(t, db, "invited@example.com", "invited", false)

	tests := []struct {
		name     string
		identity int64
		want     error
	}{
		{"no identity", 0, gate.ErrUnauthorized},
		{"active member", active, nil},
		{"inactive member", inactive, gate.ErrAccessDenied},
		{"identity without membership", 9999, gate.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Check(ctx, db, tt.identity)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckKinds(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(gate.Check(ctx, db, 0)))
	assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(gate.Check(ctx, db, 42)))
}

func TestCheckInsideTransaction(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	id := addMember(t, db, "tx@example.com", "active", true)

	err := db.WithTx(ctx, func(tx *database.Tx) error {
		return gate.Check(ctx, tx, id)
	})
	assert.NoError(t, err)
}

func TestCheckQueryFailureIsInternal(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).WillReturnError(errors.New("connection reset"))

	db := database.New(sqlDB, database.NewSQLiteDialect())
	err = gate.Check(context.Background(), db, 5)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
