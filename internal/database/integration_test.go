package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected at least one migration to run")
	}

	tables := []string{"users", "sessions", "login_codes", "family_members", "profiles", "photos", "comments", "reactions", "albums", "album_photos"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	again, err := db.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second run applied %d migrations, want 0", len(again))
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecReturningID(ctx, "INSERT INTO users (email, created_at) VALUES (?, ?)", "a@example.com", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (email, created_at) VALUES (?, ?)", "b@example.com", time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after rollback, got %d", count)
	}
}

func TestUniqueViolationFromSQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	insert := "INSERT INTO users (email, created_at) VALUES (?, ?)"
	if _, err := db.ExecContext(ctx, insert, "dup@example.com", time.Now()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.ExecContext(ctx, insert, "dup@example.com", time.Now())
	if !db.Dialect().IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestExecReturningIDPostgresAppendsReturning(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer sqlDB.Close()

	db := New(sqlDB, NewPostgresDialect())

	mock.ExpectQuery(`INSERT INTO albums \(name\) VALUES \(\$1\) RETURNING id`).
		WithArgs("Summer").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := db.ExecReturningID(context.Background(), "INSERT INTO albums (name) VALUES (?);", "Summer")
	if err != nil {
		t.Fatalf("ExecReturningID() error = %v", err)
	}
	if id != 42 {
		t.Errorf("ExecReturningID() = %d, want 42", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
