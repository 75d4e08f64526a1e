package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect hides the differences between the supported SQL engines. Queries
// are written once with ? placeholders and rewritten per engine.
type Dialect interface {
	DriverName() string
	DSN(config DialectConfig) (string, error)

	// RewriteQuery turns ? placeholders into the engine's own syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId is false for engines that need RETURNING id
	SupportsLastInsertId() bool

	// ConfigureConnection sets pool limits and engine pragmas on a fresh handle
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the embedded directory holding this engine's migrations
	MigrationsSubdir() string
	CreateMigrationsTableQuery() string

	// IsUniqueViolation reports whether err is a unique-constraint failure.
	// Repositories use it to turn concurrent duplicate inserts into conflicts.
	IsUniqueViolation(err error) bool
}

// DialectConfig locates the database. SQLite uses Path, the server engines use URL.
type DialectConfig struct {
	Path string
	URL  string
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	n := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		n++
		return "$" + strconv.Itoa(n)
	})
}
