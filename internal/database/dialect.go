package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB, config DialectConfig) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertQuery returns an INSERT that updates the listed columns in place
	// when a row with the same conflict key already exists. The statement ends
	// with the update assignments so callers may append further ones.
	UpsertQuery(table string, columns, conflict, update []string) string

	// InsertIfAbsentQuery returns an INSERT that silently does nothing when a
	// row with the same conflict key already exists.
	InsertIfAbsentQuery(table string, columns, conflict []string) string

	// IsUniqueViolation reports whether err was caused by a unique constraint
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path        string
	BusyTimeout time.Duration

	// For PostgreSQL/MySQL
	URL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// insertPrefix renders "INSERT INTO table (a, b) VALUES (?, ?)"
func insertPrefix(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")"
}

// onConflictUpsert is shared by SQLite and PostgreSQL, which use the same syntax
func onConflictUpsert(table string, columns, conflict, update []string) string {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = col + " = excluded." + col
	}
	return insertPrefix(table, columns) +
		" ON CONFLICT (" + strings.Join(conflict, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

func onConflictDoNothing(table string, columns, conflict []string) string {
	return insertPrefix(table, columns) + " ON CONFLICT (" + strings.Join(conflict, ", ") + ") DO NOTHING"
}

// applyPool sets pool limits, falling back to the defaults every dialect used before
func applyPool(db *sql.DB, config DialectConfig) {
	maxOpen := config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := config.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := config.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(1 * time.Minute)
}
