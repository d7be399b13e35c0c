package database

import (
	"database/sql"
	"strconv"
	"strings"
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

	// UpsertQuery builds an insert of columns that overwrites the other
	// columns when a row with the same key already exists
	UpsertQuery(table, key string, columns []string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
// Question marks inside quoted literals are left alone.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	counter := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			counter++
			b.WriteString("$" + strconv.Itoa(counter))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertPrefix writes "INSERT INTO table (a, b) VALUES (?, ?)"
func insertPrefix(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")"
}

// conflictUpsert is the ON CONFLICT form shared by SQLite and PostgreSQL
func conflictUpsert(table, key string, columns []string) string {
	var updates []string
	for _, column := range columns {
		if column == key {
			continue
		}
		updates = append(updates, column+" = excluded."+column)
	}
	return insertPrefix(table, columns) + " ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(updates, ", ")
}
