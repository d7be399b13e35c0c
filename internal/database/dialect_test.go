package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: "sqlite3"},
		{input: "SQLite", want: "sqlite3"},
		{input: "postgresql", want: "postgres"},
		{input: "mysql", want: "mysql"},
		{input: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			dialect, err := DialectFor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DialectFor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && dialect.DriverName() != tt.want {
				t.Errorf("DialectFor(%q) driver = %s, want %s", tt.input, dialect.DriverName(), tt.want)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		config   DialectConfig
		expected string
	}{
		{
			name:     "SQLite adds busy timeout",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "./fcetrainer.db"},
			expected: "./fcetrainer.db?_busy_timeout=5000",
		},
		{
			name:     "SQLite keeps explicit parameters",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "file:test.db?cache=shared"},
			expected: "file:test.db?cache=shared",
		},
		{
			name:     "PostgreSQL uses URL as is",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "postgres://fce@localhost/fce?sslmode=disable"},
			expected: "postgres://fce@localhost/fce?sslmode=disable",
		},
		{
			name:     "MySQL adds driver parameters",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "fce:secret@tcp(localhost:3306)/fce"},
			expected: "fce:secret@tcp(localhost:3306)/fce?parseTime=true&multiStatements=true",
		},
		{
			name:     "MySQL keeps existing parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "fce@tcp(db)/fce?parseTime=false"},
			expected: "fce@tcp(db)/fce?parseTime=false&multiStatements=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.expected {
				t.Errorf("DSN() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM attempts WHERE id = ?",
			expected: "SELECT * FROM attempts WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM attempts WHERE id = ?",
			expected: "SELECT * FROM attempts WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO attempts (trainee_id, part) VALUES (?, ?)",
			expected: "INSERT INTO attempts (trainee_id, part) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE exercise_snapshots SET active_part = ?, data_json = ? WHERE trainee_id = ?",
			expected: "UPDATE exercise_snapshots SET active_part = ?, data_json = ? WHERE trainee_id = ?",
		},
		{
			name:     "PostgreSQL leaves quoted question marks",
			dialect:  NewPostgresDialect(),
			query:    "SELECT id FROM attempts WHERE title = 'Why?' AND part = ?",
			expected: "SELECT id FROM attempts WHERE title = 'Why?' AND part = $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestUpsertQuery(t *testing.T) {
	columns := []string{"trainee_id", "active_part", "data_json"}

	tests := []struct {
		name     string
		dialect  Dialect
		expected string
	}{
		{
			name:     "SQLite",
			dialect:  NewSQLiteDialect(),
			expected: "INSERT INTO exercise_snapshots (trainee_id, active_part, data_json) VALUES (?, ?, ?) ON CONFLICT (trainee_id) DO UPDATE SET active_part = excluded.active_part, data_json = excluded.data_json",
		},
		{
			name:     "PostgreSQL",
			dialect:  NewPostgresDialect(),
			expected: "INSERT INTO exercise_snapshots (trainee_id, active_part, data_json) VALUES (?, ?, ?) ON CONFLICT (trainee_id) DO UPDATE SET active_part = excluded.active_part, data_json = excluded.data_json",
		},
		{
			name:     "MySQL",
			dialect:  NewMySQLDialect(),
			expected: "INSERT INTO exercise_snapshots (trainee_id, active_part, data_json) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE active_part = VALUES(active_part), data_json = VALUES(data_json)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.UpsertQuery("exercise_snapshots", "trainee_id", columns); got != tt.expected {
				t.Errorf("UpsertQuery() = %v, want %v", got, tt.expected)
			}
		})
	}
}
