package database

import (
	"strings"
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

	t.Run("RewriteQuery leaves placeholders alone", func(t *testing.T) {
		query := "SELECT value FROM kv WHERE key = ?"
		if result := dialect.RewriteQuery(query); result != query {
			t.Errorf("RewriteQuery() = %v, want %v", result, query)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("UpsertKV targets given table", func(t *testing.T) {
		query := dialect.UpsertKV("settings")
		if !strings.Contains(query, "INSERT INTO settings") {
			t.Errorf("UpsertKV() = %v, want INSERT INTO settings", query)
		}
		if !strings.Contains(query, "ON CONFLICT") {
			t.Errorf("UpsertKV() = %v, want ON CONFLICT clause", query)
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

	t.Run("RewriteQuery numbers placeholders", func(t *testing.T) {
		query := "UPDATE profiles SET name = ?, sort_order = ? WHERE id = ?"
		expected := "UPDATE profiles SET name = $1, sort_order = $2 WHERE id = $3"
		if result := dialect.RewriteQuery(query); result != expected {
			t.Errorf("RewriteQuery() = %v, want %v", result, expected)
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

	t.Run("UpsertKV quotes reserved column", func(t *testing.T) {
		query := dialect.UpsertKV("kv")
		if !strings.Contains(query, "`key`") {
			t.Errorf("UpsertKV() = %v, want backtick-quoted key column", query)
		}
		if !strings.Contains(query, "ON DUPLICATE KEY UPDATE") {
			t.Errorf("UpsertKV() = %v, want ON DUPLICATE KEY UPDATE clause", query)
		}
	})

	t.Run("SelectKV quotes reserved column", func(t *testing.T) {
		query := dialect.SelectKV("settings")
		expected := "SELECT `value` FROM settings WHERE `key` = ?"
		if query != expected {
			t.Errorf("SelectKV() = %v, want %v", query, expected)
		}
	})
}

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "no placeholders",
			query:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "single placeholder",
			query:    "SELECT * FROM profiles WHERE id = ?",
			expected: "SELECT * FROM profiles WHERE id = $1",
		},
		{
			name:     "many placeholders",
			query:    "INSERT INTO kv (key, value) VALUES (?, ?)",
			expected: "INSERT INTO kv (key, value) VALUES ($1, $2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rewritePlaceholdersToNumbered(tt.query)
			if result != tt.expected {
				t.Errorf("rewritePlaceholdersToNumbered() = %v, want %v", result, tt.expected)
			}
		})
	}
}
