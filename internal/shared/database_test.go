package shared

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Run("DSN enables foreign keys", func(t *testing.T) {
		tests := []struct {
			path string
			want string
		}{
			{":memory:", ":memory:?_foreign_keys=on"},
			{"./vibelist.db", "./vibelist.db?_foreign_keys=on"},
			{"file:test.db?cache=shared", "file:test.db?cache=shared&_foreign_keys=on"},
		}
		for _, tt := range tests {
			if got := dataSourceName(tt.path); got != tt.want {
				t.Errorf("dataSourceName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		}
	})

	t.Run("every pooled connection enforces foreign keys", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "pool.db"))
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 4, 4)

		ctx := context.Background()
		first, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("failed to get connection: %v", err)
		}
		defer first.Close()
		second, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("failed to get connection: %v", err)
		}
		defer second.Close()

		for i, conn := range []interface {
			QueryRowContext(context.Context, string, ...any) *sql.Row
		}{first, second} {
			var enabled int
			if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
				t.Fatalf("connection %d: %v", i, err)
			}
			if enabled != 1 {
				t.Errorf("connection %d: expected foreign keys on, got %d", i, enabled)
			}
		}
	})

	t.Run("references are enforced", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "fk.db"))
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 4, 4)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		_, err = db.Exec(`INSERT INTO spotify_tokens (user_id, access_token, created_at, updated_at) VALUES ('missing-user', 'a', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
		if err == nil {
			t.Error("expected a foreign key violation for an unknown user")
		}
	})
}
