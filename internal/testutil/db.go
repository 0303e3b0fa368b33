package testutil

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/hemline/internal/config"
	"github.com/xxxsen/hemline/internal/db"
)

// OpenTestDB returns a migrated database. It uses a private in-memory sqlite
// database unless TEST_DB_DSN points at postgres.
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: db.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		cfg = config.DatabaseConfig{Driver: db.DriverPostgres, DSN: dsn}
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if conn.DriverName() != db.DriverSQLite {
		if _, err := conn.Exec("TRUNCATE users, one_time_credentials, tokens, waitlists, clients, orders, gallery_images, folders, folder_images CASCADE"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// ExecSQLite runs sqlite-only statements such as triggers and skips the test
// on other drivers.
func ExecSQLite(t *testing.T, conn *sqlx.DB, stmts ...string) {
	t.Helper()
	if conn.DriverName() != db.DriverSQLite {
		t.Skip("needs sqlite triggers")
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}
