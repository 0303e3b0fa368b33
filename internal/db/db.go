package db

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/xxxsen/hemline/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverPostgres
	}
	dsn, err := buildDSN(driver, cfg)
	if err != nil {
		return nil, err
	}
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection keeps transactions from tripping SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func buildDSN(driver string, cfg config.DatabaseConfig) (string, error) {
	switch driver {
	case DriverPostgres, DriverPgx:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode), nil
	case DriverSQLite:
		if cfg.DSN == "" {
			return "", fmt.Errorf("database.dsn is required for sqlite")
		}
		dsn := cfg.DSN
		if !strings.Contains(dsn, "_pragma=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func gooseDialect(driver string) string {
	if driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func ApplyMigrations(conn *sqlx.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect(conn.DriverName())); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied goose version.
func MigrationVersion(conn *sqlx.DB) (int64, error) {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if err := goose.SetDialect(gooseDialect(conn.DriverName())); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	return goose.GetDBVersion(conn.DB)
}
