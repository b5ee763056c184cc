// Package storage wraps database/sql with the connection, pooling, and
// transaction conventions used throughout the daemon. A Store is driver
// agnostic: it is opened against sqlite, mysql, or postgresql depending on
// config.DatabaseConfig.Type. SoftDeleteChat runs its chat-plus-interactions
// cascade inside the WithTx helper so it stays atomic; SoftDeleteAllChats
// repeats that cascade per chat, one transaction each, and the other
// repository methods each issue a single statement.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
)

type Store struct {
	DB     *sql.DB
	Driver string
}

// Open connects to the configured database engine, applies pool settings,
// and verifies connectivity with a bounded number of retries, mirroring the
// retry-then-fail startup behavior used by the teacher's database layer.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	driver, dsn, err := dsnFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if driver == "sqlite3" && cfg.ConnectionString == ":memory:" {
		// go-sqlite3 gives every pooled connection its own independent
		// database when the DSN is ":memory:", so a write on one
		// connection would be invisible to a read on another. Pin the
		// pool to a single connection to keep the in-memory database
		// coherent across calls.
		maxOpen = 1
		maxIdle = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	var pingErr error
	for attempt := 0; attempt < 3; attempt++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeStorageUnavailable)
		}
	}
	if pingErr != nil {
		return nil, apperrors.Newf(apperrors.CodeStorageUnavailable, "database unreachable after retries: %s", pingErr)
	}

	store := &Store{DB: db, Driver: driver}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func dsnFor(cfg config.DatabaseConfig) (driver, dsn string, err error) {
	switch cfg.Type {
	case "sqlite":
		return "sqlite3", cfg.ConnectionString, nil
	case "mysql":
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database), nil
	case "postgresql":
		return "postgres", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database), nil
	default:
		return "", "", apperrors.Newf(apperrors.CodeInvalidConfiguration, "unsupported database type %q", cfg.Type)
	}
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back (including on panic) otherwise. Grounded on the teacher's
// Transaction helper.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// placeholder returns the positional placeholder syntax for the active
// driver: postgres uses $1, $2..., the others use ?.
func (s *Store) placeholder(n int) string {
	if s.Driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *Store) migrate(ctx context.Context) error {
	autoIncrement := "INTEGER"
	timestampType := "TIMESTAMP"
	if s.Driver == "postgres" {
		timestampType = "TIMESTAMPTZ"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			os_uid %s NOT NULL UNIQUE,
			created_at %s NOT NULL
		)`, autoIncrement, timestampType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chats (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			description VARCHAR(1024) NOT NULL DEFAULT '',
			created_at %s NOT NULL,
			updated_at %s NOT NULL,
			deleted_at %s NULL
		)`, timestampType, timestampType, timestampType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS interactions (
			id VARCHAR(36) PRIMARY KEY,
			chat_id VARCHAR(36) NOT NULL,
			question TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at %s NOT NULL,
			deleted_at %s NULL
		)`, timestampType, timestampType),
	}

	for _, stmt := range statements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorageError)
		}
	}
	return nil
}
