// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Postgres SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

var (
	ErrUnsupportedDriver = errors.New("unsupported database type")

	// ErrCodeSpaceExhausted is returned when no free check-in code was
	// found within the retry budget.
	ErrCodeSpaceExhausted = errors.New("no free check-in code available")
)

// sqlitePragmas are applied to every SQLite connection. Foreign keys are off
// by default in SQLite, and immediate transactions keep concurrent writers
// from deadlocking on lock upgrades.
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_txlock=immediate",
}

// Open connects to the configured store and verifies the connection.
func Open(ctx context.Context, driver, url string) (*sql.DB, error) {
	var conn *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		conn, err = sql.Open(DriverSQLite, sqliteDSN(url))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// One connection keeps :memory: databases shared and serializes writers
		conn.SetMaxOpenConns(1)
	case DriverPostgres:
		conn, err = sql.Open(DriverPostgres, url)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}

func sqliteDSN(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(sqlitePragmas, "&")
}

// WithTx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error and committed otherwise.
//
// Usage:
//
//	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
//	    if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE meeting_id = $1`, id); err != nil {
//	        return err
//	    }
//	    _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
//	    return err
//	})
func WithTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	// No-op once committed
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint in either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}

	return false
}

// Queryer is satisfied by both *sql.DB and *sql.Tx.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserExists reports whether the admin account still exists. Session tokens
// outlive account deletion, so holders of a token must be checked here.
func UserExists(ctx context.Context, q Queryer, id int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = $1`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return n > 0, nil
}
