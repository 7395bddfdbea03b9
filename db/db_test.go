// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := CreateSchema(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn := openTestDB(t)

	if err := CreateSchema(context.Background(), conn); err != nil {
		t.Fatalf("second CreateSchema failed: %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{":memory:", ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"},
		{"file:x.db?mode=rwc", "file:x.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES (1, 'alice', 'a@x.com', 'h')`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}

	_, err = conn.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES (2, 'alice', 'other@x.com', 'h')`)
	if !IsUniqueViolation(err) {
		t.Errorf("duplicate username should be a unique violation, got %v", err)
	}

	_, err = conn.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES (1, 'bob', 'b@x.com', 'h')`)
	if !IsUniqueViolation(err) {
		t.Errorf("duplicate primary key should be a unique violation, got %v", err)
	}
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("23505 should be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation should not be a unique violation")
	}
}

func TestIsUniqueViolation_Other(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
}

func TestMemberEmailUniquePerAdmin(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	mustExec(t, conn, `INSERT INTO users (id, username, email, password_hash) VALUES (1, 'alice', 'a@x.com', 'h')`)
	mustExec(t, conn, `INSERT INTO users (id, username, email, password_hash) VALUES (2, 'carol', 'c@x.com', 'h')`)
	mustExec(t, conn, `INSERT INTO members (id, name, email, created_by) VALUES (10, 'Bob', 'b@x.com', 1)`)

	// Same email under another admin is allowed
	mustExec(t, conn, `INSERT INTO members (id, name, email, created_by) VALUES (11, 'Bob', 'b@x.com', 2)`)

	_, err := conn.ExecContext(ctx, `INSERT INTO members (id, name, email, created_by) VALUES (12, 'Bobby', 'b@x.com', 1)`)
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation for same (email, created_by), got %v", err)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	conn := openTestDB(t)

	mustExec(t, conn, `INSERT INTO users (id, username, email, password_hash) VALUES (1, 'alice', 'a@x.com', 'h')`)
	mustExec(t, conn, `INSERT INTO members (id, name, email, created_by) VALUES (10, 'Bob', 'b@x.com', 1)`)
	mustExec(t, conn, `INSERT INTO meetings (id, date, code, title, created_by) VALUES (20, '2024-01-01', 'AB12', 'Standup', 1)`)
	mustExec(t, conn, `INSERT INTO attendance_records (id, member_id, meeting_id) VALUES (30, 10, 20)`)

	mustExec(t, conn, `DELETE FROM users WHERE id = 1`)

	for _, table := range []string{"members", "meetings", "attendance_records"} {
		var n int
		if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("expected %s to be emptied by cascade, found %d rows", table, n)
		}
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES (1, 'alice', 'a@x.com', 'h')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected rollback, found %d users", n)
	}
}

func TestWithTx_Commit(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, $4)`,
			1, "alice", "a@x.com", "h")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	var username string
	if err := conn.QueryRow(`SELECT username FROM users WHERE id = $1`, 1).Scan(&username); err != nil {
		t.Fatal(err)
	}
	if username != "alice" {
		t.Errorf("expected alice, got %q", username)
	}
}

func mustExec(t *testing.T, conn *sql.DB, query string) {
	t.Helper()
	if _, err := conn.Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestUserExists(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES (7, 'alice', 'a@x.com', 'h')`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}

	if ok, err := UserExists(ctx, conn, 7); err != nil || !ok {
		t.Errorf("UserExists(7) = %v, %v; want true", ok, err)
	}
	if ok, err := UserExists(ctx, conn, 8); err != nil || ok {
		t.Errorf("UserExists(8) = %v, %v; want false", ok, err)
	}

	err = WithTx(ctx, conn, func(tx *sql.Tx) error {
		ok, err := UserExists(ctx, tx, 7)
		if err != nil {
			return err
		}
		if !ok {
			t.Error("UserExists inside transaction = false, want true")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}
