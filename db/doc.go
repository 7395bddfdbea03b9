// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the relational store and owns its schema.

# Drivers

Two drivers are supported, chosen by DATABASE_TYPE:

  - sqlite (modernc.org/sqlite, pure Go): default, also used by tests
  - postgres (github.com/lib/pq)

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

SQLite connections get foreign_keys(1), busy_timeout(5000) and immediate
transactions, and the pool is capped at one connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The DDL is shared by both drivers; queries use $N placeholders, which both
accept.

# Tables

  - users: admin accounts (unique username, unique email)
  - members: attendees, unique per (email, created_by)
  - meetings: dated events with a globally unique 4-character code,
    unique per (created_by, date, title)
  - attendance_records: one row per (member_id, meeting_id)

# Relationships

	users 1──* members
	users 1──* meetings
	members 1──* attendance_records
	meetings 1──* attendance_records

All foreign keys use ON DELETE CASCADE. Handlers still delete dependents
explicitly, in order, inside one transaction.

# Transactions

	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error { ... })

# Constraint Violations

IsUniqueViolation recognises unique_violation (23505) from PostgreSQL and
SQLITE_CONSTRAINT_UNIQUE / SQLITE_CONSTRAINT_PRIMARYKEY from SQLite. The
check-in engine and meeting creation use it to turn races into retries or
soft outcomes.
*/
package db
