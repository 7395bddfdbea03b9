// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Types and defaults are limited to what both SQLite and PostgreSQL accept.
// Dates are ISO text so both drivers scan them the same way.
const schema = `
-- Admin accounts
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Attendees
CREATE TABLE IF NOT EXISTS members (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    created_by BIGINT REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT unique_email_per_user UNIQUE (email, created_by)
);

CREATE INDEX IF NOT EXISTS idx_members_email ON members(email);
CREATE INDEX IF NOT EXISTS idx_members_created_by ON members(created_by);

-- Meetings
CREATE TABLE IF NOT EXISTS meetings (
    id BIGINT PRIMARY KEY,
    date TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE CHECK (length(code) = 4),
    title TEXT NOT NULL,
    created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT unique_title_per_day UNIQUE (created_by, date, title)
);

CREATE INDEX IF NOT EXISTS idx_meetings_created_by ON meetings(created_by);
CREATE INDEX IF NOT EXISTS idx_meetings_date_code ON meetings(date, code);

-- Check-ins
CREATE TABLE IF NOT EXISTS attendance_records (
    id BIGINT PRIMARY KEY,
    member_id BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    meeting_id BIGINT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    checked_in_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT one_checkin_per_meeting UNIQUE (member_id, meeting_id)
);

CREATE INDEX IF NOT EXISTS idx_attendance_meeting_id ON attendance_records(meeting_id);
CREATE INDEX IF NOT EXISTS idx_attendance_member_id ON attendance_records(member_id);
`
