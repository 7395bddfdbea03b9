// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
)

// The schema also declares ON DELETE CASCADE. These helpers delete
// dependents first so the order holds even with foreign keys disabled.
// Callers run them inside db.WithTx.

func deleteMeetingTx(ctx context.Context, tx *sql.Tx, meetingID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("delete attendance for meeting %d: %w", meetingID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, meetingID); err != nil {
		return fmt.Errorf("delete meeting %d: %w", meetingID, err)
	}
	return nil
}

func deleteMemberTx(ctx context.Context, tx *sql.Tx, memberID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE member_id = $1`, memberID); err != nil {
		return fmt.Errorf("delete attendance for member %d: %w", memberID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, memberID); err != nil {
		return fmt.Errorf("delete member %d: %w", memberID, err)
	}
	return nil
}

// deleteUserTx removes an admin with everything it owns and returns the
// codes of the deleted meetings so their QR images can be cleaned up.
func deleteUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT code FROM meetings WHERE created_by = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list meetings for user %d: %w", userID, err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan meeting code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	steps := []struct {
		what  string
		query string
	}{
		{"attendance for meetings", `DELETE FROM attendance_records WHERE meeting_id IN (SELECT id FROM meetings WHERE created_by = $1)`},
		{"attendance for members", `DELETE FROM attendance_records WHERE member_id IN (SELECT id FROM members WHERE created_by = $1)`},
		{"meetings", `DELETE FROM meetings WHERE created_by = $1`},
		{"members", `DELETE FROM members WHERE created_by = $1`},
		{"user", `DELETE FROM users WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, userID); err != nil {
			return nil, fmt.Errorf("delete %s of user %d: %w", step.what, userID, err)
		}
	}

	return codes, nil
}
