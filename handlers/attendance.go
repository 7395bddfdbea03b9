// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/onetap/auth"
	"github.com/danielhkuo/onetap/cliparse"
	"github.com/danielhkuo/onetap/ids"
	"github.com/danielhkuo/onetap/middleware"
	"github.com/danielhkuo/onetap/models"
)

// AttendanceFilter narrows an attendance query. Only the first set field
// applies, in declaration order.
type AttendanceFilter struct {
	MeetingID   int64
	MemberID    int64
	MemberName  string
	MeetingDate string
}

// parseAttendanceFilter reads the first filter present in precedence order
// and ignores the rest, malformed or not. The export only honours the id
// filters, so withText controls whether name and date are read.
func parseAttendanceFilter(r *http.Request, withText bool) (AttendanceFilter, error) {
	var f AttendanceFilter
	q := r.URL.Query()

	if raw := q.Get("meeting_id"); raw != "" {
		id, err := ids.Parse(raw)
		if err != nil {
			return f, validationError("meeting_id must be a valid id")
		}
		f.MeetingID = id
		return f, nil
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := ids.Parse(raw)
		if err != nil {
			return f, validationError("user_id must be a valid id")
		}
		f.MemberID = id
		return f, nil
	}
	if !withText {
		return f, nil
	}

	if name := strings.TrimSpace(q.Get("user_name")); name != "" {
		f.MemberName = name
		return f, nil
	}
	if raw := q.Get("meeting_date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return f, validationError("meeting_date must be YYYY-MM-DD")
		}
		f.MeetingDate = date
	}
	return f, nil
}

// QueryAttendance returns the records of the admin's meetings that match
// the filter, ordered by meeting date
func QueryAttendance(ctx context.Context, conn *sql.DB, owner auth.Identity, f AttendanceFilter) ([]models.AttendanceRow, error) {
	query := `
		SELECT a.id, a.member_id, a.meeting_id, m.name, m.email, mt.title, mt.date
		FROM attendance_records a
		JOIN meetings mt ON mt.id = a.meeting_id
		LEFT JOIN members m ON m.id = a.member_id
		WHERE mt.created_by = $1`
	args := []interface{}{owner.UserID}

	switch {
	case f.MeetingID != 0:
		query += ` AND a.meeting_id = $2`
		args = append(args, f.MeetingID)
	case f.MemberID != 0:
		query += ` AND a.member_id = $2`
		args = append(args, f.MemberID)
	case f.MemberName != "":
		query += ` AND LOWER(m.name) LIKE $2`
		args = append(args, "%"+strings.ToLower(f.MemberName)+"%")
	case f.MeetingDate != "":
		query += ` AND mt.date = $2`
		args = append(args, f.MeetingDate)
	}
	query += ` ORDER BY mt.date, a.checked_in_at, a.id`

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRow
	for rows.Next() {
		var row models.AttendanceRow
		err := rows.Scan(&row.ID, &row.MemberID, &row.MeetingID,
			&row.MemberName, &row.MemberEmail, &row.MeetingTitle, &row.MeetingDate)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type AttendanceHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAttendanceHandler(db *sql.DB, cfg cliparse.Config) *AttendanceHandler {
	return &AttendanceHandler{db: db, cfg: cfg}
}

// List handles GET /api/attendance
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	filter, err := parseAttendanceFilter(r, true)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := QueryAttendance(r.Context(), h.db, owner, filter)
	if err != nil {
		slog.Error("failed to query attendance", "user_id", owner.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	entries := []models.AttendanceEntry{}
	for _, row := range rows {
		if row.Orphaned() {
			continue
		}
		entries = append(entries, row.Entry())
	}

	middleware.JSONResponse(w, http.StatusOK, models.AttendanceListResponse{Attendance: entries})
}

// Export handles GET /api/attendance/export
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	filter, err := parseAttendanceFilter(r, false)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := QueryAttendance(r.Context(), h.db, owner, filter)
	if err != nil {
		slog.Error("failed to query attendance for export", "user_id", owner.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out, err := newCSVStream(w, "attendance.csv",
		[]string{"Member Name", "Member Email", "Meeting Title", "Meeting Date"})
	if err != nil {
		slog.Error("failed to start attendance export", "error", err)
		return
	}

	for _, row := range rows {
		e := row.Entry()
		if err := out.Write([]string{e.UserName, e.UserEmail, e.MeetingTitle, e.MeetingDate}); err != nil {
			break
		}
	}

	out.Close() //nolint:errcheck
}
