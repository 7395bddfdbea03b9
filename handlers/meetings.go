// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/onetap/auth"
	"github.com/danielhkuo/onetap/cliparse"
	"github.com/danielhkuo/onetap/db"
	"github.com/danielhkuo/onetap/ids"
	"github.com/danielhkuo/onetap/middleware"
	"github.com/danielhkuo/onetap/models"
)

// MaxCodeAttempts caps check-in code draws per meeting creation
const MaxCodeAttempts = 16

// ErrDuplicateMeeting is returned when the admin already has a meeting with
// the same title on the same date
var ErrDuplicateMeeting = errors.New("meeting with this title already exists on that date")

var (
	errCodeTaken       = errors.New("check-in code taken")
	errMeetingNotOwned = errors.New("meeting not found or not owned")
)

// QRGenerator produces and removes the QR image for a check-in code
type QRGenerator interface {
	Generate(code string) (string, error)
	Remove(code string) error
	URL(code string) string
}

type MeetingHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	qr      QRGenerator
	newCode func() (string, error)
}

func NewMeetingHandler(db *sql.DB, cfg cliparse.Config, qr QRGenerator) *MeetingHandler {
	return &MeetingHandler{
		db:  db,
		cfg: cfg,
		qr:  qr,
		newCode: func() (string, error) {
			return auth.GenerateCode(auth.CodeLength)
		},
	}
}

// parseDate validates a YYYY-MM-DD date and returns it in canonical form
func parseDate(s string) (string, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", validationError("date must be YYYY-MM-DD")
	}
	return d.Format(models.DateLayout), nil
}

// CreateMeeting stores a new meeting with a fresh globally unique code.
// Each draw runs in its own transaction because a failed insert poisons
// a Postgres transaction.
func (h *MeetingHandler) CreateMeeting(ctx context.Context, owner auth.Identity, title, date string) (models.Meeting, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := h.newCode()
		if err != nil {
			return models.Meeting{}, err
		}

		meeting := models.Meeting{
			ID:        ids.New(),
			Date:      date,
			Code:      code,
			Title:     title,
			CreatedBy: owner.UserID,
		}

		err = db.WithTx(ctx, h.db, func(tx *sql.Tx) error {
			var n int
			err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM meetings
				WHERE created_by = $1 AND date = $2 AND title = $3
			`, owner.UserID, date, title).Scan(&n)
			if err != nil {
				return fmt.Errorf("query duplicate meeting: %w", err)
			}
			if n > 0 {
				return ErrDuplicateMeeting
			}

			err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings WHERE code = $1`, code).Scan(&n)
			if err != nil {
				return fmt.Errorf("query meeting code: %w", err)
			}
			if n > 0 {
				return errCodeTaken
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO meetings (id, date, code, title, created_by, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, meeting.ID, meeting.Date, meeting.Code, meeting.Title, meeting.CreatedBy, time.Now().UTC())
			// A concurrent duplicate title also lands here; the next
			// attempt's duplicate check reports it
			if db.IsUniqueViolation(err) {
				return errCodeTaken
			}
			if err != nil {
				return fmt.Errorf("insert meeting: %w", err)
			}
			return nil
		})

		switch {
		case err == nil:
			return meeting, nil
		case errors.Is(err, errCodeTaken):
			slog.Warn("check-in code collision", "code", code, "attempt", attempt)
			continue
		default:
			return models.Meeting{}, err
		}
	}

	return models.Meeting{}, fmt.Errorf("%w after %d attempts", db.ErrCodeSpaceExhausted, MaxCodeAttempts)
}

// Create handles POST /api/meetings
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req models.CreateMeetingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	meeting, err := h.CreateMeeting(r.Context(), owner, title, date)
	if errors.Is(err, ErrDuplicateMeeting) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "You already created a meeting with this title on that date.")
		return
	}
	if err != nil {
		slog.Error("failed to create meeting", "user_id", owner.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create meeting")
		return
	}

	// The meeting stands even without its image
	qrURL, err := h.qr.Generate(meeting.Code)
	if err != nil {
		slog.Error("failed to generate QR code", "code", meeting.Code, "error", err)
		qrURL = ""
	}

	slog.Info("meeting created", "meeting_id", meeting.ID, "code", meeting.Code, "user_id", owner.UserID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateMeetingResponse{
		Msg:       models.MsgMeetingCreated,
		MeetingID: meeting.ID,
		Date:      meeting.Date,
		Code:      meeting.Code,
		Title:     meeting.Title,
		QRURL:     qrURL,
	})
}

// List handles GET /api/meetings
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	query := `SELECT id, date, code, title FROM meetings WHERE created_by = $1`
	args := []interface{}{owner.UserID}

	if raw := r.URL.Query().Get("meeting_date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "meeting_date must be YYYY-MM-DD")
			return
		}
		query += ` AND date = $2`
		args = append(args, date)
	}
	query += ` ORDER BY date, id`

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		slog.Error("failed to query meetings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	meetings := []models.Meeting{}
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.Date, &m.Code, &m.Title); err != nil {
			slog.Error("failed to scan meeting", "error", err)
			continue
		}
		m.CreatedBy = owner.UserID
		m.QRURL = h.qr.URL(m.Code)
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate meetings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MeetingListResponse{Meetings: meetings})
}

// Delete handles DELETE /api/meetings/{id}
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	meetingID, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid meeting id")
		return
	}

	var code string
	err = db.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(r.Context(), `
			SELECT code FROM meetings WHERE id = $1 AND created_by = $2
		`, meetingID, owner.UserID).Scan(&code)
		if errors.Is(err, sql.ErrNoRows) {
			return errMeetingNotOwned
		}
		if err != nil {
			return fmt.Errorf("query meeting: %w", err)
		}
		return deleteMeetingTx(r.Context(), tx, meetingID)
	})

	if errors.Is(err, errMeetingNotOwned) {
		middleware.MessageResponse(w, http.StatusOK, models.MsgMeetingNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to delete meeting", "meeting_id", meetingID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete meeting due to database error.")
		return
	}

	if err := h.qr.Remove(code); err != nil {
		slog.Warn("failed to remove QR code", "code", code, "error", err)
	}

	slog.Info("meeting deleted", "meeting_id", meetingID, "user_id", owner.UserID)

	middleware.MessageResponse(w, http.StatusOK, models.MsgMeetingDeleted)
}

// identityOrUnauthorized reads the identity attached by RequireAdmin
func identityOrUnauthorized(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}
