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

// ErrValidation marks request input rejected before any storage access
var ErrValidation = errors.New("validation failed")

// validationError carries a client-facing message and matches ErrValidation
type validationError string

func (e validationError) Error() string        { return string(e) }
func (e validationError) Is(target error) bool { return target == ErrValidation }

// maxCheckInAttempts bounds reruns after losing a member-insert race
const maxCheckInAttempts = 3

var (
	errMemberRace     = errors.New("member inserted concurrently")
	errAlreadyChecked = errors.New("attendance recorded concurrently")
)

type CheckInOutcome int

const (
	CheckedIn CheckInOutcome = iota
	InvalidCode
	AlreadyCheckedIn
)

// Message is the msg shown to the attendee for the outcome
func (o CheckInOutcome) Message() string {
	switch o {
	case CheckedIn:
		return models.MsgCheckInSuccess
	case InvalidCode:
		return models.MsgInvalidCode
	case AlreadyCheckedIn:
		return models.MsgAlreadyCheckedIn
	}
	return ""
}

type CheckInResult struct {
	Outcome CheckInOutcome
	Member  models.Member
	Meeting models.Meeting
}

// NormalizeCheckIn trims the request and upper-cases the code. Errors match
// ErrValidation.
func NormalizeCheckIn(req models.CheckInRequest) (models.CheckInRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	switch {
	case req.Name == "":
		return req, validationError("name is required")
	case !strings.Contains(req.Email, "@"):
		return req, validationError("a valid email is required")
	case req.Code == "":
		return req, validationError("code is required")
	}
	return req, nil
}

// RecordCheckIn checks a member in to today's meeting with the given code.
// Unknown codes and repeat check-ins are reported through the outcome, not
// as errors. A nil identity is an anonymous attendee. req must already be
// normalized.
func RecordCheckIn(ctx context.Context, conn *sql.DB, identity *auth.Identity, req models.CheckInRequest, today string) (CheckInResult, error) {
	for attempt := 1; attempt <= maxCheckInAttempts; attempt++ {
		result, err := checkInOnce(ctx, conn, identity, req, today)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, errAlreadyChecked):
			return CheckInResult{Outcome: AlreadyCheckedIn, Member: result.Member, Meeting: result.Meeting}, nil
		case errors.Is(err, errMemberRace):
			slog.Warn("member insert raced, retrying check-in", "email", req.Email, "attempt", attempt)
			continue
		default:
			return CheckInResult{}, err
		}
	}
	return CheckInResult{}, fmt.Errorf("check-in for %s: member insert kept conflicting", req.Email)
}

// checkInOnce runs one check-in transaction. A constraint violation aborts
// the whole transaction on Postgres, so races are reported as sentinels and
// resolved by the caller after rollback.
func checkInOnce(ctx context.Context, conn *sql.DB, identity *auth.Identity, req models.CheckInRequest, today string) (CheckInResult, error) {
	var result CheckInResult

	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		meeting, err := findMeetingByCode(ctx, tx, req.Code, today)
		if errors.Is(err, sql.ErrNoRows) {
			result.Outcome = InvalidCode
			return nil
		}
		if err != nil {
			return err
		}
		result.Meeting = meeting

		member, err := findMember(ctx, tx, req.Email, meeting.CreatedBy)
		if errors.Is(err, sql.ErrNoRows) {
			var owner int64
			owner, err = memberOwner(ctx, tx, identity, meeting)
			if err != nil {
				return err
			}
			member, err = insertMember(ctx, tx, req.Name, req.Email, owner)
		}
		if err != nil {
			return err
		}
		result.Member = member

		var exists int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM attendance_records
			WHERE member_id = $1 AND meeting_id = $2
		`, member.ID, meeting.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("query attendance: %w", err)
		}
		if exists > 0 {
			result.Outcome = AlreadyCheckedIn
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO attendance_records (id, member_id, meeting_id, checked_in_at)
			VALUES ($1, $2, $3, $4)
		`, ids.New(), member.ID, meeting.ID, time.Now().UTC())
		if db.IsUniqueViolation(err) {
			return errAlreadyChecked
		}
		if err != nil {
			return fmt.Errorf("insert attendance: %w", err)
		}

		result.Outcome = CheckedIn
		return nil
	})

	return result, err
}

// memberOwner picks the admin that owns a member created by this check-in.
// A session whose account was deleted falls back to the meeting's owner.
func memberOwner(ctx context.Context, tx *sql.Tx, identity *auth.Identity, meeting models.Meeting) (int64, error) {
	if identity == nil || identity.UserID == meeting.CreatedBy {
		return meeting.CreatedBy, nil
	}
	ok, err := db.UserExists(ctx, tx, identity.UserID)
	if err != nil {
		return 0, err
	}
	if !ok {
		slog.Warn("check-in session names a deleted account", "user_id", identity.UserID)
		return meeting.CreatedBy, nil
	}
	return identity.UserID, nil
}

func findMeetingByCode(ctx context.Context, tx *sql.Tx, code, date string) (models.Meeting, error) {
	var m models.Meeting
	err := tx.QueryRowContext(ctx, `
		SELECT id, date, code, title, created_by FROM meetings
		WHERE date = $1 AND code = $2
	`, date, code).Scan(&m.ID, &m.Date, &m.Code, &m.Title, &m.CreatedBy)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("query meeting by code: %w", err)
	}
	return m, err
}

// findMember is swapped in tests to replay a lookup that lost a race
var findMember = findMemberByEmail

// findMemberByEmail prefers the row owned by the meeting's admin, then the
// oldest one.
func findMemberByEmail(ctx context.Context, tx *sql.Tx, email string, preferOwner int64) (models.Member, error) {
	var (
		m     models.Member
		owner sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, name, email, created_by FROM members
		WHERE email = $1
		ORDER BY CASE WHEN created_by = $2 THEN 0 ELSE 1 END, created_at, id
		LIMIT 1
	`, email, preferOwner).Scan(&m.ID, &m.Name, &m.Email, &owner)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("query member by email: %w", err)
		}
		return m, err
	}
	if owner.Valid {
		m.CreatedBy = &owner.Int64
	}
	return m, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, name, email string, owner int64) (models.Member, error) {
	m := models.Member{ID: ids.New(), Name: name, Email: email, CreatedBy: &owner}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO members (id, name, email, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.Name, m.Email, owner, time.Now().UTC())
	if db.IsUniqueViolation(err) {
		return m, errMemberRace
	}
	if err != nil {
		return m, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

type CheckInHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *auth.Sessions
	now      func() time.Time
}

func NewCheckInHandler(db *sql.DB, cfg cliparse.Config, sessions *auth.Sessions) *CheckInHandler {
	return &CheckInHandler{db: db, cfg: cfg, sessions: sessions, now: time.Now}
}

// CheckIn handles POST /check-in
func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req, err := NormalizeCheckIn(req)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check-in is public; a logged-in admin only changes member ownership
	var identity *auth.Identity
	if id, err := h.sessions.Admin(r); err == nil {
		identity = &id
	}

	today := h.now().Format(models.DateLayout)
	result, err := RecordCheckIn(r.Context(), h.db, identity, req, today)
	if err != nil {
		slog.Error("failed to record check-in", "code", req.Code, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record check-in")
		return
	}

	if result.Outcome != CheckedIn {
		slog.Info("check-in rejected",
			"code", req.Code,
			"outcome", result.Outcome.Message(),
			"remote", middleware.GetClientIP(r),
		)
		middleware.MessageResponse(w, http.StatusOK, result.Outcome.Message())
		return
	}

	slog.Info("check-in recorded",
		"meeting_id", result.Meeting.ID,
		"member_id", result.Member.ID,
		"remote", middleware.GetClientIP(r),
	)

	middleware.JSONResponse(w, http.StatusOK, models.CheckInResponse{
		Msg:         result.Outcome.Message(),
		Name:        result.Member.Name,
		Email:       result.Member.Email,
		MeetingDate: result.Meeting.Date,
	})
}

// CheckInPage handles GET /checkin and GET /checkin/{code}, the target of
// the QR link
func (h *CheckInHandler) CheckInPage(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.CheckInPageResponse{
		Code: strings.ToUpper(r.PathValue("code")),
	})
}
