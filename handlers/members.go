// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/onetap/cliparse"
	"github.com/danielhkuo/onetap/db"
	"github.com/danielhkuo/onetap/ids"
	"github.com/danielhkuo/onetap/middleware"
	"github.com/danielhkuo/onetap/models"
)

var errMemberNotOwned = errors.New("member not found or not owned")

type MemberHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewMemberHandler(db *sql.DB, cfg cliparse.Config) *MemberHandler {
	return &MemberHandler{db: db, cfg: cfg}
}

// List handles GET /api/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, name, email FROM members
		WHERE created_by = $1
		ORDER BY name, id
	`, owner.UserID)
	if err != nil {
		slog.Error("failed to query members", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			slog.Error("failed to scan member", "error", err)
			continue
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate members", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MemberListResponse{Members: members})
}

// Delete handles DELETE /api/members/{id}
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	memberID, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid member id")
		return
	}

	err = db.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM members WHERE id = $1 AND created_by = $2
		`, memberID, owner.UserID).Scan(&n)
		if err != nil {
			return fmt.Errorf("query member: %w", err)
		}
		if n == 0 {
			return errMemberNotOwned
		}
		return deleteMemberTx(r.Context(), tx, memberID)
	})

	if errors.Is(err, errMemberNotOwned) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete member", "member_id", memberID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete member")
		return
	}

	slog.Info("member deleted", "member_id", memberID, "user_id", owner.UserID)

	middleware.MessageResponse(w, http.StatusOK, models.MsgMemberDeleted)
}

// Export handles GET /api/members/export. The export covers every member
// in storage, not only the caller's.
func (h *MemberHandler) Export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `SELECT name, email FROM members ORDER BY created_at, id`)
	if err != nil {
		slog.Error("failed to query members for export", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	out, err := newCSVStream(w, "members.csv", []string{"Name", "Email"})
	if err != nil {
		slog.Error("failed to start members export", "error", err)
		return
	}

	for rows.Next() {
		var name, email string
		if err := rows.Scan(&name, &email); err != nil {
			slog.Error("failed to scan member", "error", err)
			continue
		}
		if err := out.Write([]string{name, email}); err != nil {
			break
		}
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate members for export", "error", err)
	}

	out.Close() //nolint:errcheck
}
