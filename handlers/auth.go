// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
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

type AuthHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *auth.Sessions
	qr       QRGenerator
}

func NewAuthHandler(db *sql.DB, cfg cliparse.Config, sessions *auth.Sessions, qr QRGenerator) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, sessions: sessions, qr: qr}
}

// RegisterPage handles GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, struct{}{})
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username is required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password is required")
		return
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password is too long")
		return
	}

	var n int
	err := h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM users WHERE username = $1`, req.Username).Scan(&n)
	if err != nil {
		slog.Error("failed to query users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n > 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Username already exists")
		return
	}

	err = h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM users WHERE email = $1`, req.Email).Scan(&n)
	if err != nil {
		slog.Error("failed to query users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n > 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Email already registered")
		return
	}

	digest, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	userID := ids.New()
	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, req.Username, req.Email, digest, time.Now().UTC())
	if db.IsUniqueViolation(err) {
		// Lost a race with a concurrent registration
		middleware.ErrorResponse(w, http.StatusBadRequest, "Username or email already registered")
		return
	}
	if err != nil {
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	if err := h.sessions.Save(w, auth.Session{IsAdmin: true, UserID: userID, Username: req.Username}); err != nil {
		slog.Error("failed to save session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	slog.Info("admin registered", "user_id", userID, "username", req.Username)

	middleware.MessageResponse(w, http.StatusOK, models.MsgRegistered)
}

// LoginPage handles GET /login. The pending flash is consumed here.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.sessions.PopFlash(w, r)
	if err != nil {
		slog.Warn("failed to clear flash", "error", err)
	}

	var resp models.LoginPageResponse
	if msg != "" {
		resp.Error = &msg
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// readLogin accepts both form posts and JSON bodies
func readLogin(r *http.Request) (models.LoginRequest, error) {
	var req models.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		defer r.Body.Close()
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	return req, nil
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := readLogin(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid login request")
		return
	}

	var user models.User
	err = h.db.QueryRowContext(r.Context(), `
		SELECT id, username, email, password_hash FROM users WHERE username = $1
	`, strings.TrimSpace(req.Username)).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		slog.Info("login failed", "username", req.Username, "remote", middleware.GetClientIP(r))
		if err := h.sessions.SetFlash(w, r, models.MsgInvalidCredentials); err != nil {
			slog.Error("failed to set flash", "error", err)
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := h.sessions.Save(w, auth.Session{IsAdmin: true, UserID: user.ID, Username: user.Username}); err != nil {
		slog.Error("failed to save session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("admin logged in", "user_id", user.ID)
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// Logout handles GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Admin handles GET /admin
func (h *AuthHandler) Admin(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.AdminResponse{UserID: id.UserID, Username: id.Username})
}

// DeleteAccount handles POST /delete-account. The admin's meetings, members
// and their attendance go with the account.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Load(r)
	if err != nil || session.UserID == 0 {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var n int
	err = h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM users WHERE id = $1`, session.UserID).Scan(&n)
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}

	var codes []string
	err = db.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		codes, err = deleteUserTx(r.Context(), tx, session.UserID)
		return err
	})
	if err != nil {
		slog.Error("failed to delete account", "user_id", session.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	for _, code := range codes {
		if err := h.qr.Remove(code); err != nil {
			slog.Warn("failed to remove QR code", "code", code, "error", err)
		}
	}

	slog.Info("account deleted", "user_id", session.UserID, "meetings", len(codes))

	h.sessions.Clear(w)
	http.Redirect(w, r, "/register", http.StatusFound)
}
