// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/onetap/auth"
	"github.com/danielhkuo/onetap/cliparse"
	"github.com/danielhkuo/onetap/handlers"
	"github.com/danielhkuo/onetap/middleware"
	"github.com/danielhkuo/onetap/qr"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, sessions *auth.Sessions, qrgen handlers.QRGenerator) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, sessions, qrgen)
	checkInHandler := handlers.NewCheckInHandler(db, cfg, sessions)
	meetingHandler := handlers.NewMeetingHandler(db, cfg, qrgen)
	memberHandler := handlers.NewMemberHandler(db, cfg)
	attendanceHandler := handlers.NewAttendanceHandler(db, cfg)

	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(sessions, db, next))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Accounts and sessions
	mux.HandleFunc("GET /register", middleware.WithLogging(authHandler.RegisterPage))
	mux.HandleFunc("POST /register", middleware.WithLogging(authHandler.Register))
	mux.HandleFunc("GET /login", middleware.WithLogging(authHandler.LoginPage))
	mux.HandleFunc("POST /login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("GET /logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("POST /delete-account", middleware.WithLogging(authHandler.DeleteAccount))
	mux.HandleFunc("GET /admin", admin(authHandler.Admin))

	// Check-in (public)
	mux.HandleFunc("GET /checkin", middleware.WithLogging(checkInHandler.CheckInPage))
	mux.HandleFunc("GET /checkin/{code}", middleware.WithLogging(checkInHandler.CheckInPage))
	mux.HandleFunc("POST /check-in", middleware.WithLogging(checkInHandler.CheckIn))

	// Meetings
	mux.HandleFunc("GET /api/meetings", admin(meetingHandler.List))
	mux.HandleFunc("POST /api/meetings", admin(meetingHandler.Create))
	mux.HandleFunc("DELETE /api/meetings/{id}", admin(meetingHandler.Delete))

	// Members
	mux.HandleFunc("GET /api/members", admin(memberHandler.List))
	mux.HandleFunc("GET /api/members/export", admin(memberHandler.Export))
	mux.HandleFunc("DELETE /api/members/{id}", admin(memberHandler.Delete))

	// Attendance
	mux.HandleFunc("GET /api/attendance", admin(attendanceHandler.List))
	mux.HandleFunc("GET /api/attendance/export", admin(attendanceHandler.Export))

	// QR images
	mux.Handle("GET "+qr.URLPrefix, qr.FileHandler(cfg.QRDir))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("onetap attendance API v1"))
	})

	return mux
}
