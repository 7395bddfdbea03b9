// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the OneTap attendance API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, sessions, qr.NewEncoder(cfg.QRDir, cfg.BaseURL))

# Endpoints

Health:

	GET /health

Accounts (public, session cookie):

	GET  /register       - Registration placeholder
	POST /register       - Create admin and log in
	GET  /login          - Read the login flash once
	POST /login          - Form or JSON login
	GET  /logout         - Clear the session
	POST /delete-account - Delete the admin and everything it owns

Check-in (public):

	GET  /checkin, /checkin/{code} - Code echo for the QR landing page
	POST /check-in                 - Record attendance

Admin (requires an admin session, 401 otherwise):

	GET    /admin
	GET    /api/meetings
	POST   /api/meetings
	DELETE /api/meetings/{id}
	GET    /api/members
	DELETE /api/members/{id}
	GET    /api/members/export
	GET    /api/attendance
	GET    /api/attendance/export

QR images are served from the configured directory under /static/qrcodes/.
*/
package router
