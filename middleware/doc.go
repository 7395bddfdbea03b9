// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and response helpers.

# Logging

WithLogging logs the start and completion of every request with slog. The
log lines carry the method, path, client IP, status and duration. Each
request gets an X-Request-ID: the incoming header is reused, otherwise a
UUID is generated. The ID is echoed in the response.

	mux.HandleFunc("GET /api/meetings", middleware.WithLogging(handler))

# Admin Guard

RequireAdmin verifies the signed session cookie and that its account still
exists. Requests without a live admin session are answered with 401 and
never reach the handler. Otherwise the auth.Identity is stored in the
request context:

	middleware.RequireAdmin(sessions, conn, meetingHandler.List)

# Response Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
	middleware.MessageResponse(w, http.StatusOK, models.MsgInvalidCode)

ErrorResponse bodies look like:

	{"error": "Bad Request", "message": "title is required"}

MessageResponse is used for confirmations and soft outcomes:

	{"msg": "Member already checked in for this meeting"}

# Request Parsing

	var req models.CheckInRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil { ... }

# CORS

CORS echoes the request origin and allows credentials, so the dashboard can
send the session cookie from another origin.

# Client IP

GetClientIP checks X-Forwarded-For, then X-Real-IP, then RemoteAddr.
*/
package middleware
