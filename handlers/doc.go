// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the OneTap attendance API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - AuthHandler: Registration, login, logout and account deletion
  - CheckInHandler: Public check-in and the QR landing endpoint
  - MeetingHandler: Meeting create, list and delete, plus QR images
  - MemberHandler: Member list, delete and CSV export
  - AttendanceHandler: Filtered attendance listing and CSV export

Handlers are created via constructor functions that accept *sql.DB and Config:

	meetings := handlers.NewMeetingHandler(db, cfg, qr.NewEncoder(cfg.QRDir, cfg.BaseURL))

Admin endpoints expect middleware.RequireAdmin in front of them and read
the admin identity from the request context.

# Check-In

RecordCheckIn is the check-in engine:

	result, err := handlers.RecordCheckIn(ctx, db, identity, req, "2024-01-01")

It resolves today's meeting by code, finds or creates the member by email
and records attendance once per (member, meeting). Unknown codes and
repeat check-ins come back as outcomes, which the handler returns as 200
with a msg field. Concurrent identical check-ins are settled by the
storage UNIQUE constraints.

# Deletes

Deleting a meeting, a member or an admin account removes dependent
attendance first and the parent last, inside one transaction. QR image
cleanup happens after commit and only logs failures.

# Exports

Member and attendance exports stream CSV through encoding/csv. The member
export covers every member in storage.
*/
package handlers
