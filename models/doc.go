// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterRequest: username, email, password
  - LoginRequest: username, password (form fields are also accepted)
  - CheckInRequest: name, email, code
  - CreateMeetingRequest: title, date (YYYY-MM-DD)

# Response Types

  - MessageResponse: msg (confirmations and soft outcomes)
  - CheckInResponse: msg, name, email, meeting_date
  - CreateMeetingResponse: msg, meeting_id, date, code, title, qr_url
  - MeetingListResponse, MemberListResponse, AttendanceListResponse
  - LoginPageResponse: one-shot login error
  - ErrorResponse: error, message

# Domain Types

  - User: admin account
  - Member: attendee owned by an admin
  - Meeting: dated event with a 4-character check-in code
  - AttendanceEntry: joined attendance row for listings
  - AttendanceRow: raw attendance row; Entry fills gone members or meetings
    with the (deleted) and N/A placeholders

All IDs are Snowflake int64 values and are encoded as JSON strings.

# Soft Outcomes

Expected non-success results are successful responses with a message:

	MsgInvalidCode      = "Invalid or expired check-in code"
	MsgAlreadyCheckedIn = "Member already checked in for this meeting"
	MsgMeetingNotFound  = "Meeting not found or unauthorized"
*/
package models
