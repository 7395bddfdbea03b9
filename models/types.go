package models

import "database/sql"

// Check-in and delete outcomes. Soft outcomes are returned with 200 OK.
const (
	MsgCheckInSuccess     = "Check-in successful"
	MsgInvalidCode        = "Invalid or expired check-in code"
	MsgAlreadyCheckedIn   = "Member already checked in for this meeting"
	MsgRegistered         = "Registration successful"
	MsgMeetingCreated     = "Meeting created successfully"
	MsgMeetingDeleted     = "Meeting deleted successfully"
	MsgMeetingNotFound    = "Meeting not found or unauthorized"
	MsgMemberDeleted      = "Member deleted successfully"
	MsgInvalidCredentials = "Invalid username or password"
)

// Placeholders for attendance rows whose member or meeting is gone
const (
	DeletedPlaceholder = "(deleted)"
	MissingDate        = "N/A"
)

// DateLayout is the wire and storage format for meeting dates
const DateLayout = "2006-01-02"

// Request types

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CheckInRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Code  string `json:"code"`
}

type CreateMeetingRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Response types

// MessageResponse carries both soft outcomes and plain confirmations
type MessageResponse struct {
	Msg string `json:"msg"`
}

type CheckInResponse struct {
	Msg         string `json:"msg"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	MeetingDate string `json:"meeting_date,omitempty"`
}

type CreateMeetingResponse struct {
	Msg       string `json:"msg"`
	MeetingID int64  `json:"meeting_id,string"`
	Date      string `json:"date"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	QRURL     string `json:"qr_url"`
}

type MeetingListResponse struct {
	Meetings []Meeting `json:"meetings"`
}

type MemberListResponse struct {
	Members []Member `json:"members"`
}

type AttendanceListResponse struct {
	Attendance []AttendanceEntry `json:"attendance"`
}

type LoginPageResponse struct {
	Error *string `json:"error"`
}

type CheckInPageResponse struct {
	Code string `json:"code"`
}

type AdminResponse struct {
	UserID   int64  `json:"user_id,string"`
	Username string `json:"username"`
}

// Domain types

type User struct {
	ID           int64  `json:"id,string"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never expose in JSON
}

type Member struct {
	ID        int64  `json:"id,string"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedBy *int64 `json:"-"`
}

type Meeting struct {
	ID        int64  `json:"id,string"`
	Date      string `json:"date"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	QRURL     string `json:"qr_url,omitempty"`
	CreatedBy int64  `json:"-"`
}

// AttendanceEntry is one row of the attendance listing. UserID refers to
// the member, not the admin.
type AttendanceEntry struct {
	ID           int64  `json:"id,string"`
	UserID       int64  `json:"user_id,string"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	MeetingID    int64  `json:"meeting_id,string"`
	MeetingTitle string `json:"meeting_title"`
	MeetingDate  string `json:"meeting_date"`
}

// AttendanceRow is an attendance record as read from storage. The member
// and meeting columns are NULL when the referenced row no longer exists.
type AttendanceRow struct {
	ID           int64
	MemberID     int64
	MeetingID    int64
	MemberName   sql.NullString
	MemberEmail  sql.NullString
	MeetingTitle sql.NullString
	MeetingDate  sql.NullString
}

// Orphaned reports whether the member or the meeting is gone
func (r AttendanceRow) Orphaned() bool {
	return !r.MemberName.Valid || !r.MeetingTitle.Valid
}

// Entry renders the row, filling gaps with placeholders
func (r AttendanceRow) Entry() AttendanceEntry {
	return AttendanceEntry{
		ID:           r.ID,
		UserID:       r.MemberID,
		UserName:     orPlaceholder(r.MemberName, DeletedPlaceholder),
		UserEmail:    orPlaceholder(r.MemberEmail, DeletedPlaceholder),
		MeetingID:    r.MeetingID,
		MeetingTitle: orPlaceholder(r.MeetingTitle, DeletedPlaceholder),
		MeetingDate:  orPlaceholder(r.MeetingDate, MissingDate),
	}
}

func orPlaceholder(s sql.NullString, placeholder string) string {
	if !s.Valid {
		return placeholder
	}
	return s.String
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
