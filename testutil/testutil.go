// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/onetap/auth"
	"github.com/danielhkuo/onetap/cliparse"
	"github.com/danielhkuo/onetap/db"
	"github.com/danielhkuo/onetap/ids"
)

// TestDate is the "today" used by handler tests with a fixed clock
var TestDate = time.Date(2024, 1, 1, 9, 30, 0, 0, time.Local)

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Hashing at the default cost makes every registration take ~100ms
	auth.PasswordCost = bcrypt.MinCost

	conn, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   ":memory:",
		DatabaseType:  db.DriverSQLite,
		SessionSecret: "test-session-secret",
		SessionTTL:    time.Hour,
		BaseURL:       "http://localhost:3318",
		QRDir:         "static/qrcodes",
		NodeID:        1,
	}
}

// GetTestSessions returns the session manager matching GetTestConfig
func GetTestSessions(cfg cliparse.Config) *auth.Sessions {
	return auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
}

// CreateTestUser inserts an admin and returns its ID
func CreateTestUser(t *testing.T, conn *sql.DB, username, email, password string) int64 {
	t.Helper()

	digest, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	userID := ids.New()
	_, err = conn.Exec(`
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, username, email, digest, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID
}

// CreateTestMeeting inserts a meeting owned by ownerID and returns its ID
func CreateTestMeeting(t *testing.T, conn *sql.DB, ownerID int64, title, date, code string) int64 {
	t.Helper()

	meetingID := ids.New()
	_, err := conn.Exec(`
		INSERT INTO meetings (id, date, code, title, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, meetingID, date, code, title, ownerID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test meeting: %v", err)
	}

	return meetingID
}

// CreateTestMember inserts a member. ownerID 0 stores a NULL owner.
func CreateTestMember(t *testing.T, conn *sql.DB, ownerID int64, name, email string) int64 {
	t.Helper()

	var owner *int64
	if ownerID != 0 {
		owner = &ownerID
	}

	memberID := ids.New()
	_, err := conn.Exec(`
		INSERT INTO members (id, name, email, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, memberID, name, email, owner, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test member: %v", err)
	}

	return memberID
}

// CreateTestAttendance records a check-in directly
func CreateTestAttendance(t *testing.T, conn *sql.DB, memberID, meetingID int64) int64 {
	t.Helper()

	recordID := ids.New()
	_, err := conn.Exec(`
		INSERT INTO attendance_records (id, member_id, meeting_id, checked_in_at)
		VALUES ($1, $2, $3, $4)
	`, recordID, memberID, meetingID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test attendance: %v", err)
	}

	return recordID
}

// CountRows runs a COUNT query and returns the result
func CountRows(t *testing.T, conn *sql.DB, query string, args ...interface{}) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// AdminCookie returns a signed session cookie for the given admin
func AdminCookie(t *testing.T, sessions *auth.Sessions, userID int64, username string) *http.Cookie {
	t.Helper()

	value, err := sessions.Encode(auth.Session{IsAdmin: true, UserID: userID, Username: username})
	if err != nil {
		t.Fatalf("Failed to encode session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: value}
}

// SessionCookie extracts the session cookie set on a response, or nil
func SessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// FakeQR records generated and removed codes instead of touching disk
type FakeQR struct {
	mu        sync.Mutex
	Generated []string
	Removed   []string
	FailGen   bool
	FailRm    bool
}

func (f *FakeQR) Generate(code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailGen {
		return "", errors.New("qr encoder unavailable")
	}
	f.Generated = append(f.Generated, code)
	return f.URL(code), nil
}

func (f *FakeQR) Remove(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRm {
		return errors.New("qr remove failed")
	}
	f.Removed = append(f.Removed, code)
	return nil
}

func (f *FakeQR) URL(code string) string {
	return "/static/qrcodes/" + code + ".png"
}
