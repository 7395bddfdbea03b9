// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// cookieFrom returns the session cookie set on the recorder, if any
func cookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestSessions_RoundTrip(t *testing.T) {
	m := NewSessions("secret", time.Hour, false)

	w := httptest.NewRecorder()
	in := Session{IsAdmin: true, UserID: 1234567890123456789, Username: "alice"}
	if err := m.Save(w, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	c := cookieFrom(t, w)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if !c.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	out, err := m.Load(requestWith(c))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out != in {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
}

func TestSessions_Missing(t *testing.T) {
	m := NewSessions("secret", time.Hour, false)

	_, err := m.Load(requestWith(nil))
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSessions_Tampered(t *testing.T) {
	m := NewSessions("secret", time.Hour, false)
	other := NewSessions("different-secret", time.Hour, false)

	value, err := other.Encode(Session{IsAdmin: true, UserID: 1})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		value string
	}{
		{"wrong secret", value},
		{"garbage", "not-a-token"},
		{"truncated", value[:len(value)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Load(requestWith(&http.Cookie{Name: SessionCookieName, Value: tt.value}))
			if !errors.Is(err, ErrInvalidSession) {
				t.Errorf("expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestSessions_Expired(t *testing.T) {
	m := NewSessions("secret", time.Minute, false)
	issued := time.Now()
	m.now = func() time.Time { return issued }

	value, err := m.Encode(Session{IsAdmin: true, UserID: 1})
	if err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.Decode(value); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected expired session to be invalid, got %v", err)
	}
}

func TestSessions_Admin(t *testing.T) {
	m := NewSessions("secret", time.Hour, false)

	tests := []struct {
		name    string
		session *Session
		wantErr error
	}{
		{"no cookie", nil, ErrNoSession},
		{"flash only", &Session{Flash: "hi"}, ErrNotAdmin},
		{"not admin", &Session{UserID: 7, Username: "x"}, ErrNotAdmin},
		{"admin", &Session{IsAdmin: true, UserID: 7, Username: "x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c *http.Cookie
			if tt.session != nil {
				value, err := m.Encode(*tt.session)
				if err != nil {
					t.Fatal(err)
				}
				c = &http.Cookie{Name: SessionCookieName, Value: value}
			}

			id, err := m.Admin(requestWith(c))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Admin() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && id.UserID != 7 {
				t.Errorf("Admin() user = %d, want 7", id.UserID)
			}
		})
	}
}

func TestSessions_FlashReadOnce(t *testing.T) {
	m := NewSessions("secret", time.Hour, false)

	// Failed login sets the flash on an anonymous session
	w := httptest.NewRecorder()
	if err := m.SetFlash(w, requestWith(nil), "Invalid username or password"); err != nil {
		t.Fatal(err)
	}
	c := cookieFrom(t, w)
	if c == nil {
		t.Fatal("expected flash cookie")
	}

	// First read returns and clears it
	w = httptest.NewRecorder()
	msg, err := m.PopFlash(w, requestWith(c))
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Invalid username or password" {
		t.Errorf("PopFlash() = %q", msg)
	}
	cleared := cookieFrom(t, w)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected flash-only session to be cleared, got %+v", cleared)
	}

	// Second read, with the cleared cookie, sees nothing
	w = httptest.NewRecorder()
	msg, _ = m.PopFlash(w, requestWith(nil))
	if msg != "" {
		t.Errorf("second PopFlash() = %q, want empty", msg)
	}
}

func TestSessions_FlashKeepsLogin(t *testing.T) {
	m := NewSessions("secret", time.Hour, false)

	value, err := m.Encode(Session{IsAdmin: true, UserID: 5, Username: "alice", Flash: "note"})
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	msg, _ := m.PopFlash(w, requestWith(&http.Cookie{Name: SessionCookieName, Value: value}))
	if msg != "note" {
		t.Errorf("PopFlash() = %q, want note", msg)
	}

	c := cookieFrom(t, w)
	if c == nil {
		t.Fatal("expected rewritten cookie")
	}
	s, err := m.Load(requestWith(c))
	if err != nil {
		t.Fatal(err)
	}
	if s.Flash != "" || !s.IsAdmin || s.UserID != 5 {
		t.Errorf("unexpected session after PopFlash: %+v", s)
	}
}

func TestSessions_Clear(t *testing.T) {
	m := NewSessions("secret", time.Hour, true)

	w := httptest.NewRecorder()
	m.Clear(w)

	c := cookieFrom(t, w)
	if c == nil {
		t.Fatal("expected clearing cookie")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("expected expired empty cookie, got %+v", c)
	}
	if !c.Secure {
		t.Error("expected Secure attribute when configured")
	}
}
