// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/onetap/auth"
	"github.com/danielhkuo/onetap/models"
	"github.com/danielhkuo/onetap/testutil"
)

func TestWithLogging(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"check-in recorded", http.StatusOK, `{"msg":"Check-in successful"}`},
		{"meeting created", http.StatusCreated, `{"meeting_id":"123"}`},
		{"member missing", http.StatusNotFound, `{"error":"Not Found"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(tc.body))
			})

			req := httptest.NewRequest("POST", "/api/meetings", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if w.Body.String() != tc.body {
				t.Errorf("Expected body '%s', got '%s'", tc.body, w.Body.String())
			}
		})
	}
}

func TestWithLogging_RequestID(t *testing.T) {
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("generated when absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Header().Get(RequestIDHeader) == "" {
			t.Error("Expected a generated X-Request-ID")
		}
	})

	t.Run("propagated when present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()

		handler(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "req-123" {
			t.Errorf("Expected X-Request-ID 'req-123', got '%s'", got)
		}
	})
}

func TestJSONResponse(t *testing.T) {
	w := httptest.NewRecorder()

	JSONResponse(w, http.StatusCreated, models.CreateMeetingResponse{
		Msg:       models.MsgMeetingCreated,
		MeetingID: 42,
		Date:      "2024-01-01",
		Code:      "AB12",
		Title:     "Standup",
		QRURL:     "/static/qrcodes/AB12.png",
	})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}

	// Snowflake ids travel as strings
	var raw map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if raw["meeting_id"] != "42" {
		t.Errorf("Expected meeting_id \"42\", got %#v", raw["meeting_id"])
	}
	if raw["qr_url"] != "/static/qrcodes/AB12.png" {
		t.Errorf("Unexpected qr_url %#v", raw["qr_url"])
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(w, http.StatusNotFound, "Member not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error != "Not Found" || resp.Message != "Member not found" {
		t.Errorf("Unexpected error response %+v", resp)
	}
}

func TestMessageResponse(t *testing.T) {
	w := httptest.NewRecorder()

	MessageResponse(w, http.StatusOK, models.MsgInvalidCode)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	body := strings.TrimSpace(w.Body.String())
	if body != `{"msg":"Invalid or expired check-in code"}` {
		t.Errorf("Unexpected body '%s'", body)
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("check-in request", func(t *testing.T) {
		body := `{"name":"Ann","email":"ann@example.com","code":"ab12","extra":true}`
		req := httptest.NewRequest("POST", "/check-in", strings.NewReader(body))

		var parsed models.CheckInRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.Name != "Ann" || parsed.Email != "ann@example.com" || parsed.Code != "ab12" {
			t.Errorf("Unexpected parse result %+v", parsed)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		for _, body := range []string{"", "{invalid json}"} {
			req := httptest.NewRequest("POST", "/check-in", strings.NewReader(body))

			var parsed models.CheckInRequest
			if err := ParseJSONBody(req, &parsed); err == nil {
				t.Errorf("Expected error for body %q", body)
			}
		}
	})
}

func TestCORS(t *testing.T) {
	corsHandler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("handled"))
	}))

	t.Run("preflight stops before the handler", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/check-in", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "" {
			t.Errorf("Expected empty body for preflight, got '%s'", w.Body.String())
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
			t.Error("Expected DELETE in allowed methods")
		}
	})

	t.Run("credentialed request echoes origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/members", nil)
		req.Header.Set("Origin", "https://onetap.example")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://onetap.example" {
			t.Errorf("Expected origin echoed, got '%s'", got)
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("Expected Access-Control-Allow-Credentials to be 'true'")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:12345", "203.0.113.195"},
		{"real ip header", map[string]string{"X-Real-IP": "203.0.113.50"}, "10.0.0.1:12345", "203.0.113.50"},
		{"remote addr port stripped", nil, "192.168.1.50:54321", "192.168.1.50"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/check-in", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if got := GetClientIP(req); got != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, got)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	sessions := auth.NewSessions("test-secret", time.Hour, false)
	alice := testutil.CreateTestUser(t, conn, "alice", "alice@example.com", "secret")

	var seen auth.Identity
	var called bool
	handler := RequireAdmin(sessions, conn, func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	encode := func(m *auth.Sessions, s auth.Session) string {
		v, err := m.Encode(s)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	testCases := []struct {
		name        string
		cookie      string
		wantStatus  int
		wantCalled  bool
		wantCleared bool
	}{
		{"no session", "", http.StatusUnauthorized, false, false},
		{"flash only", encode(sessions, auth.Session{Flash: "Invalid username or password"}), http.StatusUnauthorized, false, false},
		{"forged session", encode(auth.NewSessions("other-secret", time.Hour, false), auth.Session{IsAdmin: true, UserID: alice}), http.StatusUnauthorized, false, false},
		{"deleted account", encode(sessions, auth.Session{IsAdmin: true, UserID: alice + 1, Username: "gone"}), http.StatusUnauthorized, false, true},
		{"admin session", encode(sessions, auth.Session{IsAdmin: true, UserID: alice, Username: "alice"}), http.StatusOK, true, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			seen = auth.Identity{}

			req := httptest.NewRequest("GET", "/api/meetings", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tc.cookie})
			}
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, w.Code)
			}
			if called != tc.wantCalled {
				t.Errorf("Expected handler called = %v, got %v", tc.wantCalled, called)
			}
			if tc.wantCalled && (seen.UserID != alice || seen.Username != "alice") {
				t.Errorf("Expected identity in context, got %+v", seen)
			}
			if cleared := strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0"); cleared != tc.wantCleared {
				t.Errorf("Expected cookie cleared = %v, got Set-Cookie %q", tc.wantCleared, w.Header().Get("Set-Cookie"))
			}
		})
	}
}
