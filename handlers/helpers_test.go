// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/danielhkuo/onetap/auth"
	"github.com/danielhkuo/onetap/testutil"
)

// today matches testutil.TestDate
const today = "2024-01-01"

func fixedClock() time.Time { return testutil.TestDate }

// asAdmin attaches an admin identity the way RequireAdmin does
func asAdmin(req *http.Request, userID int64, username string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID, Username: username}))
}

func readCSV(t *testing.T, w *httptest.ResponseRecorder) [][]string {
	t.Helper()

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	return records
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
