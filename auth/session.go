// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SessionCookieName = "onetap_session"

// Session is the decoded content of the session cookie. The zero value is
// an anonymous visitor.
type Session struct {
	IsAdmin  bool
	UserID   int64
	Username string
	Flash    string
}

// Identity returns the admin identity carried by the session, if any
func (s Session) Identity() (Identity, bool) {
	if !s.IsAdmin || s.UserID == 0 {
		return Identity{}, false
	}
	return Identity{UserID: s.UserID, Username: s.Username}, true
}

func (s Session) empty() bool {
	return s == Session{}
}

type sessionClaims struct {
	IsAdmin  bool   `json:"is_admin,omitempty"`
	UserID   int64  `json:"uid,string,omitempty"`
	Username string `json:"username,omitempty"`
	Flash    string `json:"flash,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies session cookies with a server secret
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Encode signs the session into a cookie value
func (m *Sessions) Encode(s Session) (string, error) {
	now := m.now()
	claims := sessionClaims{
		IsAdmin:  s.IsAdmin,
		UserID:   s.UserID,
		Username: s.Username,
		Flash:    s.Flash,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies a cookie value and returns the session it carries
func (m *Sessions) Decode(value string) (Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	return Session{
		IsAdmin:  claims.IsAdmin,
		UserID:   claims.UserID,
		Username: claims.Username,
		Flash:    claims.Flash,
	}, nil
}

// Load reads the session from the request. A missing cookie yields
// ErrNoSession, a tampered or expired one ErrInvalidSession.
func (m *Sessions) Load(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, ErrNoSession
	}
	return m.Decode(cookie.Value)
}

// Save writes the session cookie. An empty session clears it.
func (m *Sessions) Save(w http.ResponseWriter, s Session) error {
	if s.empty() {
		m.Clear(w)
		return nil
	}

	value, err := m.Encode(s)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the whole session, flash included
func (m *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetFlash stores a one-shot message on the current session
func (m *Sessions) SetFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	s, _ := m.Load(r)
	s.Flash = msg
	return m.Save(w, s)
}

// PopFlash returns the pending flash message and removes it from the
// session, so it is seen at most once.
func (m *Sessions) PopFlash(w http.ResponseWriter, r *http.Request) (string, error) {
	s, err := m.Load(r)
	if err != nil || s.Flash == "" {
		return "", nil
	}

	msg := s.Flash
	s.Flash = ""
	if err := m.Save(w, s); err != nil {
		return "", err
	}
	return msg, nil
}

// Admin resolves the admin identity behind the request
func (m *Sessions) Admin(r *http.Request) (Identity, error) {
	s, err := m.Load(r)
	if err != nil {
		return Identity{}, err
	}
	id, ok := s.Identity()
	if !ok {
		return Identity{}, ErrNotAdmin
	}
	return id, nil
}
