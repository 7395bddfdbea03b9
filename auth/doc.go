// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides passwords, check-in codes, and admin sessions.

# Passwords

Admin passwords are stored as bcrypt digests:

	digest, err := auth.HashPassword(password)
	ok := auth.CheckPassword(password, digest)

bcrypt rejects inputs over MaxPasswordBytes (72).

# Check-in Codes

Meeting codes are 4 characters from A-Z and 0-9, drawn from crypto/rand:

	code, err := auth.GenerateCode(auth.CodeLength)

The code space is 36^4. Callers must check storage for collisions.

# Sessions

Sessions live in a signed cookie (HS256 JWT) named onetap_session:

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
	err := sessions.Save(w, auth.Session{IsAdmin: true, UserID: id, Username: name})
	s, err := sessions.Load(r)
	sessions.Clear(w)

A missing cookie gives ErrNoSession. A tampered or expired one gives
ErrInvalidSession.

# Flash Messages

A flash is a one-shot message stored on the session. SetFlash writes it
and PopFlash reads and removes it:

	sessions.SetFlash(w, r, "Invalid username or password")
	msg, _ := sessions.PopFlash(w, r) // second call returns ""

# Identity

Identity is the authenticated admin for one request. The admin guard stores
it in the request context, and handlers pass it explicitly to the functions
they call:

	ctx = auth.WithIdentity(ctx, id)
	id, ok := auth.IdentityFromContext(ctx)
*/
package auth
