// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the OneTap attendance API server.

OneTap tracks attendance for meetings. Admins create dated meetings, each
with a four-character check-in code and a QR image pointing at it, and
attendees check themselves in with their name and email.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=onetap.db SESSION_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -session-secret ...

A .env file in the working directory is loaded if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - SESSION_SECRET (-session-secret): Key for signing session cookies

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - BASE_URL (-base-url): Public URL encoded into QR codes
  - QR_DIR (-qr-dir): Where QR images are written (default: static/qrcodes)
  - NODE_ID (-node): Snowflake node for row IDs (default: 1)
  - SESSION_TTL (-session-ttl): Session lifetime (default: 24h)
  - SECURE_COOKIES (-secure-cookies): Mark cookies Secure

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (auth, check-in, meetings, members, attendance)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, admin guard, JSON helpers
  - models: Request/response types
  - auth: Password hashing, check-in codes, session cookies
  - qr: QR image generation
  - ids: Snowflake row IDs
  - db: Connection, schema creation and transactions
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
