// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - SessionSecret: Secret used to sign session cookies (required)
  - SessionTTL: Admin session lifetime (default: 24h)
  - SecureCookies: Set the Secure attribute on the session cookie
  - BaseURL: Public URL encoded into QR codes (default: http://localhost:<port>)
  - QRDir: Where QR images are written (default: static/qrcodes)
  - NodeID: Snowflake node for ID generation (default: 1)

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type
	-session-secret  Session signing secret
	-session-ttl     Session lifetime
	-secure-cookies  Secure session cookie
	-base-url        Public base URL
	-qr-dir          QR image directory
	-node            Snowflake node ID
	-env-file        Dotenv file (default: .env)

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	SESSION_SECRET → -session-secret
	SESSION_TTL    → -session-ttl
	SECURE_COOKIES → -secure-cookies
	BASE_URL       → -base-url
	QR_DIR         → -qr-dir
	NODE_ID        → -node

Variables from the env file are loaded with godotenv and never override
variables already present in the process environment. A missing env file
is not an error.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL is missing
  - SESSION_SECRET is missing
  - DATABASE_TYPE is not sqlite or postgres
*/
package cliparse
