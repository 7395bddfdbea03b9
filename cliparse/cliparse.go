package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/onetap/db"
)

// nodeUnset marks -node as not given; 0 is a valid Snowflake node
const nodeUnset = -1

// maxNodeID is the largest node a 10-bit Snowflake node field holds
const maxNodeID = 1023

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
	BaseURL       string
	QRDir         string
	NodeID        int64
}

// ParseFlags builds the config from CLI flags, then the environment, then
// an optional env file. Flags always win.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := flag.NewFlagSet("onetap", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Public base URL encoded into QR codes")
	fs.StringVar(&cfg.QRDir, "qr-dir", "", "Directory for generated QR images")
	fs.Int64Var(&cfg.NodeID, "node", nodeUnset, "Snowflake node ID (0-1023)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Admin session lifetime")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", false, "Mark session cookies Secure")
	fs.StringVar(&envFile, "env-file", ".env", "Optional dotenv file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = db.DriverSQLite
		}
	}
	if cfg.DatabaseType != db.DriverSQLite && cfg.DatabaseType != db.DriverPostgres {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("BASE_URL")
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:" + strconv.Itoa(cfg.Port)
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.QRDir == "" {
		cfg.QRDir = os.Getenv("QR_DIR")
		if cfg.QRDir == "" {
			cfg.QRDir = "static/qrcodes"
		}
	}

	if cfg.NodeID == nodeUnset {
		if nodeStr := os.Getenv("NODE_ID"); nodeStr != "" {
			node, err := strconv.ParseInt(nodeStr, 10, 64)
			if err != nil {
				return Config{}, errors.New("invalid NODE_ID env variable")
			}
			cfg.NodeID = node
		} else {
			cfg.NodeID = 1
		}
	}
	if cfg.NodeID < 0 || cfg.NodeID > maxNodeID {
		return Config{}, fmt.Errorf("node ID %d out of range 0-%d", cfg.NodeID, maxNodeID)
	}

	if cfg.SessionTTL == 0 {
		if ttlStr := os.Getenv("SESSION_TTL"); ttlStr != "" {
			ttl, err := time.ParseDuration(ttlStr)
			if err != nil {
				return Config{}, errors.New("invalid SESSION_TTL env variable")
			}
			cfg.SessionTTL = ttl
		} else {
			cfg.SessionTTL = 24 * time.Hour
		}
	}

	if !cfg.SecureCookies {
		cfg.SecureCookies = os.Getenv("SECURE_COOKIES") == "true"
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	return cfg, nil
}

// loadEnvFile never overrides variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
