package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
}

// Enabled reports whether a database was configured at all. The dashboard
// runs without one; only the mutation journal needs it.
func (c Config) Enabled() bool { return strings.TrimSpace(c.DSN) != "" }

// ConfigFromEnv reads DB config from environment variables
func ConfigFromEnv() Config {
	max := 5
	if v, err := strconv.Atoi(os.Getenv("DATABASE_MAX_CONNS")); err == nil && v > 0 {
		max = v
	}
	return Config{
		DSN:            os.Getenv("DATABASE_URL"),
		MaxConns:       max,
		Timeout:        5 * time.Second,
		TimeZone:       os.Getenv("DATABASE_TIMEZONE"),
		ClientEncoding: os.Getenv("DATABASE_CLIENT_ENCODING"),
	}
}

// Connect opens a postgres pool and verifies connectivity with a ping
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("open db: DATABASE_URL is not set")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	// SET does not take placeholders
	if cfg.TimeZone != "" {
		if _, err := db.ExecContext(pingCtx, "SET TIME ZONE "+quoteLiteral(cfg.TimeZone)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set time zone: %w", err)
		}
	}
	if cfg.ClientEncoding != "" {
		if _, err := db.ExecContext(pingCtx, "SET client_encoding = "+quoteLiteral(cfg.ClientEncoding)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set client_encoding: %w", err)
		}
	}
	return db, nil
}

// quoteLiteral escapes single quotes and wraps the value in single quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
