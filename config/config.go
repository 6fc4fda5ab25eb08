/*
Package config loads runtime configuration from the environment.

PURPOSE:
  Central place for every tunable: the HTTP port, the database path, and
  the audit tolerances. Values come from environment variables with a
  .env file loaded first (godotenv), so local development and deployment
  use the same mechanism.

VARIABLES:
  PAYSTUB_PORT           HTTP listen port            (default 8080)
  PAYSTUB_DB             SQLite database path        (default paystubs.db)
  PAYSTUB_TOL_MONEY      Money comparison tolerance  (default 0.01)
  PAYSTUB_TOL_TAX_RATE   Relative tax-rate tolerance (default 0.001)
  PAYSTUB_TOL_LEAVE_MIN  Leave tolerance in minutes  (default 0)

SEE ALSO:
  - paystub/tolerance.go: tolerance defaults and semantics
  - cmd/server/main.go: consumer
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/warp/paystub-audit/paystub"
)

// Config holds all runtime settings.
type Config struct {
	Port       int
	DBPath     string
	Tolerances paystub.Tolerances
}

// Load reads .env (if present) and the environment. Unset variables fall
// back to defaults; malformed values are an error, never silently ignored.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is a valid source.
	_ = godotenv.Load()

	cfg := &Config{
		Port:       8080,
		DBPath:     "paystubs.db",
		Tolerances: paystub.DefaultTolerances(),
	}

	if v := os.Getenv("PAYSTUB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PAYSTUB_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("PAYSTUB_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PAYSTUB_TOL_MONEY"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("PAYSTUB_TOL_MONEY: %w", err)
		}
		cfg.Tolerances.Money = d
	}
	if v := os.Getenv("PAYSTUB_TOL_TAX_RATE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("PAYSTUB_TOL_TAX_RATE: %w", err)
		}
		cfg.Tolerances.TaxRateRel = d
	}
	if v := os.Getenv("PAYSTUB_TOL_LEAVE_MIN"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PAYSTUB_TOL_LEAVE_MIN: %w", err)
		}
		cfg.Tolerances.LeaveMinutes = n
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
