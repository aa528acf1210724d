// Package config loads runtime configuration from the environment, with a
// .env file honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	AnthropicAPIKey string
	AdminKey        string

	// Server
	Port   int
	DBPath string

	// League
	Seed            int64
	CapNumber       int64
	TaxLine         int64
	SalaryTolerance float64
	MinRoster       int
	MaxRoster       int

	// Policy thresholds (weighted value points)
	AcceptThreshold float64
	CounterFloor    float64
	MaxCounterDepth int

	// Simulation
	Rounds           int // Rounds to run at startup, 0 = none
	AutoRoundSeconds int // Background round cadence, 0 = disabled
	SaveOnShutdown   bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AdminKey:        envStr("FRONTOFFICE_ADMIN_KEY", ""),

		Port:   envInt("FRONTOFFICE_PORT", 8080),
		DBPath: envStr("FRONTOFFICE_DB", "frontoffice.db"),

		Seed:            envInt64("FRONTOFFICE_SEED", 42),
		CapNumber:       envInt64("FRONTOFFICE_CAP", 123_000_000),
		TaxLine:         envInt64("FRONTOFFICE_TAX_LINE", 150_000_000),
		SalaryTolerance: envFloat("FRONTOFFICE_SALARY_TOLERANCE", 0.25),
		MinRoster:       envInt("FRONTOFFICE_MIN_ROSTER", 8),
		MaxRoster:       envInt("FRONTOFFICE_MAX_ROSTER", 15),

		AcceptThreshold: envFloat("FRONTOFFICE_ACCEPT_THRESHOLD", -5),
		CounterFloor:    envFloat("FRONTOFFICE_COUNTER_FLOOR", -15),
		MaxCounterDepth: envInt("FRONTOFFICE_MAX_COUNTER_DEPTH", 3),

		Rounds:           envInt("FRONTOFFICE_ROUNDS", 0),
		AutoRoundSeconds: envInt("FRONTOFFICE_AUTO_ROUND_SECONDS", 0),
		SaveOnShutdown:   envBool("FRONTOFFICE_SAVE_ON_SHUTDOWN", true),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.CapNumber <= 0 {
		errs = append(errs, "FRONTOFFICE_CAP must be positive")
	}
	if c.TaxLine < c.CapNumber {
		errs = append(errs, "FRONTOFFICE_TAX_LINE must be at or above the cap")
	}
	if c.SalaryTolerance < 0 {
		errs = append(errs, "FRONTOFFICE_SALARY_TOLERANCE must not be negative")
	}
	if c.MinRoster < 1 || c.MaxRoster < c.MinRoster {
		errs = append(errs, "roster bounds must satisfy 1 <= min <= max")
	}
	if c.CounterFloor > c.AcceptThreshold {
		errs = append(errs, "FRONTOFFICE_COUNTER_FLOOR must not exceed FRONTOFFICE_ACCEPT_THRESHOLD")
	}
	if c.MaxCounterDepth < 0 {
		errs = append(errs, "FRONTOFFICE_MAX_COUNTER_DEPTH must not be negative")
	}
	if c.AnthropicAPIKey == "" {
		fmt.Println("[WARN] ANTHROPIC_API_KEY not set — GM reasoning uses the rule-based advisor only")
	}
	if c.AdminKey == "" {
		fmt.Println("[WARN] FRONTOFFICE_ADMIN_KEY not set — admin endpoints disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
