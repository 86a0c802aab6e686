package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	MissingFill = "fill"
	MissingSkip = "skip"
)

var ErrInvalidMissingPolicy = errors.New("MISSING_LISTINGS must be one of: fill, skip")

type Config struct {
	LogLevel string

	// TargetCountry and MileageUnit are written verbatim to every output
	// record. The defaults assume Swiss listings with odometers in "Km".
	TargetCountry string
	MileageUnit   string

	MissingListings  string
	StrictAttributes bool

	RunLedgerPath string
	RunsListLimit int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TargetCountry: getEnv("TARGET_COUNTRY", "CH"),
		MileageUnit:   getEnv("MILEAGE_UNIT", "kilometer"),

		MissingListings:  strings.ToLower(strings.TrimSpace(getEnv("MISSING_LISTINGS", MissingFill))),
		StrictAttributes: getEnvBool("STRICT_ATTRIBUTES", false),

		RunLedgerPath: getEnv("RUN_LEDGER_PATH", ""),
		RunsListLimit: getEnvInt("RUNS_LIST_LIMIT", 20),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		LogLevel:        "info",
		TargetCountry:   "CH",
		MileageUnit:     "kilometer",
		MissingListings: MissingFill,
		RunsListLimit:   20,
	}
}

func (c Config) Validate() error {
	switch c.MissingListings {
	case MissingFill, MissingSkip:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidMissingPolicy, c.MissingListings)
	}
	return nil
}

func (c Config) LedgerEnabled() bool {
	return strings.TrimSpace(c.RunLedgerPath) != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
