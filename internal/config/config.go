package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SPECALIGN_ENV (or .env by
// default), then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SPECALIGN_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// SuggestionThreshold returns the minimum confidence at which the
// matching engine surfaces a candidate. Defaults to 0.5.
func SuggestionThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("SUGGESTION_THRESHOLD"), 64)
	if err != nil || t <= 0 || t > 1 {
		return 0.5
	}
	return t
}

// SuggestionTimeout bounds a single suggestion run. The comparison
// space grows with vendors and specialties squared, so large uploads
// need a ceiling. Defaults to 30s.
func SuggestionTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SUGGESTION_TIMEOUT"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RulePruneInterval returns how often stale matching rules are swept.
// Defaults to 1h.
func RulePruneInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("RULE_PRUNE_INTERVAL"))
	if err != nil || d <= 0 {
		return 1 * time.Hour
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
