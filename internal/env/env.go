package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"go.uber.org/zap"
)

// Environment holds every runtime setting read from the process
// environment (optionally seeded from a .env file).
type Environment struct {
	ServerPort     int
	DataDir        string
	LedgerURL      string
	ServiceAccount string
	DebugMode      bool

	// Optional one-time lottery configuration applied at startup when the
	// store is still uninitialized. Zero values mean "not provided".
	TicketPrice   uint64
	RoundDuration time.Duration
}

// Value is populated by LoadEnv and read everywhere else.
var Value Environment

// LoadEnv reads .env (if present) and the process environment into Value.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment only")
	}

	Value = Environment{
		ServerPort:     intFromEnv("SERVER_PORT", 8080),
		DataDir:        stringFromEnv("DATA_DIR", "./data"),
		LedgerURL:      stringFromEnv("LEDGER_URL", "http://localhost:9090"),
		ServiceAccount: stringFromEnv("SERVICE_ACCOUNT", ""),
		DebugMode:      boolFromEnv("DEBUG_MODE"),
		TicketPrice:    uint64FromEnv("TICKET_PRICE"),
		RoundDuration:  durationFromEnv("ROUND_DURATION_SECONDS"),
	}

	if Value.ServiceAccount == "" {
		logger.Warn("SERVICE_ACCOUNT is not set; payment verification will reject every transfer")
	}
}

func stringFromEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intFromEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("Invalid integer in environment", zap.String("key", key), zap.String("value", v))
		return fallback
	}
	return n
}

func uint64FromEnv(key string) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		logger.Warn("Invalid unsigned integer in environment", zap.String("key", key), zap.String("value", v))
		return 0
	}
	return n
}

func durationFromEnv(key string) time.Duration {
	secs := uint64FromEnv(key)
	return time.Duration(secs) * time.Second
}

func boolFromEnv(key string) bool {
	return os.Getenv(key) == "true"
}
