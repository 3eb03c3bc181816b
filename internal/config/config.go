package config

import (
	"os"
	"strings"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Config holds the knobs shared by the command line tools. Paths come from
// flags; everything here comes from the environment.
type Config struct {
	LogLevel LogLevel
	// Sync fsyncs the output image once an insertion succeeds.
	Sync bool
	// Verify runs the validator over the output image after an insertion.
	Verify bool
}

func Load() *Config {
	return &Config{
		LogLevel: parseLogLevel(getEnv("MINIVSFS_LOG_LEVEL", "info")),
		Sync:     getEnvBool("MINIVSFS_SYNC", true),
		Verify:   getEnvBool("MINIVSFS_VERIFY", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		v := strings.ToLower(value)
		return v == "true" || v == "1" || v == "yes"
	}
	return defaultValue
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
