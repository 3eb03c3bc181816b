package logger

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/Alexander-D-Karpov/minivsfs/internal/config"
)

var (
	level = config.LogLevelInfo
	tag   string
	std   = log.New(os.Stderr, "", log.LstdFlags)
	mu    sync.RWMutex
)

func SetLevel(l config.LogLevel) {
	mu.Lock()
	level = l
	mu.Unlock()
}

func GetLevel() config.LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput redirects log lines, stderr by default.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetTag prefixes every following line with tag, typically a per-run id.
func SetTag(t string) {
	mu.Lock()
	tag = t
	mu.Unlock()
}

func output(prefix, format string, args ...interface{}) {
	mu.RLock()
	t := tag
	mu.RUnlock()
	if t != "" {
		prefix += "[" + t + "] "
	}
	std.Printf(prefix+format, args...)
}

func Debug(format string, args ...interface{}) {
	if GetLevel() <= config.LogLevelDebug {
		output("[DEBUG] ", format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if GetLevel() <= config.LogLevelInfo {
		output("[INFO] ", format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if GetLevel() <= config.LogLevelWarn {
		output("[WARN] ", format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if GetLevel() <= config.LogLevelError {
		output("[ERROR] ", format, args...)
	}
}
