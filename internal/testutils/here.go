package testutils

import (
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
)

func here(skip int) string {
	_, file, line, _ := runtime.Caller(skip + 1)
	return fmt.Sprintf("[%s:%d] ", filepath.Base(file), line)
}

// ErrorHere reports a failure tagged with the caller's position, for checks
// made inside loops where the test line alone is ambiguous.
func ErrorHere(t testing.TB, format string, args ...interface{}) {
	t.Helper()
	t.Errorf(here(1)+format, args...)
}

func FatalHere(t testing.TB, format string, args ...interface{}) {
	t.Helper()
	t.Fatalf(here(1)+format, args...)
}
