// Command validator checks a MiniVSFS image without modifying it. It exits 0
// only when every check passes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/Alexander-D-Karpov/minivsfs/internal/config"
	"github.com/Alexander-D-Karpov/minivsfs/internal/logger"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
	"github.com/Alexander-D-Karpov/minivsfs/internal/validator"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.SetOutput(stderr)
	logger.SetTag(uuid.NewString())

	fs := flag.NewFlagSet("validator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: validator IMAGE")
		return 2
	}

	img, err := storage.OpenReadOnly(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "[FAIL] open image: %v\n", err)
		return 1
	}
	defer img.Close()

	report := validator.Validate(img)
	report.Print(stdout, stderr)
	if !report.Passed() {
		logger.Debug("%s failed at %q", fs.Arg(0), report.Failed().Name)
		return 1
	}
	return 0
}
