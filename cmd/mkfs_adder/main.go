// Command mkfs_adder copies a MiniVSFS image and adds one regular file to the
// root directory of the copy.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/Alexander-D-Karpov/minivsfs/internal/config"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/logger"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
	"github.com/Alexander-D-Karpov/minivsfs/internal/usecase"
	"github.com/Alexander-D-Karpov/minivsfs/internal/validator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.SetOutput(stderr)
	logger.SetTag(uuid.NewString())

	fs := flag.NewFlagSet("mkfs_adder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "the image to read")
	output := fs.String("output", "", "the image to write, created or truncated")
	file := fs.String("file", "", "the regular file to add to the root directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" || *output == "" || *file == "" || fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Usage: mkfs_adder --input IN.img --output OUT.img --file FILE")
		fs.PrintDefaults()
		return 2
	}

	ino, err := addFile(ctx, cfg, *input, *output, *file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "File '%s' added successfully to inode %d\n", domain.TruncateName(filepath.Base(*file)), ino)
	return 0
}

func addFile(ctx context.Context, cfg *config.Config, input, output, file string) (uint32, error) {
	src, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", file)
	}

	logger.Debug("copying %s to %s", input, output)
	if err := storage.CopyImage(input, output); err != nil {
		return 0, err
	}

	img, err := storage.Open(output)
	if err != nil {
		return 0, err
	}

	ino, err := usecase.NewInserter(img, usecase.WithSync(cfg.Sync)).
		Insert(ctx, filepath.Base(file), src, info.Size())
	if err != nil {
		img.Close()
		return 0, err
	}

	if cfg.Verify {
		if failed := validator.Validate(img).Failed(); failed != nil {
			img.Close()
			return 0, fmt.Errorf("output image failed %q: %w", failed.Name, failed.Err)
		}
		logger.Debug("output image passed validation")
	}

	if err := img.Close(); err != nil {
		return 0, fmt.Errorf("close output image: %w", err)
	}
	return ino, nil
}
