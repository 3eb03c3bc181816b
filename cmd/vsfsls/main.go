// Command vsfsls lists the root directory of a MiniVSFS image, one entry per
// line with its inode, type, size and the BLAKE2b-256 digest of its contents.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/Alexander-D-Karpov/minivsfs/internal/config"
	"github.com/Alexander-D-Karpov/minivsfs/internal/crypto"
	"github.com/Alexander-D-Karpov/minivsfs/internal/directory"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/logger"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.SetOutput(stderr)
	logger.SetTag(uuid.NewString())

	fs := flag.NewFlagSet("vsfsls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: vsfsls IMAGE")
		return 2
	}

	if err := list(fs.Arg(0), stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func list(path string, w io.Writer) error {
	img, err := storage.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer img.Close()

	sb := img.Superblock()
	if !sb.HeaderOK() {
		return fmt.Errorf("not a MiniVSFS image: %w", domain.ErrCorrupted)
	}
	root, err := img.ReadInode(domain.RootIno)
	if err != nil {
		return err
	}
	slots, err := directory.Entries(img, root)
	if err != nil {
		return err
	}

	for _, s := range slots {
		if !s.ChecksumOK {
			logger.Warn("entry %q in block %d slot %d has a bad checksum", s.Name(), s.Block, s.Index)
		}
		ino, err := img.ReadInode(s.Entry.Ino)
		if err != nil {
			return fmt.Errorf("entry %q: %w", s.Name(), err)
		}

		kind, digest := "dir", "-"
		if s.Entry.Type == domain.EntryTypeFile {
			kind = "file"
			r, err := img.FileReader(ino)
			if err != nil {
				return fmt.Errorf("entry %q: %w", s.Name(), err)
			}
			if digest, err = crypto.Digest(r); err != nil {
				return fmt.Errorf("entry %q: %w", s.Name(), err)
			}
		}
		fmt.Fprintf(w, "%d %s %d %s %s\n", s.Entry.Ino, kind, ino.SizeBytes, digest, s.Name())
	}
	return nil
}
