package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// CopyImage writes a byte-for-byte copy of src to dst, creating or
// truncating dst.
func CopyImage(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open input image: %w", err)
	}
	defer in.Close()

	inInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat input image: %w", err)
	}
	if outInfo, err := os.Stat(dst); err == nil && os.SameFile(inInfo, outInfo) {
		return errors.New("input and output images are the same file")
	}

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create output image: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy image: %w", err)
	}
	return out.Close()
}
