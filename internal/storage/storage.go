package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

// Device is the backing store of an image. *os.File satisfies it.
type Device interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Close() error
}

// Image is positional access to one MiniVSFS image. All layout arithmetic
// lives here so that the insertion and validation paths agree on offsets.
// It keeps no cache besides the superblock it was opened with.
type Image struct {
	dev Device
	sb  domain.Superblock
}

// Open opens an existing image for reading and writing.
func Open(path string) (*Image, error) {
	return openFile(path, os.O_RDWR)
}

// OpenReadOnly opens an existing image that must not be modified.
func OpenReadOnly(path string) (*Image, error) {
	return openFile(path, os.O_RDONLY)
}

func openFile(path string, flag int) (*Image, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	img, err := NewImage(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

// NewImage reads the superblock from dev. The superblock is decoded but not
// validated; callers decide how strict to be.
func NewImage(dev Device) (*Image, error) {
	img := &Image{dev: dev}
	block := make([]byte, domain.BlockSize)
	if err := img.readAt(block, 0); err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	img.sb = DecodeSuperblock(block)
	return img, nil
}

// Superblock returns a copy of the superblock as last read or written.
func (img *Image) Superblock() domain.Superblock {
	return img.sb
}

// ReadSuperblockRaw returns block 0 exactly as stored.
func (img *Image) ReadSuperblockRaw() ([]byte, error) {
	block := make([]byte, domain.BlockSize)
	if err := img.readAt(block, 0); err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	return block, nil
}

// WriteSuperblock persists sb at block 0 with its stored checksum. Call
// FinalizeSuperblock first.
func (img *Image) WriteSuperblock(sb *domain.Superblock) error {
	if err := img.writeAt(EncodeSuperblock(sb), 0); err != nil {
		return fmt.Errorf("write superblock: %w", err)
	}
	img.sb = *sb
	return nil
}

func (img *Image) Sync() error {
	if err := img.dev.Sync(); err != nil {
		return fmt.Errorf("sync image: %w", err)
	}
	return nil
}

func (img *Image) Close() error {
	return img.dev.Close()
}

func blockOffset(block uint64) int64 {
	return int64(block) * domain.BlockSize
}

func (img *Image) readAt(p []byte, off int64) error {
	n, err := img.dev.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		return fmt.Errorf("read %d of %d bytes at offset %d: %w", n, len(p), off, domain.ErrShortIO)
	}
	return fmt.Errorf("disk read error: %w", err)
}

func (img *Image) writeAt(p []byte, off int64) error {
	n, err := img.dev.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("disk write error: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("wrote %d of %d bytes at offset %d: %w", n, len(p), off, domain.ErrShortIO)
	}
	return nil
}
