package storage

import (
	"fmt"
	"io"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

// BlocksFor is the number of data blocks a file of size bytes occupies.
func BlocksFor(size int64) int {
	n := size / domain.BlockSize
	if size%domain.BlockSize != 0 {
		n++
	}
	return int(n)
}

// WriteFileData copies size bytes from src into blocks, one block's worth
// each, with the last block taking the remainder.
func (img *Image) WriteFileData(blocks []uint32, src io.Reader, size int64) error {
	if BlocksFor(size) != len(blocks) {
		return fmt.Errorf("%d bytes need %d blocks, got %d", size, BlocksFor(size), len(blocks))
	}
	for i, block := range blocks {
		n := int64(domain.BlockSize)
		if i == len(blocks)-1 {
			if rem := size % domain.BlockSize; rem != 0 {
				n = rem
			}
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(src, buf); err != nil {
			return fmt.Errorf("read source data for block %d: %w", block, err)
		}
		if err := img.WriteBlock(block, buf); err != nil {
			return err
		}
	}
	return nil
}

// FileReader streams the contents of a regular file inode one block at a
// time.
func (img *Image) FileReader(ino *domain.Inode) (io.Reader, error) {
	if ino.SizeBytes > domain.MaxFileSize {
		return nil, fmt.Errorf("size %d exceeds direct capacity: %w", ino.SizeBytes, domain.ErrCorrupted)
	}
	need := BlocksFor(int64(ino.SizeBytes))
	for slot := 0; slot < need; slot++ {
		if ino.Direct[slot] == 0 {
			return nil, fmt.Errorf("size %d but direct slot %d unused: %w", ino.SizeBytes, slot, domain.ErrCorrupted)
		}
	}
	return &fileReader{img: img, blocks: ino.Direct[:need], left: int64(ino.SizeBytes)}, nil
}

// ReadFile returns the contents of a regular file inode.
func (img *Image) ReadFile(ino *domain.Inode) ([]byte, error) {
	r, err := img.FileReader(ino)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

type fileReader struct {
	img    *Image
	blocks []uint32
	left   int64
	buf    []byte
}

func (r *fileReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.buf) == 0 {
		if r.left == 0 {
			return 0, io.EOF
		}
		block, err := r.img.ReadBlock(r.blocks[0])
		if err != nil {
			return 0, err
		}
		n := min(r.left, domain.BlockSize)
		r.buf = block[:n]
		r.blocks = r.blocks[1:]
		r.left -= n
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
