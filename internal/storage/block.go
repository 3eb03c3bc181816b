package storage

import (
	"fmt"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

func (img *Image) checkBlock(block uint32) error {
	if block == 0 || uint64(block) >= img.sb.TotalBlocks {
		return fmt.Errorf("block %d outside [1, %d): %w", block, img.sb.TotalBlocks, domain.ErrBlockRange)
	}
	return nil
}

// ReadBlock returns one full block.
func (img *Image) ReadBlock(block uint32) ([]byte, error) {
	if err := img.checkBlock(block); err != nil {
		return nil, err
	}
	buf := make([]byte, domain.BlockSize)
	if err := img.readAt(buf, blockOffset(uint64(block))); err != nil {
		return nil, fmt.Errorf("read block %d: %w", block, err)
	}
	return buf, nil
}

// WriteBlock writes data at the start of block. data may be shorter than a
// block, in which case the rest of the block is left as it was.
func (img *Image) WriteBlock(block uint32, data []byte) error {
	if err := img.checkBlock(block); err != nil {
		return err
	}
	if len(data) > domain.BlockSize {
		return fmt.Errorf("write of %d bytes exceeds block size", len(data))
	}
	if err := img.writeAt(data, blockOffset(uint64(block))); err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}
	return nil
}

// ZeroBlock overwrites block with zeroes.
func (img *Image) ZeroBlock(block uint32) error {
	return img.WriteBlock(block, make([]byte, domain.BlockSize))
}
