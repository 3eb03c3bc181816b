package storage

import (
	"fmt"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

func (img *Image) inodeOffset(no uint32) (int64, error) {
	if no < 1 || uint64(no) > img.sb.InodeCount {
		return 0, fmt.Errorf("inode %d outside [1, %d]: %w", no, img.sb.InodeCount, domain.ErrInodeRange)
	}
	return blockOffset(img.sb.InodeTableStart) + int64(no-1)*domain.InodeSize, nil
}

// ReadInodeRaw returns the on-disk record of inode no.
func (img *Image) ReadInodeRaw(no uint32) ([]byte, error) {
	off, err := img.inodeOffset(no)
	if err != nil {
		return nil, err
	}
	rec := make([]byte, domain.InodeSize)
	if err := img.readAt(rec, off); err != nil {
		return nil, fmt.Errorf("read inode %d: %w", no, err)
	}
	return rec, nil
}

func (img *Image) ReadInode(no uint32) (*domain.Inode, error) {
	rec, err := img.ReadInodeRaw(no)
	if err != nil {
		return nil, err
	}
	return DecodeInode(rec), nil
}

// WriteInode stores ino at slot no as is, stored checksum included.
func (img *Image) WriteInode(no uint32, ino *domain.Inode) error {
	off, err := img.inodeOffset(no)
	if err != nil {
		return err
	}
	if err := img.writeAt(EncodeInode(ino), off); err != nil {
		return fmt.Errorf("write inode %d: %w", no, err)
	}
	return nil
}
