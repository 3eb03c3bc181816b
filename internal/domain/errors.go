package domain

import "errors"

var (
	ErrNotFound      = errors.New("no such file or directory")
	ErrExists        = errors.New("file exists")
	ErrInvalidName   = errors.New("invalid name")
	ErrNoSpace       = errors.New("no space left on device")
	ErrDirectoryFull = errors.New("directory has no free direct pointers")
	ErrFileTooLarge  = errors.New("file too large")
	ErrCorrupted     = errors.New("image corrupted")
	ErrInodeRange    = errors.New("inode number out of range")
	ErrBlockRange    = errors.New("block number out of range")
	ErrShortIO       = errors.New("short read or write")
)
