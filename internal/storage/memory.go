package storage

import (
	"fmt"
	"io"
)

// MemoryDevice is a fixed-size in-memory Device, used by tests.
type MemoryDevice struct {
	data []byte
}

var _ Device = (*MemoryDevice)(nil)

// NewMemoryDevice wraps a copy of data.
func NewMemoryDevice(data []byte) *MemoryDevice {
	return &MemoryDevice{data: append([]byte(nil), data...)}
}

func (m *MemoryDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("memory device: negative offset %d", off)
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("memory device: write of %d bytes at offset %d out of range (size %d)", len(p), off, len(m.data))
	}
	return copy(m.data[off:], p), nil
}

func (m *MemoryDevice) Sync() error {
	return nil
}

func (m *MemoryDevice) Close() error {
	return nil
}

// Bytes returns a copy of the device contents.
func (m *MemoryDevice) Bytes() []byte {
	return append([]byte(nil), m.data...)
}
