// Package testutils builds freshly formatted MiniVSFS images for tests. It is
// the minimum needed to get a valid empty root directory and is not a
// general purpose formatter.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
)

const (
	DefaultTotalBlocks = 256
	DefaultInodeCount  = 128
)

// FormatTime is the timestamp stamped on every formatted structure.
var FormatTime = time.Unix(1700000000, 0)

// Layout describes where the regions of a formatted image land.
func Layout(totalBlocks, inodeCount uint64) domain.Superblock {
	itable := (inodeCount*domain.InodeSize + domain.BlockSize - 1) / domain.BlockSize
	sb := domain.Superblock{
		Magic:             domain.Magic,
		Version:           domain.Version,
		BlockSize:         domain.BlockSize,
		TotalBlocks:       totalBlocks,
		InodeCount:        inodeCount,
		InodeBitmapStart:  1,
		InodeBitmapBlocks: 1,
		DataBitmapStart:   2,
		DataBitmapBlocks:  1,
		InodeTableStart:   3,
		InodeTableBlocks:  itable,
		DataRegionStart:   3 + itable,
		RootInode:         uint64(domain.RootIno),
		MtimeEpoch:        uint64(FormatTime.Unix()),
	}
	sb.DataRegionBlocks = totalBlocks - sb.DataRegionStart
	return sb
}

// FormatBytes returns the bytes of an empty image whose root directory holds
// only "." and "..".
func FormatBytes(totalBlocks, inodeCount uint64) []byte {
	sb := Layout(totalBlocks, inodeCount)
	img := make([]byte, totalBlocks*domain.BlockSize)

	ibm := img[sb.InodeBitmapStart*domain.BlockSize:]
	ibm[0] |= 0x01
	dbm := img[sb.DataBitmapStart*domain.BlockSize:]
	dbm[0] |= 0x01

	rootBlock := uint32(sb.DataRegionStart)
	root := &domain.Inode{
		Mode:      domain.S_IFDIR | 0755,
		Links:     2,
		SizeBytes: 2 * domain.DirEntrySize,
	}
	root.Direct[0] = rootBlock
	root.Touch(FormatTime, true, true, true)
	storage.FinalizeInode(root)
	copy(img[sb.InodeTableStart*domain.BlockSize:], storage.EncodeInode(root))

	dir := img[uint64(rootBlock)*domain.BlockSize:]
	for i, name := range []string{".", ".."} {
		e := domain.NewDirEntry(domain.RootIno, domain.EntryTypeDir, name)
		storage.FinalizeDirEntry(&e)
		copy(dir[i*domain.DirEntrySize:], storage.EncodeDirEntry(&e))
	}

	storage.FinalizeSuperblock(&sb)
	copy(img, storage.EncodeSuperblock(&sb))
	return img
}

// NewImage returns a default sized image backed by memory.
func NewImage(t testing.TB) (*storage.Image, *storage.MemoryDevice) {
	t.Helper()
	return NewImageWith(t, DefaultTotalBlocks, DefaultInodeCount)
}

func NewImageWith(t testing.TB, totalBlocks, inodeCount uint64) (*storage.Image, *storage.MemoryDevice) {
	t.Helper()
	return OpenBytes(t, FormatBytes(totalBlocks, inodeCount))
}

// OpenBytes wraps raw image bytes in a memory device.
func OpenBytes(t testing.TB, data []byte) (*storage.Image, *storage.MemoryDevice) {
	t.Helper()
	dev := storage.NewMemoryDevice(data)
	img, err := storage.NewImage(dev)
	if err != nil {
		t.Fatalf("open memory image: %v", err)
	}
	return img, dev
}

// WriteFile writes data to name inside a per-test directory and returns the
// path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteImageFile writes a default formatted image to disk.
func WriteImageFile(t testing.TB) string {
	t.Helper()
	return WriteFile(t, "in.img", FormatBytes(DefaultTotalBlocks, DefaultInodeCount))
}

// Payload returns n bytes of deterministic non-zero content.
func Payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}
