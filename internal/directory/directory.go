// Package directory reads and extends MiniVSFS directories. A directory's
// data lives in the blocks named by its direct pointers; each block is an
// array of 64-byte entries, and an entry with inode 0 is an unused slot.
package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/Alexander-D-Karpov/minivsfs/internal/checksum"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
)

// Slot is one occupied entry and where it was found.
type Slot struct {
	Block      uint32
	Index      int
	Entry      domain.DirEntry
	ChecksumOK bool
}

func (s *Slot) Name() string {
	return s.Entry.NameString()
}

// Entries returns every occupied entry of dir, in direct pointer order then
// slot order.
func Entries(img *storage.Image, dir *domain.Inode) ([]Slot, error) {
	var slots []Slot
	for _, block := range dir.Direct {
		if block == 0 {
			continue
		}
		buf, err := img.ReadBlock(block)
		if err != nil {
			return nil, fmt.Errorf("read directory block: %w", err)
		}
		slots = append(slots, BlockEntries(block, buf)...)
	}
	return slots, nil
}

// BlockEntries decodes the occupied entries of one directory block.
func BlockEntries(block uint32, buf []byte) []Slot {
	var slots []Slot
	for i := 0; i < domain.EntriesPerBlock; i++ {
		raw := buf[i*domain.DirEntrySize : (i+1)*domain.DirEntrySize]
		e := storage.DecodeDirEntry(raw)
		if !e.Used() {
			continue
		}
		_, _, ok := checksum.VerifyDirEntry(raw)
		slots = append(slots, Slot{Block: block, Index: i, Entry: e, ChecksumOK: ok})
	}
	return slots
}

// Lookup finds the first entry named name, compared as it would be stored.
func Lookup(img *storage.Image, dir *domain.Inode, name string) (*Slot, error) {
	slots, err := Entries(img, dir)
	if err != nil {
		return nil, err
	}
	want := domain.TruncateName(name)
	for i := range slots {
		if slots[i].Name() == want {
			return &slots[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// ValidateName rejects names that cannot be stored as a plain root entry.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", domain.ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidName, name)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%w: %q contains '/'", domain.ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", domain.ErrInvalidName, name)
	}
	return nil
}

// AddEntry links ino under name in dir. It takes a fresh data block for the
// entry, points the first free direct slot of dir at it and grows dir by one
// entry. dir is updated in memory only; the caller writes it back.
func AddEntry(img *storage.Image, dir *domain.Inode, ino uint32, typ uint8, name string, now time.Time) error {
	slot := dir.FreeDirect()
	if slot < 0 {
		return domain.ErrDirectoryFull
	}

	bm, err := img.DataBitmap()
	if err != nil {
		return err
	}
	idx, err := bm.FindFree()
	if err != nil {
		return fmt.Errorf("directory block: %w", err)
	}
	if err := bm.Set(idx); err != nil {
		return err
	}
	if err := img.WriteBitmap(bm); err != nil {
		return err
	}

	sb := img.Superblock()
	block := sb.DataBlock(idx)
	if err := img.ZeroBlock(block); err != nil {
		return err
	}
	dir.Direct[slot] = block

	e := domain.NewDirEntry(ino, typ, name)
	storage.FinalizeDirEntry(&e)
	if err := img.WriteBlock(block, storage.EncodeDirEntry(&e)); err != nil {
		return err
	}

	dir.SizeBytes += domain.DirEntrySize
	dir.Touch(now, true, true, false)
	return nil
}
