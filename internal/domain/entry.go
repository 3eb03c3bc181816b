package domain

import "bytes"

const (
	EntryTypeFile uint8 = 1
	EntryTypeDir  uint8 = 2
)

type DirEntry struct {
	Ino      uint32
	Type     uint8
	Name     [NameLen]byte
	Checksum uint8
}

// NewDirEntry builds an entry with name truncated or NUL padded to NameLen.
// The checksum is left zero.
func NewDirEntry(ino uint32, typ uint8, name string) DirEntry {
	e := DirEntry{Ino: ino, Type: typ}
	copy(e.Name[:], name)
	return e
}

// NameString returns the name up to the first NUL.
func (e *DirEntry) NameString() string {
	if i := bytes.IndexByte(e.Name[:], 0); i >= 0 {
		return string(e.Name[:i])
	}
	return string(e.Name[:])
}

func (e *DirEntry) Used() bool {
	return e.Ino != 0
}

// TruncateName returns name as it would be stored in an entry.
func TruncateName(name string) string {
	if len(name) > NameLen {
		return name[:NameLen]
	}
	return name
}
