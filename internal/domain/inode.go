package domain

import "time"

const (
	S_IFMT  uint16 = 0xF000
	S_IFDIR uint16 = 0x4000
	S_IFREG uint16 = 0x8000
)

type Inode struct {
	Mode       uint16
	Links      uint16
	UID        uint32
	GID        uint32
	SizeBytes  uint64
	Atime      uint64
	Mtime      uint64
	Ctime      uint64
	Direct     [DirectCount]uint32
	Reserved0  uint32
	Reserved1  uint32
	Reserved2  uint32
	ProjID     uint32
	UID16GID16 uint32
	XattrPtr   uint64
	Checksum   uint64
}

func (i *Inode) IsDir() bool {
	return i.Mode&S_IFDIR != 0
}

func (i *Inode) IsRegular() bool {
	return i.Mode&S_IFREG != 0
}

// UsedBlocks counts the non-zero direct pointers.
func (i *Inode) UsedBlocks() int {
	n := 0
	for _, b := range i.Direct {
		if b != 0 {
			n++
		}
	}
	return n
}

// FreeDirect returns the first unused direct slot, or -1.
func (i *Inode) FreeDirect() int {
	for slot, b := range i.Direct {
		if b == 0 {
			return slot
		}
	}
	return -1
}

// Touch sets the given timestamps to t.
func (i *Inode) Touch(t time.Time, atime, mtime, ctime bool) {
	sec := uint64(t.Unix())
	if atime {
		i.Atime = sec
	}
	if mtime {
		i.Mtime = sec
	}
	if ctime {
		i.Ctime = sec
	}
}
