package storage

import (
	"encoding/binary"

	"github.com/Alexander-D-Karpov/minivsfs/internal/checksum"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

// EncodeSuperblock lays sb out in a full zero-padded block.
func EncodeSuperblock(sb *domain.Superblock) []byte {
	buf := make([]byte, domain.BlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], sb.Version)
	binary.LittleEndian.PutUint32(buf[8:12], sb.BlockSize)
	binary.LittleEndian.PutUint64(buf[12:20], sb.TotalBlocks)
	binary.LittleEndian.PutUint64(buf[20:28], sb.InodeCount)
	binary.LittleEndian.PutUint64(buf[28:36], sb.InodeBitmapStart)
	binary.LittleEndian.PutUint64(buf[36:44], sb.InodeBitmapBlocks)
	binary.LittleEndian.PutUint64(buf[44:52], sb.DataBitmapStart)
	binary.LittleEndian.PutUint64(buf[52:60], sb.DataBitmapBlocks)
	binary.LittleEndian.PutUint64(buf[60:68], sb.InodeTableStart)
	binary.LittleEndian.PutUint64(buf[68:76], sb.InodeTableBlocks)
	binary.LittleEndian.PutUint64(buf[76:84], sb.DataRegionStart)
	binary.LittleEndian.PutUint64(buf[84:92], sb.DataRegionBlocks)
	binary.LittleEndian.PutUint64(buf[92:100], sb.RootInode)
	binary.LittleEndian.PutUint64(buf[100:108], sb.MtimeEpoch)
	binary.LittleEndian.PutUint32(buf[108:112], sb.Flags)
	binary.LittleEndian.PutUint32(buf[112:116], sb.Checksum)
	return buf
}

func DecodeSuperblock(buf []byte) domain.Superblock {
	return domain.Superblock{
		Magic:             binary.LittleEndian.Uint32(buf[0:4]),
		Version:           binary.LittleEndian.Uint32(buf[4:8]),
		BlockSize:         binary.LittleEndian.Uint32(buf[8:12]),
		TotalBlocks:       binary.LittleEndian.Uint64(buf[12:20]),
		InodeCount:        binary.LittleEndian.Uint64(buf[20:28]),
		InodeBitmapStart:  binary.LittleEndian.Uint64(buf[28:36]),
		InodeBitmapBlocks: binary.LittleEndian.Uint64(buf[36:44]),
		DataBitmapStart:   binary.LittleEndian.Uint64(buf[44:52]),
		DataBitmapBlocks:  binary.LittleEndian.Uint64(buf[52:60]),
		InodeTableStart:   binary.LittleEndian.Uint64(buf[60:68]),
		InodeTableBlocks:  binary.LittleEndian.Uint64(buf[68:76]),
		DataRegionStart:   binary.LittleEndian.Uint64(buf[76:84]),
		DataRegionBlocks:  binary.LittleEndian.Uint64(buf[84:92]),
		RootInode:         binary.LittleEndian.Uint64(buf[92:100]),
		MtimeEpoch:        binary.LittleEndian.Uint64(buf[100:108]),
		Flags:             binary.LittleEndian.Uint32(buf[108:112]),
		Checksum:          binary.LittleEndian.Uint32(buf[112:116]),
	}
}

func EncodeInode(ino *domain.Inode) []byte {
	buf := make([]byte, domain.InodeSize)
	binary.LittleEndian.PutUint16(buf[0:2], ino.Mode)
	binary.LittleEndian.PutUint16(buf[2:4], ino.Links)
	binary.LittleEndian.PutUint32(buf[4:8], ino.UID)
	binary.LittleEndian.PutUint32(buf[8:12], ino.GID)
	binary.LittleEndian.PutUint64(buf[12:20], ino.SizeBytes)
	binary.LittleEndian.PutUint64(buf[20:28], ino.Atime)
	binary.LittleEndian.PutUint64(buf[28:36], ino.Mtime)
	binary.LittleEndian.PutUint64(buf[36:44], ino.Ctime)
	for i, b := range ino.Direct {
		off := 44 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], b)
	}
	binary.LittleEndian.PutUint32(buf[92:96], ino.Reserved0)
	binary.LittleEndian.PutUint32(buf[96:100], ino.Reserved1)
	binary.LittleEndian.PutUint32(buf[100:104], ino.Reserved2)
	binary.LittleEndian.PutUint32(buf[104:108], ino.ProjID)
	binary.LittleEndian.PutUint32(buf[108:112], ino.UID16GID16)
	binary.LittleEndian.PutUint64(buf[112:120], ino.XattrPtr)
	binary.LittleEndian.PutUint64(buf[120:128], ino.Checksum)
	return buf
}

func DecodeInode(buf []byte) *domain.Inode {
	ino := &domain.Inode{
		Mode:       binary.LittleEndian.Uint16(buf[0:2]),
		Links:      binary.LittleEndian.Uint16(buf[2:4]),
		UID:        binary.LittleEndian.Uint32(buf[4:8]),
		GID:        binary.LittleEndian.Uint32(buf[8:12]),
		SizeBytes:  binary.LittleEndian.Uint64(buf[12:20]),
		Atime:      binary.LittleEndian.Uint64(buf[20:28]),
		Mtime:      binary.LittleEndian.Uint64(buf[28:36]),
		Ctime:      binary.LittleEndian.Uint64(buf[36:44]),
		Reserved0:  binary.LittleEndian.Uint32(buf[92:96]),
		Reserved1:  binary.LittleEndian.Uint32(buf[96:100]),
		Reserved2:  binary.LittleEndian.Uint32(buf[100:104]),
		ProjID:     binary.LittleEndian.Uint32(buf[104:108]),
		UID16GID16: binary.LittleEndian.Uint32(buf[108:112]),
		XattrPtr:   binary.LittleEndian.Uint64(buf[112:120]),
		Checksum:   binary.LittleEndian.Uint64(buf[120:128]),
	}
	for i := range ino.Direct {
		off := 44 + i*4
		ino.Direct[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	return ino
}

func EncodeDirEntry(e *domain.DirEntry) []byte {
	buf := make([]byte, domain.DirEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], e.Ino)
	buf[4] = e.Type
	copy(buf[5:5+domain.NameLen], e.Name[:])
	buf[domain.DirEntrySize-1] = e.Checksum
	return buf
}

func DecodeDirEntry(buf []byte) domain.DirEntry {
	e := domain.DirEntry{
		Ino:      binary.LittleEndian.Uint32(buf[0:4]),
		Type:     buf[4],
		Checksum: buf[domain.DirEntrySize-1],
	}
	copy(e.Name[:], buf[5:5+domain.NameLen])
	return e
}

// FinalizeSuperblock recomputes sb.Checksum. Call it last.
func FinalizeSuperblock(sb *domain.Superblock) {
	sb.Checksum = checksum.FinalizeSuperblock(EncodeSuperblock(sb))
}

// FinalizeInode recomputes ino.Checksum. Call it last.
func FinalizeInode(ino *domain.Inode) {
	ino.Checksum = uint64(checksum.FinalizeInode(EncodeInode(ino)))
}

// FinalizeDirEntry recomputes e.Checksum. Call it last.
func FinalizeDirEntry(e *domain.DirEntry) {
	e.Checksum = checksum.FinalizeDirEntry(EncodeDirEntry(e))
}
