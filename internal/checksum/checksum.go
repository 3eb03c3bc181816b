// Package checksum computes and verifies the integrity fields of MiniVSFS
// structures. Every Finalize function overwrites the checksum field of the
// buffer it is given, so it must run after all other fields are final.
// Verify functions work on a private copy and never touch the caller's bytes.
package checksum

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

const (
	superblockCRCOffset = domain.SuperblockSize - 4
	superblockCRCSpan   = domain.BlockSize - 4
	inodeCRCOffset      = domain.InodeSize - 8
	direntSumOffset     = domain.DirEntrySize - 1
)

var table = sync.OnceValue(func() *crc32.Table {
	return crc32.MakeTable(crc32.IEEE)
})

// CRC32 is the reflected 0xEDB88320 CRC with 0xFFFFFFFF pre and post
// conditioning.
func CRC32(b []byte) uint32 {
	return crc32.Checksum(b, table())
}

func mustLen(b []byte, n int, what string) {
	if len(b) != n {
		panic(fmt.Sprintf("checksum: %s buffer is %d bytes, want %d", what, len(b), n))
	}
}

func superblockSum(block []byte) uint32 {
	tmp := make([]byte, superblockCRCSpan)
	copy(tmp, block[:superblockCRCSpan])
	binary.LittleEndian.PutUint32(tmp[superblockCRCOffset:], 0)
	return CRC32(tmp)
}

// FinalizeSuperblock stores the CRC of bytes [0, BlockSize-4) of the block,
// computed with the checksum field zeroed.
func FinalizeSuperblock(block []byte) uint32 {
	mustLen(block, domain.BlockSize, "superblock")
	binary.LittleEndian.PutUint32(block[superblockCRCOffset:], 0)
	sum := CRC32(block[:superblockCRCSpan])
	binary.LittleEndian.PutUint32(block[superblockCRCOffset:], sum)
	return sum
}

func VerifySuperblock(block []byte) (stored, computed uint32, ok bool) {
	mustLen(block, domain.BlockSize, "superblock")
	stored = binary.LittleEndian.Uint32(block[superblockCRCOffset:])
	computed = superblockSum(block)
	return stored, computed, stored == computed
}

func inodeSum(rec []byte) uint32 {
	tmp := make([]byte, domain.InodeSize)
	copy(tmp, rec)
	clear(tmp[inodeCRCOffset:])
	return CRC32(tmp[:inodeCRCOffset])
}

// FinalizeInode stores the CRC of bytes [0, 120) in the low four bytes of the
// trailing integrity field and zeroes the high four.
func FinalizeInode(rec []byte) uint32 {
	mustLen(rec, domain.InodeSize, "inode")
	sum := inodeSum(rec)
	binary.LittleEndian.PutUint64(rec[inodeCRCOffset:], uint64(sum))
	return sum
}

// VerifyInode compares only the low four bytes of the integrity field.
func VerifyInode(rec []byte) (stored, computed uint32, ok bool) {
	mustLen(rec, domain.InodeSize, "inode")
	stored = binary.LittleEndian.Uint32(rec[inodeCRCOffset:])
	computed = inodeSum(rec)
	return stored, computed, stored == computed
}

func direntSum(ent []byte) uint8 {
	var x uint8
	for _, b := range ent[:direntSumOffset] {
		x ^= b
	}
	return x
}

// FinalizeDirEntry stores the XOR of bytes [0, 63) in the last byte. XOR is
// cheap but only catches some corruption.
func FinalizeDirEntry(ent []byte) uint8 {
	mustLen(ent, domain.DirEntrySize, "directory entry")
	x := direntSum(ent)
	ent[direntSumOffset] = x
	return x
}

func VerifyDirEntry(ent []byte) (stored, computed uint8, ok bool) {
	mustLen(ent, domain.DirEntrySize, "directory entry")
	stored = ent[direntSumOffset]
	computed = direntSum(ent)
	return stored, computed, stored == computed
}
