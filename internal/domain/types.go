package domain

const (
	Magic        uint32 = 0x4D565346
	Version      uint32 = 1
	BlockSize           = 4096
	InodeSize           = 128
	DirEntrySize        = 64
	NameLen             = 58
	DirectCount         = 12
	RootIno      uint32 = 1

	SuperblockSize  = 116
	EntriesPerBlock = BlockSize / DirEntrySize
	MaxFileSize     = DirectCount * BlockSize
)

// Region is a contiguous run of blocks inside the image.
type Region struct {
	Start  uint64
	Blocks uint64
}

// End is the first block past the region.
func (r Region) End() uint64 {
	return r.Start + r.Blocks
}

type Superblock struct {
	Magic             uint32
	Version           uint32
	BlockSize         uint32
	TotalBlocks       uint64
	InodeCount        uint64
	InodeBitmapStart  uint64
	InodeBitmapBlocks uint64
	DataBitmapStart   uint64
	DataBitmapBlocks  uint64
	InodeTableStart   uint64
	InodeTableBlocks  uint64
	DataRegionStart   uint64
	DataRegionBlocks  uint64
	RootInode         uint64
	MtimeEpoch        uint64
	Flags             uint32
	Checksum          uint32
}

func (sb Superblock) InodeBitmap() Region {
	return Region{Start: sb.InodeBitmapStart, Blocks: sb.InodeBitmapBlocks}
}

func (sb Superblock) DataBitmap() Region {
	return Region{Start: sb.DataBitmapStart, Blocks: sb.DataBitmapBlocks}
}

func (sb Superblock) InodeTable() Region {
	return Region{Start: sb.InodeTableStart, Blocks: sb.InodeTableBlocks}
}

func (sb Superblock) DataRegion() Region {
	return Region{Start: sb.DataRegionStart, Blocks: sb.DataRegionBlocks}
}

// DataBlock maps a data bitmap index to its absolute block number.
func (sb Superblock) DataBlock(index int) uint32 {
	return uint32(sb.DataRegionStart) + uint32(index)
}

// DataIndex maps an absolute block number back to its data bitmap index.
// The second result is false for blocks outside the data region.
func (sb Superblock) DataIndex(block uint32) (int, bool) {
	b := uint64(block)
	if b < sb.DataRegionStart || b >= sb.DataRegion().End() {
		return 0, false
	}
	return int(b - sb.DataRegionStart), true
}

// HeaderOK reports whether the fixed identification fields match this format.
func (sb Superblock) HeaderOK() bool {
	return sb.Magic == Magic && sb.Version == Version && sb.BlockSize == BlockSize
}
