package storage

import (
	"fmt"
	"math/bits"

	"github.com/diskfs/go-diskfs/util/bitmap"

	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
)

// Bitmap is an in-memory copy of an allocation bitmap region. Unit i is bit
// i%8 of byte i/8. Units at or past limit are never handed out.
type Bitmap struct {
	region domain.Region
	limit  int
	bits   *bitmap.Bitmap
}

// ReadBitmap loads every block of region.
func (img *Image) ReadBitmap(region domain.Region, limit int) (*Bitmap, error) {
	if region.Blocks == 0 {
		return nil, fmt.Errorf("bitmap at block %d has no blocks: %w", region.Start, domain.ErrCorrupted)
	}
	if region.End() > img.sb.TotalBlocks {
		return nil, fmt.Errorf("bitmap blocks [%d, %d) past end of image: %w", region.Start, region.End(), domain.ErrBlockRange)
	}
	buf := make([]byte, region.Blocks*domain.BlockSize)
	if err := img.readAt(buf, blockOffset(region.Start)); err != nil {
		return nil, fmt.Errorf("read bitmap at block %d: %w", region.Start, err)
	}

	capacity := len(buf) * 8
	if limit > capacity || limit < 0 {
		limit = capacity
	}

	bs := bitmap.NewBits(capacity)
	bs.FromBytes(buf)
	return &Bitmap{region: region, limit: limit, bits: bs}, nil
}

// InodeBitmap reads the inode bitmap; unit i is inode i+1.
func (img *Image) InodeBitmap() (*Bitmap, error) {
	return img.ReadBitmap(img.sb.InodeBitmap(), int(img.sb.InodeCount))
}

// DataBitmap reads the data bitmap; unit i is block DataRegionStart+i.
func (img *Image) DataBitmap() (*Bitmap, error) {
	return img.ReadBitmap(img.sb.DataBitmap(), int(img.sb.DataRegionBlocks))
}

// WriteBitmap persists the whole region in one write.
func (img *Image) WriteBitmap(b *Bitmap) error {
	if err := img.writeAt(b.bits.ToBytes(), blockOffset(b.region.Start)); err != nil {
		return fmt.Errorf("write bitmap at block %d: %w", b.region.Start, err)
	}
	return nil
}

func (b *Bitmap) Limit() int {
	return b.limit
}

func (b *Bitmap) check(i int) error {
	if i < 0 || i >= b.limit {
		return fmt.Errorf("bitmap index %d outside [0, %d): %w", i, b.limit, domain.ErrBlockRange)
	}
	return nil
}

// FindFree returns the lowest free unit.
func (b *Bitmap) FindFree() (int, error) {
	i := b.bits.FirstFree(0)
	if i < 0 || i >= b.limit {
		return -1, domain.ErrNoSpace
	}
	return i, nil
}

func (b *Bitmap) Set(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	return b.bits.Set(i)
}

func (b *Bitmap) IsSet(i int) (bool, error) {
	if err := b.check(i); err != nil {
		return false, err
	}
	return b.bits.IsSet(i)
}

// Allocate marks the n lowest free units and returns them in ascending order.
// On shortage nothing is marked.
func (b *Bitmap) Allocate(n int) ([]int, error) {
	got := make([]int, 0, n)
	for len(got) < n {
		i, err := b.FindFree()
		if err != nil {
			for _, j := range got {
				_ = b.bits.Clear(j)
			}
			return nil, fmt.Errorf("need %d units, %d free: %w", n, len(got), err)
		}
		if err := b.bits.Set(i); err != nil {
			return nil, err
		}
		got = append(got, i)
	}
	return got, nil
}

// Count returns the number of allocated units below the limit.
func (b *Bitmap) Count() int {
	raw := b.bits.ToBytes()
	n := 0
	full := b.limit / 8
	for _, c := range raw[:full] {
		n += bits.OnesCount8(c)
	}
	if rem := b.limit % 8; rem != 0 {
		n += bits.OnesCount8(raw[full] & (1<<rem - 1))
	}
	return n
}
