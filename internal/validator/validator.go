// Package validator certifies a MiniVSFS image by running an ordered list of
// structural checks. It never modifies the image and stops at the first
// check that fails.
package validator

import (
	"errors"
	"fmt"
	"io"

	"github.com/Alexander-D-Karpov/minivsfs/internal/checksum"
	"github.com/Alexander-D-Karpov/minivsfs/internal/directory"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
)

const (
	CheckHeader      = "superblock header fields"
	CheckChecksum    = "superblock checksum"
	CheckLayout      = "region layout"
	CheckRootCRC     = "root inode crc"
	CheckRootFields  = "root inode basic fields"
	CheckDotEntries  = "root directory has '.' and '..'"
	CheckInodeBitmap = "inode bitmap marks inode #1"
	CheckDataBitmap  = "data bitmap marks root data block"
)

// Result is one line of a report. Info results list directory entries and
// never fail.
type Result struct {
	Name string
	Err  error
	Info bool
}

type Report struct {
	Results []Result
	done    bool
}

// Passed reports whether every check ran and none failed.
func (r *Report) Passed() bool {
	return r.done && r.Failed() == nil
}

// Failed returns the failing check, if any.
func (r *Report) Failed() *Result {
	for i := range r.Results {
		if r.Results[i].Err != nil {
			return &r.Results[i]
		}
	}
	return nil
}

// Entries returns the names of the entries reported besides "." and "..".
func (r *Report) Entries() []string {
	var names []string
	for _, res := range r.Results {
		if res.Info {
			names = append(names, res.Name)
		}
	}
	return names
}

// Print writes passing and informational lines to stdout and the failure to
// stderr.
func (r *Report) Print(stdout, stderr io.Writer) {
	for _, res := range r.Results {
		switch {
		case res.Info:
			fmt.Fprintf(stdout, "[INFO] entry found. name: %s\n", res.Name)
		case res.Err != nil:
			fmt.Fprintf(stderr, "[FAIL] %s: %v\n", res.Name, res.Err)
		default:
			fmt.Fprintf(stdout, "[ OK ] %s\n", res.Name)
		}
	}
	if r.Passed() {
		fmt.Fprintln(stdout, "[PASS] Basic MiniVSFS checks OK.")
	}
}

type run struct {
	img    *storage.Image
	report *Report
	sb     domain.Superblock
	root   *domain.Inode
}

// check records the outcome of fn under name and reports whether to go on.
func (v *run) check(name string, fn func() error) bool {
	err := fn()
	v.report.Results = append(v.report.Results, Result{Name: name, Err: err})
	return err == nil
}

// Validate runs every check against img in order.
func Validate(img *storage.Image) *Report {
	v := &run{img: img, report: &Report{}}
	steps := []struct {
		name string
		fn   func() error
	}{
		{CheckHeader, v.header},
		{CheckChecksum, v.superblockChecksum},
		{CheckLayout, v.layout},
		{CheckRootCRC, v.rootCRC},
		{CheckRootFields, v.rootFields},
		{CheckDotEntries, v.dotEntries},
	}
	for _, step := range steps {
		if !v.check(step.name, step.fn) {
			return v.report
		}
	}

	if !v.listEntries() {
		return v.report
	}
	if !v.check(CheckInodeBitmap, v.inodeBitmap) {
		return v.report
	}
	if !v.check(CheckDataBitmap, v.dataBitmap) {
		return v.report
	}
	v.report.done = true
	return v.report
}

func (v *run) header() error {
	block, err := v.img.ReadSuperblockRaw()
	if err != nil {
		return err
	}
	v.sb = storage.DecodeSuperblock(block)
	switch {
	case v.sb.Magic != domain.Magic:
		return fmt.Errorf("bad magic %#x", v.sb.Magic)
	case v.sb.Version != domain.Version:
		return fmt.Errorf("bad version %d", v.sb.Version)
	case v.sb.BlockSize != domain.BlockSize:
		return fmt.Errorf("bad block_size %d", v.sb.BlockSize)
	}
	return nil
}

func (v *run) superblockChecksum() error {
	block, err := v.img.ReadSuperblockRaw()
	if err != nil {
		return err
	}
	stored, computed, ok := checksum.VerifySuperblock(block)
	if !ok {
		return fmt.Errorf("stored %#08x, computed %#08x", stored, computed)
	}
	return nil
}

func (v *run) layout() error {
	sb := &v.sb
	total := sb.TotalBlocks
	switch {
	case sb.InodeBitmapStart != 1:
		return fmt.Errorf("inode bitmap starts at block %d, not 1", sb.InodeBitmapStart)
	case sb.InodeTableStart >= total || sb.DataRegionStart >= total:
		return fmt.Errorf("region bounds: inode table at %d, data at %d, %d blocks total",
			sb.InodeTableStart, sb.DataRegionStart, total)
	case sb.InodeBitmap().End() > sb.DataBitmapStart:
		return errors.New("inode bitmap overlaps data bitmap")
	case sb.DataBitmap().End() > sb.InodeTableStart:
		return errors.New("data bitmap overlaps inode table")
	case sb.InodeTable().End() > sb.DataRegionStart:
		return errors.New("inode table overlaps data region")
	case sb.DataRegion().End() > total:
		return fmt.Errorf("data region ends at %d, past %d blocks", sb.DataRegion().End(), total)
	}
	return nil
}

func (v *run) rootCRC() error {
	rec, err := v.img.ReadInodeRaw(domain.RootIno)
	if err != nil {
		return err
	}
	if stored, computed, ok := checksum.VerifyInode(rec); !ok {
		return fmt.Errorf("stored %#08x, computed %#08x", stored, computed)
	}
	v.root = storage.DecodeInode(rec)
	return nil
}

func (v *run) rootFields() error {
	root := v.root
	switch {
	case !root.IsDir():
		return fmt.Errorf("root not directory (mode %#o)", root.Mode)
	case root.Links < 2:
		return fmt.Errorf("root links %d < 2", root.Links)
	case root.Direct[0] == 0:
		return errors.New("root has no data block")
	case uint64(root.Direct[0]) < v.sb.DataRegionStart || uint64(root.Direct[0]) >= v.sb.TotalBlocks:
		return fmt.Errorf("root block %d out of range", root.Direct[0])
	}
	return nil
}

func (v *run) dotEntries() error {
	buf, err := v.img.ReadBlock(v.root.Direct[0])
	if err != nil {
		return err
	}
	for i, name := range []string{".", ".."} {
		raw := buf[i*domain.DirEntrySize : (i+1)*domain.DirEntrySize]
		e := storage.DecodeDirEntry(raw)
		if e.Ino != domain.RootIno || e.Type != domain.EntryTypeDir || e.NameString() != name {
			return fmt.Errorf("bad '%s'", name)
		}
		if _, _, ok := checksum.VerifyDirEntry(raw); !ok {
			return fmt.Errorf("bad '%s' checksum", name)
		}
	}
	return nil
}

func (v *run) listEntries() bool {
	slots, err := directory.Entries(v.img, v.root)
	if err != nil {
		v.report.Results = append(v.report.Results, Result{Name: "read directory entries", Err: err})
		return false
	}
	for _, s := range slots {
		if s.Block == v.root.Direct[0] && s.Index < 2 {
			continue
		}
		v.report.Results = append(v.report.Results, Result{Name: s.Name(), Info: true})
	}
	return true
}

func (v *run) inodeBitmap() error {
	bm, err := v.img.InodeBitmap()
	if err != nil {
		return err
	}
	set, err := bm.IsSet(int(domain.RootIno) - 1)
	if err != nil {
		return err
	}
	if !set {
		return errors.New("inode #1 bit not set")
	}
	return nil
}

func (v *run) dataBitmap() error {
	idx, ok := v.sb.DataIndex(v.root.Direct[0])
	if !ok {
		return fmt.Errorf("root block %d outside the data region", v.root.Direct[0])
	}
	bm, err := v.img.DataBitmap()
	if err != nil {
		return err
	}
	set, err := bm.IsSet(idx)
	if err != nil {
		return err
	}
	if !set {
		return errors.New("root data block not marked allocated")
	}
	return nil
}
