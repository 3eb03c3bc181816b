package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Alexander-D-Karpov/minivsfs/internal/directory"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/logger"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
)

// State is a step of an insertion.
type State int

const (
	OpenSources State = iota
	DuplicateCheck
	AllocateInode
	AllocateDataBlocks
	WriteFileData
	LinkDirectory
	FinalizeRootInode
	FinalizeSuperblock
	Done
)

var stateNames = [...]string{
	OpenSources:        "OpenSources",
	DuplicateCheck:     "DuplicateCheck",
	AllocateInode:      "AllocateInode",
	AllocateDataBlocks: "AllocateDataBlocks",
	WriteFileData:      "WriteFileData",
	LinkDirectory:      "LinkDirectory",
	FinalizeRootInode:  "FinalizeRootInode",
	FinalizeSuperblock: "FinalizeSuperblock",
	Done:               "Done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// InsertError reports the step an aborted insertion failed in. Steps that
// completed before it are not undone.
type InsertError struct {
	State State
	Err   error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *InsertError) Unwrap() error {
	return e.Err
}

type Option func(*Inserter)

// WithClock replaces time.Now as the source of every timestamp written.
func WithClock(now func() time.Time) Option {
	return func(in *Inserter) {
		in.now = now
	}
}

// WithSync fsyncs the image once an insertion completes.
func WithSync(sync bool) Option {
	return func(in *Inserter) {
		in.sync = sync
	}
}

// Inserter adds regular files to the root directory of an image.
type Inserter struct {
	img  *storage.Image
	now  func() time.Time
	sync bool
}

func NewInserter(img *storage.Image, opts ...Option) *Inserter {
	in := &Inserter{img: img, now: time.Now}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// insertion is the working set carried from one state to the next.
type insertion struct {
	name   string
	src    io.Reader
	size   int64
	blocks int
	now    time.Time

	ino   uint32
	inode *domain.Inode
	data  []uint32
	root  *domain.Inode
}

// Insert stores size bytes read from src as a new regular file called name
// in the root directory and returns its inode number.
func (in *Inserter) Insert(ctx context.Context, name string, src io.Reader, size int64) (uint32, error) {
	op := &insertion{name: name, src: src, size: size, now: in.now()}

	steps := []struct {
		state State
		run   func(*insertion) error
	}{
		{OpenSources, in.openSources},
		{DuplicateCheck, in.duplicateCheck},
		{AllocateInode, in.allocateInode},
		{AllocateDataBlocks, in.allocateDataBlocks},
		{WriteFileData, in.writeFileData},
		{LinkDirectory, in.linkDirectory},
		{FinalizeRootInode, in.finalizeRootInode},
		{FinalizeSuperblock, in.finalizeSuperblock},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return 0, in.abort(step.state, err)
		}
		logger.Debug("insert %q: %s", name, step.state)
		if err := step.run(op); err != nil {
			return 0, in.abort(step.state, err)
		}
	}

	if in.sync {
		if err := in.img.Sync(); err != nil {
			return 0, in.abort(Done, err)
		}
	}
	logger.Debug("insert %q: %s", name, Done)
	logger.Info("inserted %q as inode %d (%d bytes, %d blocks)", name, op.ino, size, op.blocks)
	return op.ino, nil
}

func (in *Inserter) abort(state State, err error) error {
	logger.Debug("insert aborted in %s: %v", state, err)
	return &InsertError{State: state, Err: err}
}

func (in *Inserter) openSources(op *insertion) error {
	sb := in.img.Superblock()
	if !sb.HeaderOK() {
		return fmt.Errorf("superblock magic %#x version %d block size %d: %w",
			sb.Magic, sb.Version, sb.BlockSize, domain.ErrCorrupted)
	}
	if err := directory.ValidateName(op.name); err != nil {
		return err
	}
	if op.size < 0 {
		return fmt.Errorf("negative size %d", op.size)
	}
	if op.size > domain.MaxFileSize {
		return fmt.Errorf("%d bytes exceed the %d bytes %d direct blocks hold: %w",
			op.size, domain.MaxFileSize, domain.DirectCount, domain.ErrFileTooLarge)
	}
	op.blocks = storage.BlocksFor(op.size)
	return nil
}

func (in *Inserter) duplicateCheck(op *insertion) error {
	root, err := in.img.ReadInode(domain.RootIno)
	if err != nil {
		return err
	}
	_, err = directory.Lookup(in.img, root, op.name)
	switch {
	case err == nil:
		return fmt.Errorf("%q: %w", domain.TruncateName(op.name), domain.ErrExists)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	if root.FreeDirect() < 0 {
		return domain.ErrDirectoryFull
	}
	return nil
}

func (in *Inserter) allocateInode(op *insertion) error {
	bm, err := in.img.InodeBitmap()
	if err != nil {
		return err
	}
	idx, err := bm.FindFree()
	if err != nil {
		return fmt.Errorf("inode: %w", err)
	}
	if err := bm.Set(idx); err != nil {
		return err
	}
	if err := in.img.WriteBitmap(bm); err != nil {
		return err
	}
	op.ino = uint32(idx + 1)
	return nil
}

func (in *Inserter) allocateDataBlocks(op *insertion) error {
	if op.blocks > 0 {
		bm, err := in.img.DataBitmap()
		if err != nil {
			return err
		}
		idx, err := bm.Allocate(op.blocks)
		if err != nil {
			return fmt.Errorf("data blocks: %w", err)
		}
		if err := in.img.WriteBitmap(bm); err != nil {
			return err
		}
		sb := in.img.Superblock()
		for _, i := range idx {
			op.data = append(op.data, sb.DataBlock(i))
		}
	}

	op.inode = &domain.Inode{
		Mode:      domain.S_IFREG,
		Links:     1,
		SizeBytes: uint64(op.size),
	}
	op.inode.Touch(op.now, true, true, true)
	copy(op.inode.Direct[:], op.data)
	storage.FinalizeInode(op.inode)
	return in.img.WriteInode(op.ino, op.inode)
}

func (in *Inserter) writeFileData(op *insertion) error {
	return in.img.WriteFileData(op.data, op.src, op.size)
}

func (in *Inserter) linkDirectory(op *insertion) error {
	root, err := in.img.ReadInode(domain.RootIno)
	if err != nil {
		return err
	}
	if err := directory.AddEntry(in.img, root, op.ino, domain.EntryTypeFile, op.name, op.now); err != nil {
		return err
	}
	op.root = root
	return nil
}

func (in *Inserter) finalizeRootInode(op *insertion) error {
	op.root.Links++
	storage.FinalizeInode(op.root)
	return in.img.WriteInode(domain.RootIno, op.root)
}

func (in *Inserter) finalizeSuperblock(op *insertion) error {
	sb := in.img.Superblock()
	sb.MtimeEpoch = uint64(op.now.Unix())
	storage.FinalizeSuperblock(&sb)
	return in.img.WriteSuperblock(&sb)
}
