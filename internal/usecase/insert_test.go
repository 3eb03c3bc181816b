package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/Alexander-D-Karpov/minivsfs/internal/config"
	"github.com/Alexander-D-Karpov/minivsfs/internal/crypto"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/logger"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
	"github.com/Alexander-D-Karpov/minivsfs/internal/testutils"
	"github.com/Alexander-D-Karpov/minivsfs/internal/usecase"
	"github.com/Alexander-D-Karpov/minivsfs/internal/validator"
)

var insertTime = time.Unix(1710000000, 0)

func newInserter(img *storage.Image, opts ...usecase.Option) *usecase.Inserter {
	opts = append([]usecase.Option{usecase.WithClock(func() time.Time { return insertTime })}, opts...)
	return usecase.NewInserter(img, opts...)
}

func insert(t *testing.T, in *usecase.Inserter, name string, data []byte) uint32 {
	t.Helper()
	ino, err := in.Insert(context.Background(), name, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Insert(%q, %d bytes): %v", name, len(data), err)
	}
	return ino
}

func insertErr(t *testing.T, in *usecase.Inserter, name string, data []byte) *usecase.InsertError {
	t.Helper()
	_, err := in.Insert(context.Background(), name, bytes.NewReader(data), int64(len(data)))
	var ie *usecase.InsertError
	if !errors.As(err, &ie) {
		t.Fatalf("Insert(%q) error = %v; want *InsertError", name, err)
	}
	return ie
}

func TestInsertConcreteScenario(t *testing.T) {
	img, _ := testutils.NewImage(t)
	sb := img.Superblock()
	data := testutils.Payload(5000)

	ino := insert(t, newInserter(img), "hello.txt", data)
	if ino != 2 {
		t.Fatalf("inode = %d; want 2", ino)
	}

	file, err := img.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}
	if file.Mode != domain.S_IFREG || file.Links != 1 || file.SizeBytes != 5000 {
		t.Errorf("file inode mode %#x links %d size %d", file.Mode, file.Links, file.SizeBytes)
	}
	want := [domain.DirectCount]uint32{sb.DataBlock(1), sb.DataBlock(2)}
	if file.Direct != want {
		t.Errorf("direct = %v; want %v", file.Direct, want)
	}
	now := uint64(insertTime.Unix())
	if file.Atime != now || file.Mtime != now || file.Ctime != now {
		t.Errorf("file times %d/%d/%d; want %d", file.Atime, file.Mtime, file.Ctime, now)
	}

	root, err := img.ReadInode(domain.RootIno)
	if err != nil {
		t.Fatal(err)
	}
	if root.Links != 3 {
		t.Errorf("root links = %d; want 3", root.Links)
	}
	if root.SizeBytes != 3*domain.DirEntrySize {
		t.Errorf("root size = %d; want %d", root.SizeBytes, 3*domain.DirEntrySize)
	}
	if root.Direct[1] != sb.DataBlock(3) {
		t.Errorf("root direct[1] = %d; want %d", root.Direct[1], sb.DataBlock(3))
	}

	if got := img.Superblock().MtimeEpoch; got != now {
		t.Errorf("superblock mtime = %d; want %d", got, now)
	}

	report := validator.Validate(img)
	if !report.Passed() {
		t.Fatalf("validator failed: %+v", report.Failed())
	}
	if names := report.Entries(); len(names) != 1 || names[0] != "hello.txt" {
		t.Errorf("validator entries = %v; want [hello.txt]", names)
	}
}

func TestInsertContentRoundTrip(t *testing.T) {
	sizes := []int{0, 1, domain.BlockSize - 1, domain.BlockSize, domain.BlockSize + 1, 3*domain.BlockSize + 17}
	img, _ := testutils.NewImage(t)
	in := newInserter(img)

	for i, size := range sizes {
		name := fmt.Sprintf("f%d", i)
		data := testutils.Payload(size)
		ino := insert(t, in, name, data)

		file, err := img.ReadInode(ino)
		if err != nil {
			t.Fatal(err)
		}
		got, err := img.ReadFile(file)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if crypto.Sum(got) != crypto.Sum(data) {
			testutils.ErrorHere(t, "%s: %d bytes read back differ from source", name, size)
		}
		if file.UsedBlocks() != storage.BlocksFor(int64(size)) {
			testutils.ErrorHere(t, "%s: %d used blocks; want %d", name, file.UsedBlocks(), storage.BlocksFor(int64(size)))
		}
	}

	if report := validator.Validate(img); !report.Passed() {
		t.Fatalf("validator failed: %+v", report.Failed())
	}
}

func TestInsertEmptyFile(t *testing.T) {
	img, _ := testutils.NewImage(t)
	ino := insert(t, newInserter(img), "empty", nil)

	file, err := img.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}
	if file.SizeBytes != 0 || file.Direct != [domain.DirectCount]uint32{} {
		t.Errorf("empty file inode size %d direct %v", file.SizeBytes, file.Direct)
	}
}

func TestInsertDuplicateLeavesImageUntouched(t *testing.T) {
	img, dev := testutils.NewImage(t)
	in := newInserter(img)
	insert(t, in, "a.txt", testutils.Payload(100))

	before := dev.Bytes()
	ie := insertErr(t, in, "a.txt", testutils.Payload(200))
	if ie.State != usecase.DuplicateCheck || !errors.Is(ie, domain.ErrExists) {
		t.Errorf("error = %v in %s; want ErrExists in DuplicateCheck", ie.Err, ie.State)
	}
	if !bytes.Equal(before, dev.Bytes()) {
		t.Errorf("rejected duplicate modified the image")
	}
}

func TestInsertDuplicateAfterTruncation(t *testing.T) {
	img, _ := testutils.NewImage(t)
	in := newInserter(img)
	base := string(bytes.Repeat([]byte("n"), domain.NameLen))
	insert(t, in, base+"-one", nil)

	ie := insertErr(t, in, base+"-two", nil)
	if !errors.Is(ie, domain.ErrExists) {
		t.Errorf("names equal after truncation: error = %v; want ErrExists", ie)
	}
}

func TestInsertSizeBoundary(t *testing.T) {
	img, dev := testutils.NewImage(t)
	in := newInserter(img)

	insert(t, in, "max", testutils.Payload(domain.MaxFileSize))

	before := dev.Bytes()
	ie := insertErr(t, in, "over", testutils.Payload(domain.MaxFileSize+1))
	if ie.State != usecase.OpenSources || !errors.Is(ie, domain.ErrFileTooLarge) {
		t.Errorf("error = %v in %s; want ErrFileTooLarge in OpenSources", ie.Err, ie.State)
	}
	if !bytes.Equal(before, dev.Bytes()) {
		t.Errorf("oversized file modified the image")
	}

	for _, size := range []int64{math.MaxInt64, math.MaxInt64 - domain.BlockSize + 2} {
		_, err := in.Insert(context.Background(), "huge", bytes.NewReader(nil), size)
		var ie *usecase.InsertError
		if !errors.As(err, &ie) || ie.State != usecase.OpenSources || !errors.Is(err, domain.ErrFileTooLarge) {
			t.Errorf("size %d: error = %v; want ErrFileTooLarge in OpenSources", size, err)
		}
		if !bytes.Equal(before, dev.Bytes()) {
			t.Errorf("size %d modified the image", size)
		}
	}
}

func TestInsertBitmapsReflectAllocation(t *testing.T) {
	img, _ := testutils.NewImage(t)
	countBits := func() (int, int) {
		t.Helper()
		ibm, err := img.InodeBitmap()
		if err != nil {
			t.Fatal(err)
		}
		dbm, err := img.DataBitmap()
		if err != nil {
			t.Fatal(err)
		}
		return ibm.Count(), dbm.Count()
	}

	inodes0, data0 := countBits()
	insert(t, newInserter(img), "three", testutils.Payload(2*domain.BlockSize+1))
	inodes1, data1 := countBits()

	if inodes1-inodes0 != 1 {
		t.Errorf("inode bits grew by %d; want 1", inodes1-inodes0)
	}
	// Three file blocks plus one directory block.
	if data1-data0 != 4 {
		t.Errorf("data bits grew by %d; want 4", data1-data0)
	}
}

func TestInsertDirectoryFull(t *testing.T) {
	img, dev := testutils.NewImage(t)
	in := newInserter(img)

	for i := 0; i < domain.DirectCount-1; i++ {
		insert(t, in, fmt.Sprintf("file%02d", i), testutils.Payload(10))
	}

	before := dev.Bytes()
	ie := insertErr(t, in, "one-too-many", testutils.Payload(10))
	if !errors.Is(ie, domain.ErrDirectoryFull) {
		t.Fatalf("error = %v; want ErrDirectoryFull", ie)
	}
	if !bytes.Equal(before, dev.Bytes()) {
		t.Errorf("full directory left allocations behind")
	}

	ie = insertErr(t, in, "file03", testutils.Payload(10))
	if ie.State != usecase.DuplicateCheck || !errors.Is(ie, domain.ErrExists) {
		t.Errorf("duplicate in a full directory: error = %v in %s; want ErrExists", ie.Err, ie.State)
	}

	report := validator.Validate(img)
	if !report.Passed() {
		t.Fatalf("validator failed: %+v", report.Failed())
	}
	if n := len(report.Entries()); n != domain.DirectCount-1 {
		t.Errorf("validator saw %d entries; want %d", n, domain.DirectCount-1)
	}
}

func TestInsertNoDataSpace(t *testing.T) {
	// Four data blocks, one already holding the root directory.
	img, _ := testutils.NewImageWith(t, 8, 32)

	ie := insertErr(t, newInserter(img), "big", testutils.Payload(4*domain.BlockSize))
	if ie.State != usecase.AllocateDataBlocks || !errors.Is(ie, domain.ErrNoSpace) {
		t.Errorf("error = %v in %s; want ErrNoSpace in AllocateDataBlocks", ie.Err, ie.State)
	}
	dbm, err := img.DataBitmap()
	if err != nil {
		t.Fatal(err)
	}
	if dbm.Count() != 1 {
		t.Errorf("data bitmap has %d bits set after a failed allocation; want 1", dbm.Count())
	}
}

func TestInsertInvalidNames(t *testing.T) {
	img, _ := testutils.NewImage(t)
	in := newInserter(img)

	for _, name := range []string{"", ".", "..", "a/b"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			ie := insertErr(t, in, name, nil)
			if ie.State != usecase.OpenSources || !errors.Is(ie, domain.ErrInvalidName) {
				t.Errorf("error = %v in %s; want ErrInvalidName in OpenSources", ie.Err, ie.State)
			}
		})
	}
}

func TestInsertCorruptedSuperblock(t *testing.T) {
	raw := testutils.FormatBytes(testutils.DefaultTotalBlocks, testutils.DefaultInodeCount)
	raw[0] ^= 0xFF
	img, _ := testutils.OpenBytes(t, raw)

	ie := insertErr(t, newInserter(img), "x", nil)
	if !errors.Is(ie, domain.ErrCorrupted) {
		t.Errorf("error = %v; want ErrCorrupted", ie)
	}
}

func TestInsertShortSource(t *testing.T) {
	img, _ := testutils.NewImage(t)
	in := newInserter(img)

	_, err := in.Insert(context.Background(), "short", bytes.NewReader(testutils.Payload(10)), 100)
	var ie *usecase.InsertError
	if !errors.As(err, &ie) || ie.State != usecase.WriteFileData {
		t.Errorf("error = %v; want failure in WriteFileData", err)
	}
}

func TestInsertCanceled(t *testing.T) {
	img, dev := testutils.NewImage(t)
	before := dev.Bytes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newInserter(img).Insert(ctx, "x", bytes.NewReader(nil), 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v; want context.Canceled", err)
	}
	if !bytes.Equal(before, dev.Bytes()) {
		t.Errorf("canceled insertion modified the image")
	}
}

type syncCounter struct {
	*storage.MemoryDevice
	syncs int
}

func (d *syncCounter) Sync() error {
	d.syncs++
	return nil
}

func TestInsertSync(t *testing.T) {
	for _, sync := range []bool{false, true} {
		dev := &syncCounter{MemoryDevice: storage.NewMemoryDevice(
			testutils.FormatBytes(testutils.DefaultTotalBlocks, testutils.DefaultInodeCount))}
		img, err := storage.NewImage(dev)
		if err != nil {
			t.Fatal(err)
		}
		insert(t, newInserter(img, usecase.WithSync(sync)), "s", testutils.Payload(1))

		want := 0
		if sync {
			want = 1
		}
		if dev.syncs != want {
			t.Errorf("WithSync(%v): %d syncs; want %d", sync, dev.syncs, want)
		}
	}
}

func TestStateString(t *testing.T) {
	if got := usecase.LinkDirectory.String(); got != "LinkDirectory" {
		t.Errorf("LinkDirectory.String() = %q", got)
	}
	if got := usecase.State(42).String(); got != "State(42)" {
		t.Errorf("State(42).String() = %q", got)
	}
	err := &usecase.InsertError{State: usecase.AllocateInode, Err: domain.ErrNoSpace}
	if got := err.Error(); got != "AllocateInode: no space left on device" {
		t.Errorf("InsertError.Error() = %q", got)
	}
	if !errors.Is(err, domain.ErrNoSpace) {
		t.Errorf("InsertError does not unwrap to its cause")
	}
}

func TestInsertAbortLeavesReportingToCaller(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLevel(config.LogLevelInfo)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})

	img, _ := testutils.NewImage(t)
	insertErr(t, newInserter(img), "..", nil)
	if buf.Len() != 0 {
		t.Errorf("aborted insertion logged at info or above:\n%s", buf.String())
	}
}
