package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/Alexander-D-Karpov/minivsfs/internal/checksum"
	"github.com/Alexander-D-Karpov/minivsfs/internal/domain"
	"github.com/Alexander-D-Karpov/minivsfs/internal/storage"
	"github.com/Alexander-D-Karpov/minivsfs/internal/testutils"
)

var now = time.Unix(1710000000, 0)

func readRoot(t *testing.T, img *storage.Image) *domain.Inode {
	t.Helper()
	root, err := img.ReadInode(domain.RootIno)
	if err != nil {
		t.Fatalf("read root inode: %v", err)
	}
	return root
}

func TestEntriesOfFreshRoot(t *testing.T) {
	img, _ := testutils.NewImage(t)

	slots, err := Entries(img, readRoot(t, img))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("fresh root has %d entries; want 2", len(slots))
	}
	for i, want := range []string{".", ".."} {
		s := slots[i]
		if s.Name() != want || s.Index != i || s.Entry.Ino != domain.RootIno || !s.ChecksumOK {
			t.Errorf("entry %d = %+v; want %q -> inode 1 with valid checksum", i, s, want)
		}
	}
}

func TestAddEntry(t *testing.T) {
	img, _ := testutils.NewImage(t)
	sb := img.Superblock()
	root := readRoot(t, img)

	if err := AddEntry(img, root, 2, domain.EntryTypeFile, "notes.txt", now); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	wantBlock := sb.DataBlock(1)
	if root.Direct[1] != wantBlock {
		t.Errorf("direct[1] = %d; want %d", root.Direct[1], wantBlock)
	}
	if root.SizeBytes != 3*domain.DirEntrySize {
		t.Errorf("root size = %d; want %d", root.SizeBytes, 3*domain.DirEntrySize)
	}
	if root.Mtime != uint64(now.Unix()) || root.Atime != uint64(now.Unix()) {
		t.Errorf("root times not refreshed: atime %d mtime %d", root.Atime, root.Mtime)
	}
	if root.Ctime == uint64(now.Unix()) {
		t.Errorf("ctime should be left alone")
	}

	bm, err := img.DataBitmap()
	if err != nil {
		t.Fatal(err)
	}
	if set, _ := bm.IsSet(1); !set {
		t.Errorf("directory block not marked in the data bitmap")
	}

	buf, err := img.ReadBlock(wantBlock)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := checksum.VerifyDirEntry(buf[:domain.DirEntrySize]); !ok {
		t.Errorf("new entry checksum invalid")
	}
	for i, b := range buf[domain.DirEntrySize:] {
		if b != 0 {
			t.Fatalf("byte %d of the new directory block is %#x; want zero fill", domain.DirEntrySize+i, b)
		}
	}

	// The in-memory inode is what Entries walks before it is persisted.
	slot, err := Lookup(img, root, "notes.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if slot.Entry.Ino != 2 || slot.Entry.Type != domain.EntryTypeFile || slot.Block != wantBlock || slot.Index != 0 {
		t.Errorf("Lookup = %+v", slot)
	}
}

func TestAddEntryDirectoryFull(t *testing.T) {
	img, _ := testutils.NewImage(t)
	root := readRoot(t, img)

	for i := 1; i < domain.DirectCount; i++ {
		if err := AddEntry(img, root, uint32(i+1), domain.EntryTypeFile, string(rune('a'+i)), now); err != nil {
			testutils.FatalHere(t, "AddEntry #%d: %v", i, err)
		}
	}

	bm, _ := img.DataBitmap()
	before := bm.Count()

	err := AddEntry(img, root, 99, domain.EntryTypeFile, "overflow", now)
	if !errors.Is(err, domain.ErrDirectoryFull) {
		t.Fatalf("AddEntry on a full directory error = %v; want ErrDirectoryFull", err)
	}
	bm, _ = img.DataBitmap()
	if bm.Count() != before {
		t.Errorf("full directory still allocated a block: %d -> %d", before, bm.Count())
	}
}

func TestAddEntryNoSpace(t *testing.T) {
	// Data region of four blocks, one used by the root directory.
	img, _ := testutils.NewImageWith(t, 8, 32)
	root := readRoot(t, img)

	for i := 0; i < 3; i++ {
		if err := AddEntry(img, root, uint32(i+2), domain.EntryTypeFile, string(rune('a'+i)), now); err != nil {
			t.Fatalf("AddEntry #%d: %v", i, err)
		}
	}
	if err := AddEntry(img, root, 9, domain.EntryTypeFile, "z", now); !errors.Is(err, domain.ErrNoSpace) {
		t.Errorf("AddEntry with no free block error = %v; want ErrNoSpace", err)
	}
}

func TestLookupTruncatesName(t *testing.T) {
	img, _ := testutils.NewImage(t)
	root := readRoot(t, img)

	long := "0123456789012345678901234567890123456789012345678901234567890123"
	if err := AddEntry(img, root, 2, domain.EntryTypeFile, long, now); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		found bool
	}{
		{long, true},
		{long[:domain.NameLen], true},
		{long + "tail", true},
		{long[:domain.NameLen-1], false},
		{"missing", false},
	}
	for _, test := range tests {
		_, err := Lookup(img, root, test.name)
		if test.found && err != nil {
			t.Errorf("Lookup(%q) error = %v; want found", test.name, err)
		}
		if !test.found && !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Lookup(%q) error = %v; want ErrNotFound", test.name, err)
		}
	}
}

func TestBlockEntriesFlagsBadChecksum(t *testing.T) {
	buf := make([]byte, domain.BlockSize)
	e := domain.NewDirEntry(5, domain.EntryTypeFile, "x")
	storage.FinalizeDirEntry(&e)
	copy(buf[3*domain.DirEntrySize:], storage.EncodeDirEntry(&e))
	buf[3*domain.DirEntrySize+10] = 'y'

	slots := BlockEntries(42, buf)
	if len(slots) != 1 {
		t.Fatalf("BlockEntries found %d entries; want 1", len(slots))
	}
	if slots[0].Index != 3 || slots[0].Block != 42 || slots[0].ChecksumOK {
		t.Errorf("slot = %+v; want index 3 of block 42 with a bad checksum", slots[0])
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"file.txt", true},
		{"a", true},
		{"", false},
		{".", false},
		{"..", false},
		{"dir/file", false},
		{"nul\x00byte", false},
		{"...", true},
	}

	for _, test := range tests {
		err := ValidateName(test.name)
		if test.ok && err != nil {
			t.Errorf("ValidateName(%q) = %v; want nil", test.name, err)
		}
		if !test.ok && !errors.Is(err, domain.ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v; want ErrInvalidName", test.name, err)
		}
	}
}
