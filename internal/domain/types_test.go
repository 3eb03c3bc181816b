package domain

import "testing"

func layout() Superblock {
	return Superblock{
		Magic:            Magic,
		Version:          Version,
		BlockSize:        BlockSize,
		TotalBlocks:      64,
		DataRegionStart:  7,
		DataRegionBlocks: 57,
	}
}

func TestDataBlockIndex(t *testing.T) {
	if got := layout().DataBlock(3); got != 10 {
		t.Errorf("DataBlock(3) = %d; want 10", got)
	}

	tests := []struct {
		block uint32
		index int
		ok    bool
	}{
		{7, 0, true},
		{63, 56, true},
		{6, 0, false},
		{64, 0, false},
	}
	for _, test := range tests {
		index, ok := layout().DataIndex(test.block)
		if index != test.index || ok != test.ok {
			t.Errorf("DataIndex(%d) = %d, %v; want %d, %v", test.block, index, ok, test.index, test.ok)
		}
	}

	if !layout().HeaderOK() {
		t.Errorf("HeaderOK() = false for a valid header")
	}
	if end := layout().DataRegion().End(); end != 64 {
		t.Errorf("DataRegion().End() = %d; want 64", end)
	}
}
