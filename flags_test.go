package squashfs_test

import (
	"testing"

	"github.com/embedfs/squashfs"
)

func TestFlagsString(t *testing.T) {
	cases := []struct {
		flag     squashfs.Flags
		expected string
	}{
		{squashfs.UncompressedInodes, "UNCOMPRESSED_INODES"},
		{squashfs.UncompressedData, "UNCOMPRESSED_DATA"},
		{squashfs.Check, "CHECK"},
		{squashfs.UncompressedFragments, "UNCOMPRESSED_FRAGMENTS"},
		{squashfs.NoFragments, "NO_FRAGMENTS"},
		{squashfs.AlwaysFragments, "ALWAYS_FRAGMENTS"},
		{squashfs.Duplicates, "DUPLICATES"},
		{squashfs.Exportable, "EXPORTABLE"},
		{squashfs.UncompressedXattrs, "UNCOMPRESSED_XATTRS"},
		{squashfs.NoXattrs, "NO_XATTRS"},
		{squashfs.CompressorOptions, "COMPRESSOR_OPTIONS"},
		{squashfs.UncompressedIds, "UNCOMPRESSED_IDS"},
		{squashfs.NoFragments | squashfs.Exportable, "NO_FRAGMENTS|EXPORTABLE"},
		{0, ""},
	}

	for _, tc := range cases {
		if got := tc.flag.String(); got != tc.expected {
			t.Errorf("Flags(%d).String() = %q, want %q", tc.flag, got, tc.expected)
		}
	}
}

func TestFlagsHas(t *testing.T) {
	f := squashfs.Exportable | squashfs.UncompressedData

	if !f.Has(squashfs.Exportable) {
		t.Errorf("expected Has(Exportable)")
	}
	if !f.Has(squashfs.UncompressedData) {
		t.Errorf("expected Has(UncompressedData)")
	}
	if f.Has(squashfs.NoFragments) {
		t.Errorf("did not expect Has(NoFragments)")
	}
	if !f.Has(squashfs.Exportable | squashfs.UncompressedData) {
		t.Errorf("expected Has of combined mask")
	}
}
