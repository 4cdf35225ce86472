package squashfs

import "strings"

// Flags is the superblock's bitfield of image-wide options.
type Flags uint16

const (
	UncompressedInodes Flags = 1 << iota
	UncompressedData
	Check
	UncompressedFragments
	NoFragments
	AlwaysFragments
	Duplicates
	Exportable
	UncompressedXattrs
	NoXattrs
	CompressorOptions
	UncompressedIds
)

var flagNames = []struct {
	bit  Flags
	name string
}{
	{UncompressedInodes, "UNCOMPRESSED_INODES"},
	{UncompressedData, "UNCOMPRESSED_DATA"},
	{Check, "CHECK"},
	{UncompressedFragments, "UNCOMPRESSED_FRAGMENTS"},
	{NoFragments, "NO_FRAGMENTS"},
	{AlwaysFragments, "ALWAYS_FRAGMENTS"},
	{Duplicates, "DUPLICATES"},
	{Exportable, "EXPORTABLE"},
	{UncompressedXattrs, "UNCOMPRESSED_XATTRS"},
	{NoXattrs, "NO_XATTRS"},
	{CompressorOptions, "COMPRESSOR_OPTIONS"},
	{UncompressedIds, "UNCOMPRESSED_IDS"},
}

func (f Flags) String() string {
	var opt []string
	for _, fn := range flagNames {
		if f&fn.bit != 0 {
			opt = append(opt, fn.name)
		}
	}
	return strings.Join(opt, "|")
}

// Has reports whether every bit in what is set in f.
func (f Flags) Has(what Flags) bool {
	return f&what == what
}
