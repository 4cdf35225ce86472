package squashfs

import (
	"encoding/binary"
	"fmt"
)

// fragEntriesPerBlock is how many 16-byte fragment entries pack into one
// 8192-byte metadata block: 8192/16.
const fragEntriesPerBlock = 512

// fragmentEntry is one decoded row of the fragment table: where the
// fragment block that holds a tail-of-file fragment lives on disk, and
// whether it was stored compressed.
type fragmentEntry struct {
	Start      uint64
	Size       uint32
	Compressed bool
}

// resolveFragment looks up fragment index fragIndex in the fragment table
// described by sb, per spec §4.9's two-level scheme: the fragment table's
// index array (one 64-bit on-disk offset per 512-entry metadata block) is
// itself addressed through dev directly, then the metadata block it points
// at is decoded to pull out the 16-byte entry.
func resolveFragment(dev BlockDevice, sb *Superblock, fragIndex uint32) (*fragmentEntry, error) {
	if fragIndex == noFragment {
		return nil, fmt.Errorf("%w: no fragment for this inode", ErrCorruptImage)
	}
	if uint64(fragIndex) >= uint64(sb.FragCount) {
		return nil, fmt.Errorf("%w: fragment index %d exceeds fragment count %d", ErrCorruptImage, fragIndex, sb.FragCount)
	}

	blockIdx := int64(fragIndex) / fragEntriesPerBlock
	entryIdx := int64(fragIndex) % fragEntriesPerBlock

	idxBuf := make([]byte, 8)
	if err := readAt(dev, int64(sb.FragTableStart)+blockIdx*8, idxBuf); err != nil {
		return nil, err
	}
	metaBlockStart := binary.LittleEndian.Uint64(idxBuf)

	// Each index-array slot addresses exactly one metadata block; decode
	// just that one block rather than a whole region.
	decoded, _, err := readMetadataBlock(dev, sb.Comp, metaBlockStart)
	if err != nil {
		return nil, err
	}

	offset := entryIdx * 16
	if offset+16 > int64(len(decoded)) {
		return nil, fmt.Errorf("%w: fragment entry %d outside decoded block of length %d", ErrCorruptImage, fragIndex, len(decoded))
	}
	raw := decoded[offset : offset+16]

	start := binary.LittleEndian.Uint64(raw[0:8])
	rawSize := binary.LittleEndian.Uint32(raw[8:12])

	const uncompressedFlag = 1 << 24
	compressed := rawSize&uncompressedFlag == 0
	size := rawSize &^ uncompressedFlag

	return &fragmentEntry{Start: start, Size: size, Compressed: compressed}, nil
}

// readFragment reads and, if necessary, decompresses the fragment block fe
// describes, then slices out [fragOffset, fragOffset+length) of it — the
// portion belonging to the file that referenced this fragment. blockSize
// bounds the decompressed size, since a fragment block never holds more
// than one filesystem block's worth of data.
func readFragment(dev BlockDevice, comp Codec, fe *fragmentEntry, fragOffset uint32, length int, blockSize uint32) ([]byte, error) {
	raw := make([]byte, fe.Size)
	if err := readAt(dev, int64(fe.Start), raw); err != nil {
		return nil, err
	}

	var payload []byte
	if fe.Compressed {
		var err error
		payload, err = decompress(comp, raw, int(blockSize))
		if err != nil {
			return nil, err
		}
	} else {
		payload = raw
	}

	end := int(fragOffset) + length
	if end > len(payload) {
		return nil, fmt.Errorf("%w: fragment slice [%d,%d) outside decoded fragment of length %d", ErrCorruptImage, fragOffset, end, len(payload))
	}
	return payload[fragOffset:end], nil
}
