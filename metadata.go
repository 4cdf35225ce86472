package squashfs

import (
	"encoding/binary"
	"fmt"
	"log"
)

// maxMetadataPayload is the largest decompressed payload a single metadata
// block may hold.
const maxMetadataPayload = 8192

// metadataTable is the materialized form of a metadata-block region: the
// inode table or the directory table, reconstructed once from the sequence
// of 2-byte-header blocks that make it up on disk.
//
// decoded is the concatenation, in order, of every block's decompressed
// payload. onDisk[k] is the byte offset (relative to the region's start) of
// block k's 2-byte header; positions[k] is the cumulative length of decoded
// through block k inclusive. Both are indexed in the same order the blocks
// were read, so onDisk[k] and positions[k] describe the same block.
type metadataTable struct {
	decoded   []byte
	onDisk    []int64
	positions []int64
}

// readMetadataBlock reads and, if necessary, decompresses the single
// metadata block whose 2-byte header sits at byte offset cursor of dev, per
// spec §4.4's protocol: bit15 clear means compressed, bits14-0 give the
// on-disk payload length. It returns the decoded payload and the on-disk
// offset of the next block's header.
func readMetadataBlock(dev BlockDevice, comp Codec, cursor uint64) (decoded []byte, next uint64, err error) {
	hdr := make([]byte, 2)
	if err := readAt(dev, int64(cursor), hdr); err != nil {
		return nil, 0, err
	}

	raw := binary.LittleEndian.Uint16(hdr)
	onDiskLen := raw & 0x7fff
	compressed := raw&0x8000 == 0

	if onDiskLen > maxMetadataPayload {
		return nil, 0, fmt.Errorf("%w: metadata block at %d claims %d bytes", ErrCorruptImage, cursor, onDiskLen)
	}

	payload := make([]byte, onDiskLen)
	if err := readAt(dev, int64(cursor+2), payload); err != nil {
		return nil, 0, err
	}

	if !compressed {
		return payload, cursor + 2 + uint64(onDiskLen), nil
	}

	decodedPayload, err := decompress(comp, payload, maxMetadataPayload)
	if err != nil {
		return nil, 0, err
	}
	return decodedPayload, cursor + 2 + uint64(onDiskLen), nil
}

// readMetadataRegion materializes every metadata block whose header starts
// within [start, end) of dev, per spec §4.4's protocol. An implementation
// must not trust the decoded length to fill a full 8192-byte block (the
// final block of a table is usually short); decoded simply grows by append,
// which sidesteps the "size for the worst case" concern the spec raises for
// fixed-capacity buffers entirely.
func readMetadataRegion(dev BlockDevice, comp Codec, start, end uint64) (*metadataTable, error) {
	if end < start {
		return nil, fmt.Errorf("%w: metadata region end %d before start %d", ErrCorruptImage, end, start)
	}

	mt := &metadataTable{}
	cursor := start

	for cursor < end {
		decodedPayload, next, err := readMetadataBlock(dev, comp, cursor)
		if err != nil {
			return nil, err
		}

		mt.onDisk = append(mt.onDisk, int64(cursor-start))
		mt.decoded = append(mt.decoded, decodedPayload...)
		mt.positions = append(mt.positions, int64(len(mt.decoded)))

		cursor = next
	}

	if cursor != end {
		return nil, fmt.Errorf("%w: metadata region cursor %d overran end %d", ErrCorruptImage, cursor, end)
	}

	log.Printf("squashfs: materialized metadata region [%d,%d) into %d bytes across %d blocks", start, end, len(mt.decoded), len(mt.onDisk))
	return mt, nil
}

// directoryOffset translates an inode's (start_block, offset) directory
// reference into a byte offset within mt.decoded, per spec §4.6: find the
// block whose on-disk header offset equals startBlock and add the
// intra-block offset. start_block == 0 names the first block and returns
// offset directly; the loop would compute the same value for k == 0.
func (mt *metadataTable) directoryOffset(startBlock uint32, offset uint16) (int64, error) {
	if startBlock == 0 {
		return int64(offset), nil
	}

	for k, onDisk := range mt.onDisk {
		if onDisk != int64(startBlock) {
			continue
		}
		base := int64(0)
		if k > 0 {
			base = mt.positions[k-1]
		}
		return base + int64(offset), nil
	}

	return 0, fmt.Errorf("%w: no metadata block at on-disk offset %d", ErrCorruptImage, startBlock)
}
