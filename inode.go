package squashfs

import (
	"encoding/binary"
	"fmt"
)

const noFragment = 0xffffffff

// decodedInode is the tagged-variant view of a single on-disk inode,
// discriminated by Type. Fields that don't apply to a given Type are left
// at their zero value; see spec §3/§4.5's per-type layout table.
type decodedInode struct {
	Type    Type
	Perm    uint16
	UidIdx  uint16
	GidIdx  uint16
	ModTime int32
	Number  uint32

	StartBlock uint64 // dir: metadata-block ref; reg/lreg: first data block
	Offset     uint32 // dir: intra-block offset
	ParentIno  uint32
	NLink      uint32
	Size       uint64

	FragIndex  uint32
	FragOffset uint32
	Sparse     uint64

	SymTarget []byte

	IdxCount uint16
	XattrIdx uint32
	Rdev     uint32

	Blocks       []uint32 // per-data-block compressed-size entries, reg/lreg only
	BlockOffsets []uint64 // cumulative on-disk offset of each entry in Blocks, relative to StartBlock
}

func (d *decodedInode) IsDir() bool       { return d.Type.IsDir() }
func (d *decodedInode) IsRegular() bool   { return d.Type.IsRegular() }
func (d *decodedInode) IsSymlink() bool   { return d.Type.IsSymlink() }
func (d *decodedInode) HasFragment() bool { return d.FragIndex != noFragment }

// dataBlockCount implements the REG/LREG block-count rule: floor(size /
// block_size) data blocks if the file ends in a fragment, else
// ceil(size / block_size).
func dataBlockCount(size uint64, blockSize uint32, fragIndex uint32) int {
	n := int(size / uint64(blockSize))
	if fragIndex == noFragment && size%uint64(blockSize) != 0 {
		n++
	}
	return n
}

// dataBlockUncompressedFlag and dataBlockSizeMask decode a data-block list
// entry: bit 24 set means the block is stored uncompressed, and bits 0-23
// give its on-disk length.
const dataBlockUncompressedFlag = 1 << 24
const dataBlockSizeMask = dataBlockUncompressedFlag - 1

// blockCumulativeOffsets computes, for each entry in blocks, its on-disk
// byte offset relative to the inode's StartBlock, so the file reader can
// seek directly to any block without re-summing every prior entry.
func blockCumulativeOffsets(blocks []uint32) []uint64 {
	offsets := make([]uint64, len(blocks))
	var offt uint64
	for i, raw := range blocks {
		offsets[i] = offt
		offt += uint64(raw & dataBlockSizeMask)
	}
	return offsets
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

var errTruncatedInode = fmt.Errorf("%w: truncated inode", ErrCorruptImage)

// decodeInodeAt decodes the inode at the start of buf and reports how many
// bytes it occupies on disk, so the caller can advance past it. blockSize is
// needed to compute REG/LREG's trailing block-size list length.
func decodeInodeAt(buf []byte, blockSize uint32) (*decodedInode, int64, error) {
	if len(buf) < 16 {
		return nil, 0, errTruncatedInode
	}

	d := &decodedInode{
		Type:    Type(le16(buf[0:2])),
		Perm:    le16(buf[2:4]),
		UidIdx:  le16(buf[4:6]),
		GidIdx:  le16(buf[6:8]),
		ModTime: int32(le32(buf[8:12])),
		Number:  le32(buf[12:16]),
	}
	rest := buf[16:]

	switch d.Type {
	case DirType:
		if len(rest) < 16 {
			return nil, 0, errTruncatedInode
		}
		d.StartBlock = uint64(le32(rest[0:4]))
		d.NLink = le32(rest[4:8])
		d.Size = uint64(le16(rest[8:10]))
		d.Offset = uint32(le16(rest[10:12]))
		d.ParentIno = le32(rest[12:16])
		return d, 32, nil

	case XDirType:
		if len(rest) < 24 {
			return nil, 0, errTruncatedInode
		}
		d.NLink = le32(rest[0:4])
		d.Size = uint64(le32(rest[4:8]))
		d.StartBlock = uint64(le32(rest[8:12]))
		d.ParentIno = le32(rest[12:16])
		d.IdxCount = le16(rest[16:18])
		d.Offset = uint32(le16(rest[18:20]))
		d.XattrIdx = le32(rest[20:24])

		size := int64(40)
		if d.IdxCount > 0 {
			offt := size
			for i := 0; i < int(d.IdxCount)+1; i++ {
				if int(offt)+12 > len(buf) {
					return nil, 0, errTruncatedInode
				}
				nameSize := le32(buf[offt+8 : offt+12])
				offt += 12 + int64(nameSize) + 1
			}
			size = offt
		}
		return d, size, nil

	case FileType:
		if len(rest) < 16 {
			return nil, 0, errTruncatedInode
		}
		d.StartBlock = uint64(le32(rest[0:4]))
		d.FragIndex = le32(rest[4:8])
		d.FragOffset = le32(rest[8:12])
		d.Size = uint64(le32(rest[12:16]))

		n := dataBlockCount(d.Size, blockSize, d.FragIndex)
		voff := int64(32)
		if len(buf) < int(voff)+n*4 {
			return nil, 0, errTruncatedInode
		}
		d.Blocks = make([]uint32, n)
		for i := 0; i < n; i++ {
			d.Blocks[i] = le32(buf[voff+int64(i*4) : voff+int64(i*4)+4])
		}
		d.BlockOffsets = blockCumulativeOffsets(d.Blocks)
		return d, voff + int64(n*4), nil

	case XFileType:
		if len(rest) < 40 {
			return nil, 0, errTruncatedInode
		}
		d.StartBlock = le64(rest[0:8])
		d.Size = le64(rest[8:16])
		d.Sparse = le64(rest[16:24])
		d.NLink = le32(rest[24:28])
		d.FragIndex = le32(rest[28:32])
		d.FragOffset = le32(rest[32:36])
		d.XattrIdx = le32(rest[36:40])

		n := dataBlockCount(d.Size, blockSize, d.FragIndex)
		voff := int64(56)
		if len(buf) < int(voff)+n*4 {
			return nil, 0, errTruncatedInode
		}
		d.Blocks = make([]uint32, n)
		for i := 0; i < n; i++ {
			d.Blocks[i] = le32(buf[voff+int64(i*4) : voff+int64(i*4)+4])
		}
		d.BlockOffsets = blockCumulativeOffsets(d.Blocks)
		return d, voff + int64(n*4), nil

	case SymlinkType, XSymlinkType:
		if len(rest) < 8 {
			return nil, 0, errTruncatedInode
		}
		d.NLink = le32(rest[0:4])
		symSize := le32(rest[4:8])
		voff := int64(24)
		if len(buf) < int(voff)+int(symSize) {
			return nil, 0, errTruncatedInode
		}
		d.SymTarget = append([]byte(nil), buf[voff:voff+int64(symSize)]...)
		d.Size = uint64(symSize)
		return d, voff + int64(symSize), nil

	case BlockDevType, CharDevType:
		if len(rest) < 8 {
			return nil, 0, errTruncatedInode
		}
		d.NLink = le32(rest[0:4])
		d.Rdev = le32(rest[4:8])
		return d, 24, nil

	case FifoType, SocketType:
		if len(rest) < 4 {
			return nil, 0, errTruncatedInode
		}
		d.NLink = le32(rest[0:4])
		return d, 20, nil

	case XBlockDevType, XCharDevType:
		if len(rest) < 12 {
			return nil, 0, errTruncatedInode
		}
		d.NLink = le32(rest[0:4])
		d.Rdev = le32(rest[4:8])
		d.XattrIdx = le32(rest[8:12])
		return d, 28, nil

	case XFifoType, XSocketType:
		if len(rest) < 8 {
			return nil, 0, errTruncatedInode
		}
		d.NLink = le32(rest[0:4])
		d.XattrIdx = le32(rest[4:8])
		return d, 24, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown inode type %d", ErrCorruptImage, uint16(d.Type))
	}
}

// inodeOffsetByNumber implements the component-5 walker: walk the
// materialized inode buffer from offset 0, decoding one inode at a time and
// advancing by its on-disk size, until the decoded inode_number matches
// number. maxInodes bounds the scan at sb.InodeCount iterations, per spec
// §4.5: a walk that exceeds it (or runs past buf) is ErrInodeNotFound.
func inodeOffsetByNumber(buf []byte, blockSize uint32, maxInodes uint32, number uint32) (int64, *decodedInode, error) {
	var offset int64
	for i := uint32(0); i < maxInodes; i++ {
		if offset >= int64(len(buf)) {
			break
		}
		dec, size, err := decodeInodeAt(buf[offset:], blockSize)
		if err != nil {
			return 0, nil, err
		}
		if dec.Number == number {
			return offset, dec, nil
		}
		if size <= 0 {
			return 0, nil, fmt.Errorf("%w: zero-size inode at offset %d", ErrCorruptImage, offset)
		}
		offset += size
	}
	return 0, nil, ErrInodeNotFound
}
