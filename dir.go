package squashfs

import (
	"encoding/binary"
	"fmt"
)

// dirEntry is one decoded directory-stream entry. InodeNumber is the
// absolute inode number the entry names (the header's base inode number
// plus the entry's signed delta) so the caller can resolve it through the
// inode walker's linear scan; Kind is the basic-form type tag directory
// entries always carry, regardless of whether the referenced inode turns
// out to be a basic or extended variant.
type dirEntry struct {
	Name        string
	InodeNumber uint32
	Kind        Type
}

type dirIterState int

const (
	dirAwaitingHeader dirIterState = iota
	dirEmittingEntries
	dirEnd
)

// dirIterator walks one directory inode's data inside the directory
// table's metadataTable, implementing the header/entries state machine a
// directory stream is built from: a sequence of headers, each introducing
// a run of entries that share the header's start_block and a common base
// inode number, until the directory's declared byte range is exhausted.
type dirIterator struct {
	buf   []byte
	pos   int64
	limit int64

	state       dirIterState
	remaining   uint32
	headerInode uint32
}

// newDirIterator begins walking mt.decoded at [start, start+size), the
// byte range a directory inode's (start_block, offset, file_size) trio
// resolves to once start_block has been translated through
// metadataTable.directoryOffset. size is the listing's actual byte length,
// i.e. the inode's file_size with the 3 bytes of accounting overhead
// already subtracted off by the caller.
func newDirIterator(mt *metadataTable, start int64, size uint64) (*dirIterator, error) {
	limit := start + int64(size)
	if start < 0 || limit > int64(len(mt.decoded)) {
		return nil, fmt.Errorf("%w: directory range [%d,%d) outside decoded table of length %d", ErrCorruptImage, start, limit, len(mt.decoded))
	}
	return &dirIterator{buf: mt.decoded, pos: start, limit: limit, state: dirAwaitingHeader}, nil
}

// next returns the next entry in the stream, or (nil, nil) once the
// directory's declared range is exhausted.
func (it *dirIterator) next() (*dirEntry, error) {
	for {
		switch it.state {
		case dirEnd:
			return nil, nil

		case dirAwaitingHeader:
			if it.limit-it.pos < 12 {
				it.state = dirEnd
				continue
			}
			count, err := it.readU32()
			if err != nil {
				return nil, err
			}
			if _, err := it.readU32(); err != nil { // start_block; entries are resolved by inode number, not offset
				return nil, err
			}
			inodeNum, err := it.readU32()
			if err != nil {
				return nil, err
			}
			it.remaining = count + 1
			it.headerInode = inodeNum
			it.state = dirEmittingEntries

		case dirEmittingEntries:
			if it.remaining == 0 {
				it.state = dirAwaitingHeader
				continue
			}
			if it.limit-it.pos < 8 {
				return nil, fmt.Errorf("%w: directory entry header truncated", ErrCorruptImage)
			}
			if _, err := it.readU16(); err != nil { // intra-block offset; unused under the linear-scan design
				return nil, err
			}
			inodeOfft, err := it.readI16()
			if err != nil {
				return nil, err
			}
			typ, err := it.readU16()
			if err != nil {
				return nil, err
			}
			nameSize, err := it.readU16()
			if err != nil {
				return nil, err
			}
			if it.limit-it.pos < int64(nameSize)+1 {
				return nil, fmt.Errorf("%w: directory entry name truncated", ErrCorruptImage)
			}
			name := make([]byte, int(nameSize)+1)
			copy(name, it.buf[it.pos:it.pos+int64(len(name))])
			it.pos += int64(len(name))

			it.remaining--

			return &dirEntry{
				Name:        string(name),
				InodeNumber: uint32(int64(it.headerInode) + int64(inodeOfft)),
				Kind:        Type(typ),
			}, nil
		}
	}
}

func (it *dirIterator) readU16() (uint16, error) {
	if it.pos+2 > it.limit {
		return 0, fmt.Errorf("%w: directory stream truncated", ErrCorruptImage)
	}
	v := binary.LittleEndian.Uint16(it.buf[it.pos : it.pos+2])
	it.pos += 2
	return v, nil
}

func (it *dirIterator) readI16() (int16, error) {
	v, err := it.readU16()
	return int16(v), err
}

func (it *dirIterator) readU32() (uint32, error) {
	if it.pos+4 > it.limit {
		return 0, fmt.Errorf("%w: directory stream truncated", ErrCorruptImage)
	}
	v := binary.LittleEndian.Uint32(it.buf[it.pos : it.pos+4])
	it.pos += 4
	return v, nil
}
