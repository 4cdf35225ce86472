// Package fixture builds small, valid SquashFS images in memory for tests.
// It plays the part the teacher's Writer type played in the original
// package: construct a tree of files and directories, then serialize it to
// bytes a block device can be built over. Unlike a general-purpose writer,
// it only needs to produce images this package's reader can round-trip, so
// it always uses zlib, always keeps the inode and directory tables each to
// a single metadata block, and never bothers packing multiple files' tail
// fragments into one fragment block.
package fixture

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/embedfs/squashfs"
)

// BlockSize is deliberately small so tests can exercise multi-block files
// and block-boundary edge cases without building megabyte-sized fixtures.
const BlockSize = 4096

const noFragment = 0xffffffff
const dataBlockUncompressedFlag = 1 << 24

type node struct {
	name      string
	isDir     bool
	isSymlink bool
	data      []byte
	target    string
	children  []*node
	ino       uint32
}

// Builder assembles an in-memory filesystem tree and serializes it to a
// SquashFS image via Build.
type Builder struct {
	root *node
}

// New returns an empty Builder, with just a root directory.
func New() *Builder {
	return &Builder{root: &node{name: "", isDir: true}}
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	if start < len(p) {
		parts = append(parts, p[start:])
	}
	return parts
}

func (b *Builder) mkdirAll(parts []string) *node {
	cur := b.root
	for _, part := range parts {
		var next *node
		for _, c := range cur.children {
			if c.name == part && c.isDir {
				next = c
				break
			}
		}
		if next == nil {
			next = &node{name: part, isDir: true}
			cur.children = append(cur.children, next)
		}
		cur = next
	}
	return cur
}

// AddFile creates a regular file at path (creating any missing parent
// directories) with the given content.
func (b *Builder) AddFile(path string, data []byte) {
	parts := splitPath(path)
	dir := b.mkdirAll(parts[:len(parts)-1])
	dir.children = append(dir.children, &node{name: parts[len(parts)-1], data: data})
}

// AddSymlink creates a symlink at path pointing at target.
func (b *Builder) AddSymlink(path, target string) {
	parts := splitPath(path)
	dir := b.mkdirAll(parts[:len(parts)-1])
	dir.children = append(dir.children, &node{name: parts[len(parts)-1], isSymlink: true, target: target})
}

// AddDir creates an empty directory at path.
func (b *Builder) AddDir(path string) {
	b.mkdirAll(splitPath(path))
}

type fragmentSlot struct {
	start      uint64
	size       uint32
	compressed bool
}

// builderState carries the scratch state threaded through serialization.
type builderState struct {
	image     *bytes.Buffer
	fragments []fragmentSlot
	dirBuf    bytes.Buffer // decoded directory-table payload, one block
	inodeBuf  bytes.Buffer // decoded inode-table payload, one block
	nextIno   uint32
}

func zlibCompress(p []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(p)
	w.Close()
	return buf.Bytes()
}

// writeMetadataBlock appends one compressed metadata block (2-byte header +
// zlib payload) to st.image at the end of the buffer, and returns its
// on-disk start offset.
func writeMetadataBlock(st *builderState, payload []byte) uint64 {
	start := uint64(st.image.Len())
	compressed := zlibCompress(payload)
	hdr := uint16(len(compressed)) // bit15 clear: compressed
	binary.Write(st.image, binary.LittleEndian, hdr)
	st.image.Write(compressed)
	return start
}

// assignInodeNumbers walks the tree depth-first, giving every non-root
// node a number starting at 1; the root gets the final number, matching
// the convention this package's reader resolves the root through.
func assignInodeNumbers(root *node) uint32 {
	next := uint32(1)
	var walk func(n *node)
	walk = func(n *node) {
		sort.Slice(n.children, func(i, j int) bool { return n.children[i].name < n.children[j].name })
		for _, c := range n.children {
			c.ino = next
			next++
			if c.isDir {
				walk(c)
			}
		}
	}
	walk(root)
	root.ino = next
	return next
}

// layoutFile writes a regular file's data blocks (and, if it has a
// trailing partial block, registers a fragment slot for it) and returns the
// block-size-list entries and fragment index a REG inode needs.
func layoutFile(st *builderState, n *node) (startBlock uint64, blocks []uint32, fragIndex uint32, fragOffset uint32) {
	fragIndex = noFragment
	if len(n.data) == 0 {
		return 0, nil, fragIndex, 0
	}

	full := len(n.data) / BlockSize
	tail := n.data[full*BlockSize:]

	startBlock = uint64(st.image.Len())
	for i := 0; i < full; i++ {
		chunk := n.data[i*BlockSize : (i+1)*BlockSize]
		compressed := zlibCompress(chunk)
		st.image.Write(compressed)
		blocks = append(blocks, uint32(len(compressed)))
	}

	if len(tail) > 0 {
		compressed := zlibCompress(tail)
		slotStart := uint64(st.image.Len())
		st.image.Write(compressed)
		fragIndex = uint32(len(st.fragments))
		fragOffset = 0
		st.fragments = append(st.fragments, fragmentSlot{start: slotStart, size: uint32(len(compressed)), compressed: true})
	}

	return startBlock, blocks, fragIndex, fragOffset
}

// serializeDir writes n's children as one directory-stream header+entries
// run into st.dirBuf (every fixture directory fits in a single run, since
// fixtures are small) and returns the (startBlock, offset, size) a DIR
// inode needs to reference it.
func serializeDir(st *builderState, n *node) (startBlock uint64, offset uint32, size uint64) {
	offset = uint32(st.dirBuf.Len())
	begin := st.dirBuf.Len()

	if len(n.children) == 0 {
		// A directory with no children is represented by a zero-byte
		// range: no header is ever written, and the reader short-circuits
		// on Size<=3 without attempting to read one.
		return 0, offset, 0
	}

	binary.Write(&st.dirBuf, binary.LittleEndian, uint32(len(n.children)-1))
	binary.Write(&st.dirBuf, binary.LittleEndian, uint32(0)) // start_block: always 0, single-block directory table
	binary.Write(&st.dirBuf, binary.LittleEndian, n.children[0].ino)

	for _, c := range n.children {
		binary.Write(&st.dirBuf, binary.LittleEndian, uint16(0)) // intra-block offset: unused by this reader
		binary.Write(&st.dirBuf, binary.LittleEndian, int16(int32(c.ino)-int32(n.children[0].ino)))
		binary.Write(&st.dirBuf, binary.LittleEndian, uint16(kindOf(c)))
		name := []byte(c.name)
		binary.Write(&st.dirBuf, binary.LittleEndian, uint16(len(name)-1))
		st.dirBuf.Write(name)
	}

	// file_size always counts 3 bytes of accounting overhead beyond the
	// listing's actual byte range; the reader subtracts them back off.
	return 0, offset, uint64(st.dirBuf.Len()-begin) + 3
}

func kindOf(n *node) squashfs.Type {
	switch {
	case n.isDir:
		return squashfs.DirType
	case n.isSymlink:
		return squashfs.SymlinkType
	default:
		return squashfs.FileType
	}
}

// serializeInode appends one inode's on-disk bytes (basic-form encoding
// only; fixtures never need the extended variants) to st.inodeBuf.
func serializeInode(st *builderState, n *node, dirStart uint64, dirOffset uint32, dirSize uint64, startBlock uint64, blocks []uint32, fragIndex, fragOffset uint32, parentIno uint32) {
	typ := kindOf(n)
	binary.Write(&st.inodeBuf, binary.LittleEndian, uint16(typ))
	binary.Write(&st.inodeBuf, binary.LittleEndian, uint16(0755))
	binary.Write(&st.inodeBuf, binary.LittleEndian, uint16(0))
	binary.Write(&st.inodeBuf, binary.LittleEndian, uint16(0))
	binary.Write(&st.inodeBuf, binary.LittleEndian, int32(0))
	binary.Write(&st.inodeBuf, binary.LittleEndian, n.ino)

	switch typ {
	case squashfs.DirType:
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint32(dirStart))
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint32(len(n.children)+1))
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint16(dirSize))
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint16(dirOffset))
		binary.Write(&st.inodeBuf, binary.LittleEndian, parentIno)

	case squashfs.FileType:
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint32(startBlock))
		binary.Write(&st.inodeBuf, binary.LittleEndian, fragIndex)
		binary.Write(&st.inodeBuf, binary.LittleEndian, fragOffset)
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint32(len(n.data)))
		for _, bs := range blocks {
			binary.Write(&st.inodeBuf, binary.LittleEndian, bs)
		}

	case squashfs.SymlinkType:
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint32(1))
		target := []byte(n.target)
		binary.Write(&st.inodeBuf, binary.LittleEndian, uint32(len(target)))
		st.inodeBuf.Write(target)
	}
}

// Build serializes the tree into a complete SquashFS image.
func Build(b *Builder) []byte {
	total := assignInodeNumbers(b.root)

	st := &builderState{image: &bytes.Buffer{}}

	// Reserve the superblock's space; it is patched in at the end once
	// every table's final position is known.
	sbSize := binary.Size(squashfs.Superblock{})
	st.image.Write(make([]byte, sbSize))

	// Walk the tree bottom-up isn't required since directories only need
	// their children's inode numbers (already assigned) and file data
	// only needs to be written once; one depth-first pass suffices,
	// writing file data and directory entries as it goes and inode bytes
	// for every node (including the root) afterwards.
	type built struct {
		n                         *node
		dirStart                  uint64
		dirOffset                 uint32
		dirSize                   uint64
		dataStart                 uint64
		blocks                    []uint32
		fragIndex, fragOffset     uint32
		parentIno                 uint32
	}
	var order []built

	var walk func(n *node, parentIno uint32)
	walk = func(n *node, parentIno uint32) {
		if n.isDir {
			for _, c := range n.children {
				if !c.isDir && !c.isSymlink {
					start, blocks, fi, fo := layoutFile(st, c)
					order = append(order, built{n: c, dataStart: start, blocks: blocks, fragIndex: fi, fragOffset: fo, parentIno: n.ino})
				} else if c.isSymlink {
					order = append(order, built{n: c, parentIno: n.ino})
				}
			}
			for _, c := range n.children {
				if c.isDir {
					walk(c, n.ino)
				}
			}
			dirStart, dirOffset, dirSize := serializeDir(st, n)
			order = append(order, built{n: n, dirStart: dirStart, dirOffset: dirOffset, dirSize: dirSize, parentIno: parentIno})
		}
	}
	walk(b.root, b.root.ino)

	for _, it := range order {
		serializeInode(st, it.n, it.dirStart, it.dirOffset, it.dirSize, it.dataStart, it.blocks, it.fragIndex, it.fragOffset, it.parentIno)
	}

	inodeTableStart := writeMetadataBlock(st, st.inodeBuf.Bytes())
	dirTableStart := writeMetadataBlock(st, st.dirBuf.Bytes())

	fragTableStart := uint64(st.image.Len())
	var fragCount uint32
	if len(st.fragments) > 0 {
		var fragPayload bytes.Buffer
		for _, f := range st.fragments {
			binary.Write(&fragPayload, binary.LittleEndian, f.start)
			size := f.size
			if !f.compressed {
				size |= dataBlockUncompressedFlag
			}
			binary.Write(&fragPayload, binary.LittleEndian, size)
			binary.Write(&fragPayload, binary.LittleEndian, uint32(0))
		}
		fragMetaStart := writeMetadataBlock(st, fragPayload.Bytes())
		// FragTableStart addresses the index array of metadata-block
		// pointers, which follows the block it points at.
		fragTableStart = uint64(st.image.Len())
		binary.Write(st.image, binary.LittleEndian, fragMetaStart)
		fragCount = uint32(len(st.fragments))
	}

	bytesUsed := uint64(st.image.Len())

	sb := squashfs.Superblock{
		Magic:             squashfs.SuperblockMagic,
		InodeCount:        total,
		BlockSize:         BlockSize,
		FragCount:         fragCount,
		Comp:              squashfs.GZip,
		BlockLog:          uint16(blockLogOf(BlockSize)),
		IdCount:           0,
		VMajor:            4,
		VMinor:            0,
		RootInode:         0,
		BytesUsed:         bytesUsed,
		IdTableStart:      bytesUsed,
		XattrIdTableStart: ^uint64(0),
		InodeTableStart:   inodeTableStart,
		DirTableStart:     dirTableStart,
		FragTableStart:    fragTableStart,
		ExportTableStart:  ^uint64(0),
	}
	if fragCount == 0 {
		sb.FragTableStart = ^uint64(0)
	}

	// Pad to a sector boundary: readAt rounds every read out to full
	// sectors, and a read landing near the image's tail would otherwise
	// ask the backing io.ReaderAt for bytes past the buffer's end.
	const sectorSize = 512
	if rem := st.image.Len() % sectorSize; rem != 0 {
		st.image.Write(make([]byte, sectorSize-rem))
	}

	out := st.image.Bytes()
	var hdr bytes.Buffer
	binary.Write(&hdr, binary.LittleEndian, sb)
	copy(out[:sbSize], hdr.Bytes())

	return out
}

func blockLogOf(size int) int {
	log := 0
	for size > 1 {
		size >>= 1
		log++
	}
	return log
}
