package squashfs

import (
	"io"
	"io/fs"
)

// readDataBlock reads and, if necessary, decompresses the blockIdx'th data
// block of a regular-file inode. A zero-valued list entry marks a sparse
// (hole) block: a run of zero bytes the image never stored on disk.
func (img *Image) readDataBlock(ino *decodedInode, blockIdx int) ([]byte, error) {
	raw := ino.Blocks[blockIdx]
	if raw == 0 {
		return make([]byte, img.sb.BlockSize), nil
	}

	size := raw & dataBlockSizeMask
	compressed := raw&dataBlockUncompressedFlag == 0

	data := make([]byte, size)
	if err := readAt(img.dev, int64(ino.StartBlock+ino.BlockOffsets[blockIdx]), data); err != nil {
		return nil, err
	}
	if !compressed {
		return data, nil
	}
	return decompress(img.sb.Comp, data, int(img.sb.BlockSize))
}

// ReadRange reads exactly length bytes starting at off from ino's content,
// the explicit-length entry point component 10 exposes: a request whose
// range runs past ino.Size is rejected with ErrLengthExceedsFile rather
// than silently truncated.
func (img *Image) ReadRange(ino *decodedInode, off, length int64) ([]byte, error) {
	if !ino.IsRegular() {
		return nil, ErrUnsupportedType
	}
	if off < 0 || length < 0 || uint64(off)+uint64(length) > ino.Size {
		return nil, ErrLengthExceedsFile
	}
	buf := make([]byte, length)
	n, err := img.ReadAt(ino, buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// ReadAt implements io.ReaderAt semantics over ino's content: it assembles
// [off, off+len(p)) by walking the data-block list, decompressing blocks on
// demand, and consulting the fragment resolver for any tail shorter than a
// full block. A request reaching past ino.Size is clamped to what remains
// and that short read returns a nil error; io.EOF is returned only once off
// reaches ino.Size.
func (img *Image) ReadAt(ino *decodedInode, p []byte, off int64) (int, error) {
	if !ino.IsRegular() {
		return 0, ErrUnsupportedType
	}
	if off < 0 {
		return 0, ErrLengthExceedsFile
	}
	if len(p) == 0 {
		return 0, nil
	}
	if uint64(off) >= ino.Size {
		return 0, io.EOF
	}
	if uint64(off)+uint64(len(p)) > ino.Size {
		p = p[:ino.Size-uint64(off)]
	}

	blockSize := uint64(img.sb.BlockSize)
	fullBlocks := uint64(len(ino.Blocks))
	tailLen := ino.Size - fullBlocks*blockSize

	n := 0
	cur := uint64(off)
	end := cur + uint64(len(p))

	for cur < end {
		blockIdx := int(cur / blockSize)
		blockOff := cur % blockSize

		var chunk []byte
		if uint64(blockIdx) < fullBlocks {
			c, err := img.readDataBlock(ino, blockIdx)
			if err != nil {
				return n, err
			}
			chunk = c
		} else {
			fe, err := resolveFragment(img.dev, img.sb, ino.FragIndex)
			if err != nil {
				return n, err
			}
			chunk, err = readFragment(img.dev, img.sb.Comp, fe, ino.FragOffset, int(tailLen), img.sb.BlockSize)
			if err != nil {
				return n, err
			}
		}

		avail := chunk[blockOff:]
		take := copy(p[n:], avail)
		n += take
		cur += uint64(take)
	}

	return n, nil
}

// openFile adapts an Image+decodedInode pair to fs.File (and
// fs.ReadDirFile for directories), the shape io/fs.FS requires Open to
// return.
type openFile struct {
	img  *Image
	name string
	ino  *decodedInode

	readOff int64
	dirDone bool
}

var _ fs.File = (*openFile)(nil)
var _ fs.ReadDirFile = (*openFile)(nil)

func (f *openFile) Stat() (fs.FileInfo, error) {
	return &inodeInfo{name: f.name, ino: f.ino}, nil
}

func (f *openFile) Read(p []byte) (int, error) {
	if f.ino.IsDir() {
		return 0, fs.ErrInvalid
	}
	n, err := f.img.ReadAt(f.ino, p, f.readOff)
	f.readOff += int64(n)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (f *openFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.ino.IsDir() {
		return nil, fs.ErrInvalid
	}
	if f.dirDone {
		return nil, nil
	}

	entries, err := f.img.ReadDir(f.ino)
	if err == ErrEmptyDirectory {
		f.dirDone = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.dirDone = true

	out := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = &dirEntryAdapter{name: e.Name, ino: e.Inode}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (f *openFile) Close() error {
	return nil
}
