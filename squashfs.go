package squashfs

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"path"
	"time"
)

const absentTable = ^uint64(0)

// Image is a probed, ready-to-read handle on a SquashFS image: a
// superblock plus its materialized inode and directory tables. Image
// holds no mutable cursor state of its own — every read is expressed as a
// function of a decodedInode, so concurrent callers can share one Image
// freely.
type Image struct {
	dev BlockDevice
	sb  *Superblock

	inodes []byte         // materialized inode-table bytes
	dirs   *metadataTable // materialized directory-table blocks

	sectorSizeOverride int
	maxSymlinkDepth    int
	inodeOffset        uint64
}

// Probe reads dev's superblock and materializes its inode and directory
// tables, returning a ready-to-use Image. This is the package's entry
// point; every other operation is a method on the Image it returns.
func Probe(dev BlockDevice, opts ...Option) (*Image, error) {
	img := &Image{
		dev:             dev,
		maxSymlinkDepth: defaultMaxSymlinkDepth,
	}
	for _, opt := range opts {
		if err := opt(img); err != nil {
			return nil, err
		}
	}

	sb, err := probeSuperblock(dev)
	if err != nil {
		return nil, err
	}
	img.sb = sb

	inodeTable, err := readMetadataRegion(dev, sb.Comp, sb.InodeTableStart, sb.DirTableStart)
	if err != nil {
		return nil, fmt.Errorf("inode table: %w", err)
	}
	img.inodes = inodeTable.decoded

	dirs, err := readMetadataRegion(dev, sb.Comp, sb.DirTableStart, sb.directoryTableEnd())
	if err != nil {
		return nil, fmt.Errorf("directory table: %w", err)
	}
	img.dirs = dirs

	log.Printf("squashfs: probed image: %d inodes, compressor=%s, block size=%d", sb.InodeCount, sb.Comp, sb.BlockSize)
	return img, nil
}

// ProbeFile adapts r into a BlockDevice via NewFileDevice and probes it;
// WithSectorSize configures the sector size NewFileDevice is built with
// (default 512). Passed to Probe directly, WithSectorSize has no effect:
// an already-constructed BlockDevice keeps its own sector size.
func ProbeFile(r io.ReaderAt, opts ...Option) (*Image, error) {
	cfg := &Image{sectorSizeOverride: 512}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	dev := NewFileDevice(r, cfg.sectorSizeOverride)
	return Probe(dev, opts...)
}

// directoryTableEnd resolves where the directory table's metadata blocks
// stop: the start of whichever table conventionally follows it (the
// fragment table), falling back to the image's total used-byte count for
// images that omit a fragment table entirely (NoFragments).
func (sb *Superblock) directoryTableEnd() uint64 {
	if sb.FragTableStart != absentTable && sb.FragTableStart > sb.DirTableStart {
		return sb.FragTableStart
	}
	return sb.BytesUsed
}

// Superblock returns the image's decoded superblock.
func (img *Image) Superblock() *Superblock {
	return img.sb
}

// rootInodeNumber is the on-disk inode number of the root directory. Real
// images number inodes 1..sb.InodeCount and conventionally give the root
// directory the highest number, sb.InodeCount; this package looks the root
// up the same way it looks up any other inode, by linear scan, rather than
// trusting the superblock's separate root_inode byte reference.
func (img *Image) rootInodeNumber() uint32 {
	return img.sb.InodeCount
}

// inodeByNumber resolves a raw on-disk inode number (not adjusted by
// WithInodeOffset) to its decoded form via the component-5 linear scan. A
// directory entry naming an inode number the scan can't find means the
// image itself is inconsistent, so the sentinel is wrapped into
// ErrCorruptImage at this boundary.
func (img *Image) inodeByNumber(number uint32) (*decodedInode, error) {
	_, dec, err := inodeOffsetByNumber(img.inodes, img.sb.BlockSize, img.sb.InodeCount, number)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptImage, err)
	}
	return dec, nil
}

// Entry is the host-facing view of one directory entry: a resolved inode
// plus the name it was found under.
type Entry struct {
	Name  string
	Inode *decodedInode
}

// InodeNumber returns the entry's public inode number, shifted by whatever
// WithInodeOffset configured.
func (img *Image) InodeNumber(ino *decodedInode) uint64 {
	return uint64(ino.Number) + img.inodeOffset
}

// ReadDir returns every entry in the directory dir names, in on-disk order.
// dir must be a directory inode (DirType/XDirType); anything else reports
// ErrNotADirectory.
func (img *Image) ReadDir(dir *decodedInode) ([]Entry, error) {
	if !dir.IsDir() {
		return nil, ErrNotADirectory
	}

	// The on-disk file_size of a directory inode always carries 3 bytes of
	// accounting overhead beyond the bytes the listing actually occupies
	// (spec.md §4.7); a real empty directory's file_size is 3, never 0.
	if dir.Size <= 3 {
		return nil, ErrEmptyDirectory
	}

	start, err := img.dirs.directoryOffset(uint32(dir.StartBlock), uint16(dir.Offset))
	if err != nil {
		return nil, err
	}

	it, err := newDirIterator(img.dirs, start, dir.Size-3)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		de, err := it.next()
		if err != nil {
			return nil, err
		}
		if de == nil {
			break
		}
		childIno, err := img.inodeByNumber(de.InodeNumber)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: de.Name, Inode: childIno})
	}

	if len(entries) == 0 {
		return nil, ErrEmptyDirectory
	}
	return entries, nil
}

// Root returns the decoded root directory inode.
func (img *Image) Root() (*decodedInode, error) {
	return img.inodeByNumber(img.rootInodeNumber())
}

// ReadFile reads the entirety of a regular file's content. ino must be
// IsRegular(); anything else reports ErrUnsupportedType.
func (img *Image) ReadFile(ino *decodedInode) ([]byte, error) {
	if !ino.IsRegular() {
		return nil, ErrUnsupportedType
	}
	buf := make([]byte, ino.Size)
	n, err := img.ReadAt(ino, buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Readlink returns the target path stored in a symlink inode.
func (img *Image) Readlink(ino *decodedInode) (string, error) {
	if !ino.IsSymlink() {
		return "", ErrUnsupportedType
	}
	return string(ino.SymTarget), nil
}

// inodeInfo adapts a decodedInode to fs.FileInfo for the io/fs sugar layer.
type inodeInfo struct {
	name string
	ino  *decodedInode
}

func (fi *inodeInfo) Name() string       { return fi.name }
func (fi *inodeInfo) Size() int64        { return int64(fi.ino.Size) }
func (fi *inodeInfo) Mode() fs.FileMode  { return unixToMode(uint32(fi.ino.Perm)) | fi.ino.Type.Mode() }
func (fi *inodeInfo) ModTime() time.Time { return time.Unix(int64(fi.ino.ModTime), 0) }
func (fi *inodeInfo) IsDir() bool        { return fi.ino.IsDir() }
func (fi *inodeInfo) Sys() any           { return fi.ino }

// dirEntryAdapter adapts an Entry (a name plus its resolved inode) to fs.DirEntry.
type dirEntryAdapter struct {
	name string
	ino  *decodedInode
}

func (de *dirEntryAdapter) Name() string               { return de.name }
func (de *dirEntryAdapter) IsDir() bool                 { return de.ino.IsDir() }
func (de *dirEntryAdapter) Type() fs.FileMode           { return de.ino.Type.Mode() }
func (de *dirEntryAdapter) Info() (fs.FileInfo, error)  { return &inodeInfo{name: de.name, ino: de.ino}, nil }

// Resolve walks name (a slash-separated path relative to the image root)
// through successive directory lookups and returns the inode it names. The
// empty string and "." both resolve to the root directory.
func (img *Image) Resolve(name string) (*decodedInode, error) {
	root, err := img.Root()
	if err != nil {
		return nil, err
	}
	return img.resolveFrom(root, name)
}

// Open implements fs.FS, returning a read-only *openFile that reads regular
// files and lists directories (sufficient for fs.ReadDir/fs.ReadFile/
// fs.Stat/fs.Glob to work against an Image via the io/fs helper functions).
func (img *Image) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	ino, err := img.Resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: translateFSError(err)}
	}
	return &openFile{img: img, name: path.Base(name), ino: ino}, nil
}

// Stat implements fs.StatFS.
func (img *Image) Stat(name string) (fs.FileInfo, error) {
	f, err := img.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// ReadFileFS resolves name and returns the file's whole content. It is not
// named ReadFile, so Image does not satisfy fs.ReadFileFS; fs.ReadFile
// reaches file content through Open instead.
func (img *Image) ReadFileFS(name string) ([]byte, error) {
	ino, err := img.Resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: translateFSError(err)}
	}
	return img.ReadFile(ino)
}

// ReadDirFS resolves name and returns its entries, with an empty directory
// reading as zero entries. It is not named ReadDir, so Image does not
// satisfy fs.ReadDirFS; fs.ReadDir lists directories through Open instead.
func (img *Image) ReadDirFS(name string) ([]fs.DirEntry, error) {
	ino, err := img.Resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: translateFSError(err)}
	}
	entries, err := img.ReadDir(ino)
	if err == ErrEmptyDirectory {
		return nil, nil
	}
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: translateFSError(err)}
	}
	out := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = &dirEntryAdapter{name: e.Name, ino: e.Inode}
	}
	return out, nil
}

func translateFSError(err error) error {
	switch err {
	case ErrNotFound:
		return fs.ErrNotExist
	case ErrNotADirectory:
		return fs.ErrInvalid
	default:
		return err
	}
}
