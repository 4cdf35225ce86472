package squashfs

// Option configures an Image at probe time.
type Option func(img *Image) error

// WithSectorSize overrides the sector size reported by a BlockDevice created
// via NewFileDevice. Ignored when probing against a caller-supplied
// BlockDevice, which already knows its own sector size.
func WithSectorSize(size int) Option {
	return func(img *Image) error {
		img.sectorSizeOverride = size
		return nil
	}
}

// WithMaxSymlinkDepth stores n as the Image's symlink-hop limit (default
// defaultMaxSymlinkDepth). This package never follows symlinks, nothing in
// it reads the stored value, and no exported method returns it.
func WithMaxSymlinkDepth(n int) Option {
	return func(img *Image) error {
		img.maxSymlinkDepth = n
		return nil
	}
}

// WithInodeOffset shifts every inode number this Image reports by offt, so a
// host mounting several squashfs images side by side can hand out disjoint
// inode numbers across them.
func WithInodeOffset(offt uint64) Option {
	return func(img *Image) error {
		img.inodeOffset = offt
		return nil
	}
}

const defaultMaxSymlinkDepth = 40
