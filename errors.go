package squashfs

import "errors"

// Package-specific sentinel errors, usable with errors.Is / errors.As.
var (
	// ErrBadMagic is returned when a superblock's magic number does not match squashfs.
	ErrBadMagic = errors.New("squashfs: bad magic")

	// ErrUnsupportedCodec is returned when an image references a compression codec
	// for which no decompressor has been registered (see RegisterDecompressor).
	ErrUnsupportedCodec = errors.New("squashfs: unsupported compression codec")

	// ErrCorruptImage covers every format-consistency violation: a metadata block
	// claiming an out-of-range payload length, a decompression failure, an inode
	// walk that runs past its table, a directory iterator that overruns its
	// listing, or a fragment index outside sb.FragCount.
	ErrCorruptImage = errors.New("squashfs: corrupt image")

	// ErrIO is returned when the block device returns fewer bytes/sectors than requested.
	ErrIO = errors.New("squashfs: short read from block device")

	// ErrNotFound is a path-resolution outcome: no entry by that name exists.
	ErrNotFound = errors.New("squashfs: not found")

	// ErrNotADirectory is a path-resolution outcome: a non-terminal path component
	// resolved to something other than a directory.
	ErrNotADirectory = errors.New("squashfs: not a directory")

	// ErrEmptyDirectory is a path-resolution outcome: the directory is well-formed
	// but carries only the 3-byte empty marker.
	ErrEmptyDirectory = errors.New("squashfs: empty directory")

	// ErrUnsupportedType is returned by ReadFile, ReadAt and ReadRange when the target
	// inode is neither REG nor LREG, and by Readlink when it is not a symlink.
	ErrUnsupportedType = errors.New("squashfs: unsupported inode type for this operation")

	// ErrLengthExceedsFile is returned when a caller-supplied read length exceeds the file size.
	ErrLengthExceedsFile = errors.New("squashfs: requested length exceeds file size")

	// ErrOutOfMemory is returned when an allocation needed to satisfy a request fails.
	ErrOutOfMemory = errors.New("squashfs: out of memory")

	// ErrInodeNotFound is the inode walker's internal "no such inode number" signal.
	// Callers outside the walker see it wrapped in ErrCorruptImage: a directory entry
	// pointing at a missing inode number means the image itself is inconsistent.
	ErrInodeNotFound = errors.New("squashfs: inode not found in inode table")

	// ErrTooManySymlinks guards pathological symlink chains, should a host layer
	// choose to follow symlinks itself (this package never does).
	ErrTooManySymlinks = errors.New("squashfs: too many levels of symbolic links")
)
