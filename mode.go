package squashfs

import "io/fs"

// SquashFS stores permissions the Linux way; these constants mirror the
// values Linux uses for st_mode (see man 7 inode).
const (
	modeIFMT   = 0xf000
	modeIFREG  = 0x8000
	modeIFDIR  = 0x4000
	modeIFBLK  = 0x6000
	modeIFCHR  = 0x2000
	modeIFIFO  = 0x1000
	modeIFLNK  = 0xa000
	modeIFSOCK = 0xc000

	modeISVTX = 0x200
	modeISGID = 0x400
	modeISUID = 0x800
)

var unixTypeBits = []struct {
	mask, mode uint32
	fsMode     fs.FileMode
}{
	{modeIFMT, modeIFCHR, fs.ModeCharDevice},
	{modeIFMT, modeIFBLK, fs.ModeDevice},
	{modeIFMT, modeIFDIR, fs.ModeDir},
	{modeIFMT, modeIFIFO, fs.ModeNamedPipe},
	{modeIFMT, modeIFLNK, fs.ModeSymlink},
	{modeIFMT, modeIFSOCK, fs.ModeSocket},
}

// unixToMode converts a raw Linux-style st_mode value (as stored in an
// inode's Perm field) into an fs.FileMode, including the setuid/setgid/
// sticky bits squashfs preserves but fs.FileMode models as separate flags.
func unixToMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)

	for _, b := range unixTypeBits {
		if mode&b.mask == b.mode {
			res |= b.fsMode
			break
		}
	}

	if mode&modeISGID == modeISGID {
		res |= fs.ModeSetgid
	}
	if mode&modeISUID == modeISUID {
		res |= fs.ModeSetuid
	}
	if mode&modeISVTX == modeISVTX {
		res |= fs.ModeSticky
	}

	return res
}
