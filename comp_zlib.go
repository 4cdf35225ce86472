package squashfs

import (
	"bytes"

	"github.com/klauspost/compress/zlib"
)

// zlib is the one codec this package requires unconditionally: SquashFS's
// "GZip" codec id is in fact a zlib stream (RFC 1950), not raw gzip.
func init() {
	RegisterDecompressor(GZip, zlibDecompress)
}

func zlibDecompress(src []byte, dstCapacity int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return readCapped(zr, dstCapacity)
}
