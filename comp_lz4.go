//go:build lz4

package squashfs

import (
	"bytes"

	"github.com/pierrec/lz4/v4"
)

func init() {
	RegisterDecompressor(LZ4, lz4Decompress)
}

func lz4Decompress(src []byte, dstCapacity int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	return readCapped(r, dstCapacity)
}
