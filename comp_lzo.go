//go:build lzo

package squashfs

import (
	"bytes"

	"github.com/anchore/go-lzo"
)

func init() {
	RegisterDecompressor(LZO, lzoDecompress)
}

func lzoDecompress(src []byte, dstCapacity int) ([]byte, error) {
	return lzo.Decompress1X(bytes.NewReader(src), len(src), dstCapacity)
}
