//go:build zstd

package squashfs

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

func init() {
	RegisterDecompressor(ZSTD, zstdDecompress)
}

func zstdDecompress(src []byte, dstCapacity int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return readCapped(dec, dstCapacity)
}
