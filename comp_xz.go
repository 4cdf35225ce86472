//go:build xz

package squashfs

import (
	"bytes"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

func init() {
	RegisterDecompressor(XZ, xzDecompress)
	RegisterDecompressor(LZMA, lzmaDecompress)
}

func xzDecompress(src []byte, dstCapacity int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	return readCapped(r, dstCapacity)
}

func lzmaDecompress(src []byte, dstCapacity int) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	return readCapped(r, dstCapacity)
}
