package squashfs

import (
	"fmt"
	"io"
)

// Codec identifies a SquashFS compression algorithm, per the conventions
// fixed by the on-disk format.
type Codec uint16

const (
	GZip Codec = 1
	LZMA Codec = 2
	LZO  Codec = 3
	XZ   Codec = 4
	LZ4  Codec = 5
	ZSTD Codec = 6
)

func (c Codec) String() string {
	switch c {
	case GZip:
		return "GZip"
	case LZMA:
		return "LZMA"
	case LZO:
		return "LZO"
	case XZ:
		return "XZ"
	case LZ4:
		return "LZ4"
	case ZSTD:
		return "ZSTD"
	}
	return fmt.Sprintf("Codec(%d)", c)
}

// decompressFunc decodes src (an on-disk, possibly-truncated payload) into
// at most dstCapacity bytes of decoded output. Implementations must treat
// dstCapacity as a hard ceiling: anything beyond it signals a corrupt image
// rather than getting silently truncated.
type decompressFunc func(src []byte, dstCapacity int) ([]byte, error)

// decompressors holds one entry per codec this build supports. Zlib (GZip)
// is always registered; the rest register themselves from build-tag-gated
// files' init() functions, so a minimal build only pulls in the codecs it
// was compiled with.
var decompressors = map[Codec]decompressFunc{}

// RegisterDecompressor installs fn as the decoder for codec. Codec
// implementations call this from an init() function; it is not meant to be
// called once the package is in use.
func RegisterDecompressor(codec Codec, fn decompressFunc) {
	decompressors[codec] = fn
}

// decompress dispatches to the registered decoder for codec, enforcing the
// dstCapacity ceiling the metadata-block and data-block protocols rely on
// (8192 bytes for metadata payloads, sb.BlockSize for data blocks).
func decompress(codec Codec, src []byte, dstCapacity int) ([]byte, error) {
	fn, ok := decompressors[codec]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}

	out, err := fn(src, dstCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %s decompress: %s", ErrCorruptImage, codec, err)
	}
	if len(out) > dstCapacity {
		return nil, fmt.Errorf("%w: %s decompressed to %d bytes, capacity %d", ErrCorruptImage, codec, len(out), dstCapacity)
	}
	return out, nil
}

// readCapped reads at most dstCapacity+1 bytes from r so that a stream
// decoding to more than dstCapacity bytes is caught by decompress's capacity
// check above rather than silently truncated.
func readCapped(r io.Reader, dstCapacity int) ([]byte, error) {
	buf := make([]byte, dstCapacity+1)
	n, err := io.ReadFull(r, buf)
	switch err {
	case io.ErrUnexpectedEOF, io.EOF:
		return buf[:n], nil
	case nil:
		return buf, nil
	default:
		return nil, err
	}
}
