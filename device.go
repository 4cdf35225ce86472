package squashfs

import (
	"fmt"
	"io"
)

// BlockDevice is the single primitive this package consumes from its host
// environment: a byte-addressable read over a sector-addressed storage
// device. Everything above this layer — superblock, metadata blocks, data
// blocks, fragments — is expressed in terms of ReadSectors plus sectorSpan.
type BlockDevice interface {
	// SectorSize returns the device's sector size in bytes (512 B – 4 KiB
	// in practice, though nothing here assumes a particular value).
	SectorSize() int

	// ReadSectors reads sectorCount sectors starting at sectorIndex into
	// dst, which is sized to exactly sectorCount*SectorSize() bytes. It
	// returns ErrIO if the device supplied fewer sectors than requested.
	ReadSectors(sectorIndex, sectorCount int64, dst []byte) error
}

// sectorSpan computes the sector-aligned span of device needed to cover
// [byteOffset, byteOffset+byteLength) at the given sector size: the first
// sector to read, how many sectors that takes, and the caller's intra-sector
// offset within the first sector of the span.
func sectorSpan(sectorSize int, byteOffset, byteLength int64) (sectorIndex, sectorCount, intraSectorOffset int64) {
	ss := int64(sectorSize)
	sectorIndex = byteOffset / ss
	intraSectorOffset = byteOffset % ss
	sectorCount = (intraSectorOffset + byteLength + ss - 1) / ss
	return
}

// readAt performs a byte-range read against dev by rounding out to sector
// boundaries via sectorSpan, reading the aligned span into a scratch buffer,
// and slicing out exactly the requested range. Every read site in this
// package funnels through here so sector alignment is handled in one place.
func readAt(dev BlockDevice, byteOffset int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	sectorIndex, sectorCount, intraOffset := sectorSpan(dev.SectorSize(), byteOffset, int64(len(p)))

	span := make([]byte, sectorCount*int64(dev.SectorSize()))
	if err := dev.ReadSectors(sectorIndex, sectorCount, span); err != nil {
		return fmt.Errorf("%w: %s", ErrIO, err)
	}

	n := copy(p, span[intraOffset:])
	if n != len(p) {
		return fmt.Errorf("%w: short span for offset %d length %d", ErrIO, byteOffset, len(p))
	}
	return nil
}

// fileDevice adapts any io.ReaderAt (a *os.File, an io.SectionReader over a
// partition, ...) into a BlockDevice, for hosts that already have a plain
// byte-addressable reader and don't need real sector-granularity I/O.
type fileDevice struct {
	r          io.ReaderAt
	sectorSize int
}

// NewFileDevice wraps r as a BlockDevice reporting the given sector size.
// sectorSize must be a positive power of two; callers embedding this driver
// in a bootloader will typically supply their own BlockDevice instead and
// never call this.
func NewFileDevice(r io.ReaderAt, sectorSize int) BlockDevice {
	if sectorSize <= 0 {
		sectorSize = 512
	}
	return &fileDevice{r: r, sectorSize: sectorSize}
}

func (d *fileDevice) SectorSize() int { return d.sectorSize }

func (d *fileDevice) ReadSectors(sectorIndex, sectorCount int64, dst []byte) error {
	off := sectorIndex * int64(d.sectorSize)
	want := sectorCount * int64(d.sectorSize)
	if int64(len(dst)) < want {
		return fmt.Errorf("%w: destination buffer too small", ErrIO)
	}

	n, err := d.r.ReadAt(dst[:want], off)
	if err != nil && !(err == io.EOF && int64(n) == want) {
		return err
	}
	if int64(n) != want {
		return fmt.Errorf("%w: got %d of %d requested bytes", ErrIO, n, want)
	}
	return nil
}
