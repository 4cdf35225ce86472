package squashfs

import (
	"bytes"
	"encoding/binary"
	"log"
)

// SuperblockMagic is the little-endian magic every SquashFS image starts with.
const SuperblockMagic uint32 = 0x73717368

// Superblock is the fully decoded, typed view of an image's 0-offset header.
// Field order matches the on-disk layout exactly: binary.Read decodes it in
// one pass, field by field, with no host padding inserted (see the
// encoding/binary package docs on reading into a struct).
//
// https://dr-emann.github.io/squashfs/ documents the wire layout this mirrors.
type Superblock struct {
	Magic             uint32
	InodeCount        uint32
	ModTime           int32
	BlockSize         uint32
	FragCount         uint32
	Comp              Codec
	BlockLog          uint16
	Flags             Flags
	IdCount           uint16
	VMajor            uint16
	VMinor            uint16
	RootInode         uint64
	BytesUsed         uint64
	IdTableStart      uint64
	XattrIdTableStart uint64
	InodeTableStart   uint64
	DirTableStart     uint64
	FragTableStart    uint64
	ExportTableStart  uint64
}

// superblockSize is the on-disk byte size of Superblock's fixed fields.
var superblockSize = binary.Size(Superblock{})

// probeSuperblock reads sector 0 of dev and decodes it into a Superblock,
// per spec §4.3: confirm the magic, decode little-endian fields, fail with
// ErrBadMagic otherwise.
func probeSuperblock(dev BlockDevice) (*Superblock, error) {
	head := make([]byte, superblockSize)
	log.Printf("squashfs: reading %d-byte superblock", len(head))
	if err := readAt(dev, 0, head); err != nil {
		return nil, err
	}

	sb := &Superblock{}
	if err := sb.unmarshal(head); err != nil {
		return nil, err
	}
	return sb, nil
}

func (s *Superblock) unmarshal(data []byte) error {
	if len(data) < 4 || binary.LittleEndian.Uint32(data[:4]) != SuperblockMagic {
		return ErrBadMagic
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, s); err != nil {
		return err
	}

	if err := s.validate(); err != nil {
		return err
	}
	return nil
}

// validate checks the invariants spec.md §3 lists for a well-formed
// superblock: block_size is a power of two consistent with block_log, and
// the table offsets are monotonically non-decreasing in on-disk physical
// layout order. That physical order — inode table, directory table,
// fragment table, export table, id table, xattr table — is NOT the same as
// the struct's field order (the superblock stores id_table_start and
// xattr_id_table_start ahead of inode_table_start in its own layout, a
// historical quirk of the format), so this check deliberately reorders the
// fields before comparing them.
func (s *Superblock) validate() error {
	if s.BlockSize == 0 || s.BlockSize != 1<<s.BlockLog {
		return ErrCorruptImage
	}

	offsets := []uint64{
		s.InodeTableStart,
		s.DirTableStart,
		s.FragTableStart,
		s.ExportTableStart,
		s.IdTableStart,
		s.XattrIdTableStart,
	}
	// fragment, export and xattr tables are commonly absent (NoFragments,
	// a non-exportable image, NoXattrs) and marked with the all-ones
	// sentinel; skip them rather than demand a meaningless ordering
	// against a table that isn't there.
	const absent = ^uint64(0)
	prev := uint64(0)
	havePrev := false
	for _, o := range offsets {
		if o == absent {
			continue
		}
		if havePrev && o < prev {
			return ErrCorruptImage
		}
		prev, havePrev = o, true
	}
	return nil
}
