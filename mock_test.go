package squashfs_test

import (
	"io"
	"testing"

	"github.com/embedfs/squashfs"
)

// mockReader implements io.ReaderAt and can be used to simulate
// errors or invalid data for testing error handling.
type mockReader struct {
	data   []byte
	errAt  int64
	errMsg error
}

func (m *mockReader) ReadAt(p []byte, off int64) (int, error) {
	if m.errMsg != nil && off >= m.errAt {
		return 0, m.errMsg
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// sectorPadded pads data out to a full 512-byte sector so a mock read
// completes in one shot instead of surfacing a short-read I/O error that
// would mask whatever the test actually means to exercise.
func sectorPadded(data []byte) []byte {
	const sectorSize = 512
	if rem := len(data) % sectorSize; rem != 0 {
		data = append(data, make([]byte, sectorSize-rem)...)
	}
	return data
}

// TestErrorHandling tests various error conditions using mock readers.
func TestErrorHandling(t *testing.T) {
	invalidData := sectorPadded(make([]byte, 100))
	mockInvalid := &mockReader{data: invalidData}

	_, err := squashfs.ProbeFile(mockInvalid)
	if err == nil {
		t.Errorf("expected error with invalid data, got none")
	}

	truncatedData := []byte{'h', 's', 'q', 's'} // valid magic, little-endian
	for i := 0; i < 92; i++ {
		truncatedData = append(truncatedData, 0)
	}
	truncatedData = sectorPadded(truncatedData)

	mockTruncated := &mockReader{
		data:   truncatedData,
		errAt:  0, // device fails on every read, including the superblock's
		errMsg: io.ErrUnexpectedEOF,
	}

	_, err = squashfs.ProbeFile(mockTruncated)
	if err == nil {
		t.Errorf("expected error when the device read fails, got none")
	}
}

// TestInvalidSuperblock tests handling of invalid superblock data.
func TestInvalidSuperblock(t *testing.T) {
	invalidBlockSizeData := []byte{'h', 's', 'q', 's'}
	for i := 0; i < 92; i++ {
		invalidBlockSizeData = append(invalidBlockSizeData, 0)
	}

	// BlockSize (bytes 12-16) = 4096, but BlockLog (bytes 22-24) = 11, which
	// is not log2(4096) — validate() must reject the mismatch.
	copy(invalidBlockSizeData[12:16], []byte{0x00, 0x10, 0x00, 0x00})
	copy(invalidBlockSizeData[22:24], []byte{0x0B, 0x00})
	invalidBlockSizeData = sectorPadded(invalidBlockSizeData)

	mockInvalidBlockSize := &mockReader{data: invalidBlockSizeData}
	_, err := squashfs.ProbeFile(mockInvalidBlockSize)
	if err == nil {
		t.Errorf("expected error with invalid block size, got none")
	}
}
