package squashfs_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/embedfs/squashfs"
	"github.com/embedfs/squashfs/internal/fixture"
)

func TestCodecString(t *testing.T) {
	cases := []struct {
		c    squashfs.Codec
		want string
	}{
		{squashfs.GZip, "GZip"},
		{squashfs.LZMA, "LZMA"},
		{squashfs.LZO, "LZO"},
		{squashfs.XZ, "XZ"},
		{squashfs.LZ4, "LZ4"},
		{squashfs.ZSTD, "ZSTD"},
	}
	for _, tc := range cases {
		if got := tc.c.String(); got != tc.want {
			t.Errorf("Codec(%d).String() = %q, want %q", tc.c, got, tc.want)
		}
	}

	if got := squashfs.Codec(99).String(); got != "Codec(99)" {
		t.Errorf("unknown codec String() = %q, want %q", got, "Codec(99)")
	}
}

func TestReadRangeExplicitLength(t *testing.T) {
	b := fixture.New()
	content := bytes.Repeat([]byte{0x42}, fixture.BlockSize+37)
	b.AddFile("f.bin", content)
	img := mustProbe(t, b)

	ino, err := img.Resolve("f.bin")
	if err != nil {
		t.Fatalf("resolve: %s", err)
	}

	got, err := img.ReadRange(ino, 10, 20)
	if err != nil {
		t.Fatalf("ReadRange: %s", err)
	}
	if !bytes.Equal(got, content[10:30]) {
		t.Errorf("ReadRange(10,20) mismatch")
	}

	if _, err := img.ReadRange(ino, int64(len(content))-5, 100); err != squashfs.ErrLengthExceedsFile {
		t.Errorf("ReadRange past EOF: got %v, want ErrLengthExceedsFile", err)
	}

	if _, err := img.ReadRange(ino, -1, 10); err != squashfs.ErrLengthExceedsFile {
		t.Errorf("ReadRange negative offset: got %v, want ErrLengthExceedsFile", err)
	}
}

func TestReadAtClampsAndReturnsEOF(t *testing.T) {
	b := fixture.New()
	b.AddFile("f.bin", []byte("hello world"))
	img := mustProbe(t, b)

	ino, err := img.Resolve("f.bin")
	if err != nil {
		t.Fatalf("resolve: %s", err)
	}

	buf := make([]byte, 100)
	n, err := img.ReadAt(ino, buf, 6)
	if err != nil {
		t.Fatalf("ReadAt: %s", err)
	}
	if string(buf[:n]) != "world" {
		t.Errorf("ReadAt clamped read: got %q, want %q", buf[:n], "world")
	}

	n, err = img.ReadAt(ino, buf, int64(len("hello world")))
	if err != io.EOF || n != 0 {
		t.Errorf("ReadAt at EOF: got (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestReadOnDirectoryIsUnsupported(t *testing.T) {
	b := fixture.New()
	b.AddDir("somedir")
	img := mustProbe(t, b)

	ino, err := img.Resolve("somedir")
	if err != nil {
		t.Fatalf("resolve: %s", err)
	}
	if _, err := img.ReadFile(ino); err != squashfs.ErrUnsupportedType {
		t.Errorf("ReadFile on directory: got %v, want ErrUnsupportedType", err)
	}
}

func TestResolveRoot(t *testing.T) {
	b := fixture.New()
	b.AddFile("only.txt", []byte("x"))
	img := mustProbe(t, b)

	root, err := img.Root()
	if err != nil {
		t.Fatalf("Root: %s", err)
	}
	if !root.IsDir() {
		t.Fatalf("Root() did not return a directory")
	}

	viaResolve, err := img.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\"): %s", err)
	}
	if viaResolve.Number != root.Number {
		t.Errorf("Resolve(\"\") inode number %d != Root() inode number %d", viaResolve.Number, root.Number)
	}

	viaDot, err := img.Resolve(".")
	if err != nil {
		t.Fatalf("Resolve(\".\"): %s", err)
	}
	if viaDot.Number != root.Number {
		t.Errorf("Resolve(\".\") inode number %d != Root() inode number %d", viaDot.Number, root.Number)
	}
}

func TestInodeNumberOffset(t *testing.T) {
	b := fixture.New()
	b.AddFile("only.txt", []byte("x"))
	raw := fixture.Build(b)

	img, err := squashfs.ProbeFile(bytes.NewReader(raw), squashfs.WithInodeOffset(1000))
	if err != nil {
		t.Fatalf("probe: %s", err)
	}

	ino, err := img.Resolve("only.txt")
	if err != nil {
		t.Fatalf("resolve: %s", err)
	}
	if img.InodeNumber(ino) != uint64(ino.Number)+1000 {
		t.Errorf("InodeNumber with offset: got %d, want %d", img.InodeNumber(ino), uint64(ino.Number)+1000)
	}
}
