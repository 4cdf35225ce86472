package squashfs_test

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"

	"github.com/embedfs/squashfs"
	"github.com/embedfs/squashfs/internal/fixture"
)

// buildTree returns a Builder populated with a small but structurally varied
// tree: a multi-block regular file with a trailing fragment, a file landing
// exactly on a block boundary, an empty file, a symlink, a nested directory,
// and an empty directory.
func buildTree() *fixture.Builder {
	b := fixture.New()

	full := bytes.Repeat([]byte("0123456789abcdef"), fixture.BlockSize/16*2+10) // two full blocks + a tail
	b.AddFile("data/payload.bin", full)

	exact := bytes.Repeat([]byte{0xAA}, fixture.BlockSize)
	b.AddFile("data/exact-block.bin", exact)

	b.AddFile("data/empty.bin", nil)
	b.AddSymlink("data/link-to-payload", "payload.bin")
	b.AddDir("data/nested/deeper")
	b.AddFile("data/nested/deeper/leaf.txt", []byte("leaf content"))
	b.AddDir("data/empty-dir")

	return b
}

func mustProbe(t *testing.T, b *fixture.Builder) *squashfs.Image {
	t.Helper()
	raw := fixture.Build(b)
	img, err := squashfs.ProbeFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("probe: %s", err)
	}
	return img
}

func TestProbeAndReadFile(t *testing.T) {
	img := mustProbe(t, buildTree())

	data, err := img.ReadFileFS("data/payload.bin")
	if err != nil {
		t.Fatalf("read data/payload.bin: %s", err)
	}
	want := bytes.Repeat([]byte("0123456789abcdef"), fixture.BlockSize/16*2+10)
	if !bytes.Equal(data, want) {
		t.Errorf("payload.bin content mismatch: got %d bytes, want %d", len(data), len(want))
	}

	exact, err := img.ReadFileFS("data/exact-block.bin")
	if err != nil {
		t.Fatalf("read data/exact-block.bin: %s", err)
	}
	if len(exact) != fixture.BlockSize {
		t.Errorf("exact-block.bin: got %d bytes, want %d", len(exact), fixture.BlockSize)
	}

	empty, err := img.ReadFileFS("data/empty.bin")
	if err != nil {
		t.Fatalf("read data/empty.bin: %s", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty.bin: got %d bytes, want 0", len(empty))
	}

	leaf, err := img.ReadFileFS("data/nested/deeper/leaf.txt")
	if err != nil {
		t.Fatalf("read nested leaf: %s", err)
	}
	if string(leaf) != "leaf content" {
		t.Errorf("leaf.txt content mismatch: got %q", leaf)
	}
}

func TestReadlink(t *testing.T) {
	img := mustProbe(t, buildTree())

	ino, err := img.Resolve("data/link-to-payload")
	if err != nil {
		t.Fatalf("resolve symlink: %s", err)
	}
	target, err := img.Readlink(ino)
	if err != nil {
		t.Fatalf("readlink: %s", err)
	}
	if target != "payload.bin" {
		t.Errorf("readlink: got %q, want %q", target, "payload.bin")
	}

	payloadIno, err := img.Resolve("data/payload.bin")
	if err != nil {
		t.Fatalf("resolve data/payload.bin: %s", err)
	}
	if _, err := img.Readlink(payloadIno); err != squashfs.ErrUnsupportedType {
		t.Errorf("readlink on regular file: got %v, want ErrUnsupportedType", err)
	}
}

func TestReadDirViaFS(t *testing.T) {
	img := mustProbe(t, buildTree())

	entries, err := fs.ReadDir(img, "data")
	if err != nil {
		t.Fatalf("fs.ReadDir: %s", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	for _, want := range []string{"payload.bin", "exact-block.bin", "empty.bin", "link-to-payload", "nested", "empty-dir"} {
		if !names[want] {
			t.Errorf("missing entry %q in data/, got %v", want, names)
		}
	}
}

func TestEmptyDirectory(t *testing.T) {
	img := mustProbe(t, buildTree())

	ino, err := img.Resolve("data/empty-dir")
	if err != nil {
		t.Fatalf("resolve empty-dir: %s", err)
	}
	if !ino.IsDir() {
		t.Fatalf("empty-dir did not resolve to a directory")
	}

	_, err = img.ReadDir(ino)
	if err != squashfs.ErrEmptyDirectory {
		t.Errorf("ReadDir on empty directory: got %v, want ErrEmptyDirectory", err)
	}

	// Through io/fs (fs.ReadDir, via Open's directory handle), an empty
	// directory reads as zero entries with no error rather than propagating
	// the sentinel.
	entries, err := fs.ReadDir(img, "data/empty-dir")
	if err != nil {
		t.Fatalf("fs.ReadDir on empty directory: %s", err)
	}
	if len(entries) != 0 {
		t.Errorf("fs.ReadDir on empty directory: got %d entries, want 0", len(entries))
	}
}

func TestStatAndGlob(t *testing.T) {
	img := mustProbe(t, buildTree())

	st, err := fs.Stat(img, "data/exact-block.bin")
	if err != nil {
		t.Fatalf("fs.Stat: %s", err)
	}
	if st.IsDir() {
		t.Errorf("exact-block.bin should not be a directory")
	}
	if st.Size() != fixture.BlockSize {
		t.Errorf("fs.Stat size: got %d, want %d", st.Size(), fixture.BlockSize)
	}

	matches, err := fs.Glob(img, "data/*.bin")
	if err != nil {
		t.Fatalf("fs.Glob: %s", err)
	}
	if len(matches) != 3 {
		t.Errorf("fs.Glob data/*.bin: got %v", matches)
	}
}

func TestResolveNotFound(t *testing.T) {
	img := mustProbe(t, buildTree())

	if _, err := img.Resolve("data/does-not-exist"); err != squashfs.ErrNotFound {
		t.Errorf("Resolve missing path: got %v, want ErrNotFound", err)
	}

	if _, err := fs.Stat(img, "data/does-not-exist"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("fs.Stat missing path: got %v, want fs.ErrNotExist", err)
	}
}

func TestResolveThroughPathWithNonDirectory(t *testing.T) {
	img := mustProbe(t, buildTree())

	_, err := img.Resolve("data/payload.bin/subpath")
	if err != squashfs.ErrNotADirectory {
		t.Errorf("Resolve through a file: got %v, want ErrNotADirectory", err)
	}
}
