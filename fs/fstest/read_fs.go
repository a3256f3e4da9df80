package fstest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testReadFS(t *testing.T, b core.Backend, root string, config Config) {
	content := []byte("test file content")
	dir := filepath.Join(root, "testdir")
	file := filepath.Join(dir, "testfile.txt")
	mustWrite(t, b, file, content)
	mustWrite(t, b, filepath.Join(dir, "another.txt"), []byte("x"))

	run(t, config, "ReadFS", "Open", func(t *testing.T) {
		f, err := b.Open(file)
		if err != nil {
			t.Fatalf("Open(%s): got error %v, want nil", file, err)
		}
		defer func() { _ = f.Close() }()

		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("ReadAll(): got error %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("Read(): got %q, want %q", data, content)
		}
		if f.Name() != file {
			t.Errorf("Name(): got %q, want %q", f.Name(), file)
		}
	})

	run(t, config, "ReadFS", "OpenNotExist", func(t *testing.T) {
		_, err := b.Open(filepath.Join(root, "missing.txt"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Open(missing.txt): got error %v, want fs.ErrNotExist", err)
		}
	})

	run(t, config, "ReadFS", "Stat", func(t *testing.T) {
		info, err := b.Stat(file)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", file, err)
		}
		if info.Size() != int64(len(content)) {
			t.Errorf("Stat().Size(): got %d, want %d", info.Size(), len(content))
		}
		if info.IsDir() {
			t.Errorf("Stat().IsDir(): got true for a file")
		}

		info, err = b.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("Stat(%s).IsDir(): got false, want true", dir)
		}
	})

	run(t, config, "ReadFS", "ReadDirSorted", func(t *testing.T) {
		entries, err := b.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir(%s): got error %v", dir, err)
		}
		if len(entries) != 2 {
			t.Fatalf("ReadDir(%s): got %d entries, want 2", dir, len(entries))
		}
		if entries[0].Name() != "another.txt" || entries[1].Name() != "testfile.txt" {
			t.Errorf("ReadDir(%s): got [%s %s], want sorted names", dir, entries[0].Name(), entries[1].Name())
		}
	})

	run(t, config, "ReadFS", "ReadFile", func(t *testing.T) {
		data, err := b.ReadFile(file)
		if err != nil {
			t.Fatalf("ReadFile(%s): got error %v", file, err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("ReadFile(): got %q, want %q", data, content)
		}
	})

	run(t, config, "ReadFS", "Exists", func(t *testing.T) {
		for _, tc := range []struct {
			name string
			want bool
		}{
			{file, true},
			{dir, true},
			{filepath.Join(root, "nope"), false},
		} {
			got, err := b.Exists(tc.name)
			if err != nil {
				t.Errorf("Exists(%s): got error %v", tc.name, err)
			}
			if got != tc.want {
				t.Errorf("Exists(%s): got %v, want %v", tc.name, got, tc.want)
			}
		}
	})
}
