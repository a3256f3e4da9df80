package fstest

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testWriteFS(t *testing.T, b core.Backend, root string, config Config) {
	run(t, config, "WriteFS", "CreateTruncates", func(t *testing.T) {
		name := filepath.Join(root, "create.txt")
		mustWrite(t, b, name, []byte("long original content"))

		f, err := b.Create(name)
		if err != nil {
			t.Fatalf("Create(%s): got error %v", name, err)
		}
		if _, err := f.Write([]byte("new")); err != nil {
			t.Fatalf("Write(): got error %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close(): got error %v", err)
		}

		data, _ := b.ReadFile(name)
		if string(data) != "new" {
			t.Errorf("ReadFile(%s): got %q, want %q", name, data, "new")
		}
	})

	run(t, config, "WriteFS", "OpenFileAppend", func(t *testing.T) {
		name := filepath.Join(root, "append.txt")
		mustWrite(t, b, name, []byte("a"))

		f, err := b.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			t.Fatalf("OpenFile(%s, O_APPEND): got error %v", name, err)
		}
		_, _ = f.Write([]byte("b"))
		_ = f.Close()

		data, _ := b.ReadFile(name)
		if string(data) != "ab" {
			t.Errorf("ReadFile(%s): got %q, want %q", name, data, "ab")
		}
	})

	run(t, config, "WriteFS", "OpenFileExclusive", func(t *testing.T) {
		name := filepath.Join(root, "excl.txt")
		mustWrite(t, b, name, nil)

		_, err := b.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !errors.Is(err, fs.ErrExist) {
			t.Errorf("OpenFile(%s, O_EXCL): got error %v, want fs.ErrExist", name, err)
		}
	})

	run(t, config, "WriteFS", "WriteFile", func(t *testing.T) {
		name := filepath.Join(root, "write.txt")
		content := []byte("payload")
		if err := b.WriteFile(name, content, 0o640); err != nil {
			t.Fatalf("WriteFile(%s): got error %v", name, err)
		}
		data, _ := b.ReadFile(name)
		if !bytes.Equal(data, content) {
			t.Errorf("ReadFile(%s): got %q, want %q", name, data, content)
		}
	})

	run(t, config, "WriteFS", "Mkdir", func(t *testing.T) {
		name := filepath.Join(root, "single")
		if err := b.Mkdir(name, 0o755); err != nil {
			t.Fatalf("Mkdir(%s): got error %v", name, err)
		}
		if err := b.Mkdir(name, 0o755); !errors.Is(err, fs.ErrExist) {
			t.Errorf("Mkdir(%s) twice: got error %v, want fs.ErrExist", name, err)
		}
		if err := b.Mkdir(filepath.Join(root, "no", "parent"), 0o755); err == nil {
			t.Errorf("Mkdir(no/parent): got nil, want error")
		}
	})

	run(t, config, "WriteFS", "MkdirAll", func(t *testing.T) {
		name := filepath.Join(root, "a", "b", "c")
		if err := b.MkdirAll(name, 0o755); err != nil {
			t.Fatalf("MkdirAll(%s): got error %v", name, err)
		}
		if err := b.MkdirAll(name, 0o755); err != nil {
			t.Errorf("MkdirAll(%s) twice: got error %v, want nil", name, err)
		}
		info, err := b.Stat(name)
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%s): got %v, %v, want directory", name, info, err)
		}
	})
}
