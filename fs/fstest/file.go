package fstest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testFile(t *testing.T, b core.Backend, root string, config Config) {
	name := filepath.Join(root, "file.txt")
	mustWrite(t, b, name, []byte("0123456789"))

	run(t, config, "File", "SeekAndReadAt", func(t *testing.T) {
		f, err := b.Open(name)
		if err != nil {
			t.Fatalf("Open(%s): got error %v", name, err)
		}
		defer func() { _ = f.Close() }()

		pos, err := f.Seek(4, io.SeekStart)
		if err != nil || pos != 4 {
			t.Fatalf("Seek(4): got %d, %v", pos, err)
		}
		buf := make([]byte, 3)
		if _, err := io.ReadFull(f, buf); err != nil || string(buf) != "456" {
			t.Errorf("Read after Seek: got %q, %v, want %q", buf, err, "456")
		}

		if _, err := f.ReadAt(buf, 1); err != nil || string(buf) != "123" {
			t.Errorf("ReadAt(1): got %q, %v, want %q", buf, err, "123")
		}
	})

	run(t, config, "File", "Stat", func(t *testing.T) {
		f, err := b.Open(name)
		if err != nil {
			t.Fatalf("Open(%s): got error %v", name, err)
		}
		defer func() { _ = f.Close() }()
		info, err := f.Stat()
		if err != nil || info.Size() != 10 {
			t.Errorf("File.Stat(): got %v, %v, want size 10", info, err)
		}
	})

	run(t, config, "File", "Truncate", func(t *testing.T) {
		f, err := b.OpenFile(name, os.O_RDWR, 0)
		if err != nil {
			t.Fatalf("OpenFile(%s): got error %v", name, err)
		}
		defer func() { _ = f.Close() }()

		tr, ok := f.(core.Truncater)
		if !ok {
			t.Skip("Truncater not supported")
		}
		if err := tr.Truncate(5); err != nil {
			t.Fatalf("Truncate(5): got error %v", err)
		}
		info, _ := b.Stat(name)
		if info.Size() != 5 {
			t.Errorf("Stat().Size() after Truncate(5): got %d", info.Size())
		}
	})

	run(t, config, "File", "LockUnlock", func(t *testing.T) {
		f, err := b.OpenFile(name, os.O_RDWR, 0)
		if err != nil {
			t.Fatalf("OpenFile(%s): got error %v", name, err)
		}
		defer func() { _ = f.Close() }()

		if err := f.Lock(); err != nil {
			t.Fatalf("Lock(): got error %v", err)
		}
		if err := f.Unlock(); err != nil {
			t.Errorf("Unlock(): got error %v", err)
		}
	})

	run(t, config, "File", "Sync", func(t *testing.T) {
		f, err := b.OpenFile(name, os.O_RDWR, 0)
		if err != nil {
			t.Fatalf("OpenFile(%s): got error %v", name, err)
		}
		defer func() { _ = f.Close() }()

		if s, ok := f.(core.Syncer); ok {
			if err := s.Sync(); err != nil {
				t.Errorf("Sync(): got error %v", err)
			}
		}
	})
}
