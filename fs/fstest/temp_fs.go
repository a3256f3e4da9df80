package fstest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testTempFS(t *testing.T, b core.Backend, root string, config Config) {
	run(t, config, "TempFS", "TempFileInDir", func(t *testing.T) {
		f, err := b.TempFile(root, "upload-")
		if err != nil {
			t.Fatalf("TempFile(%s): got error %v", root, err)
		}
		defer func() { _ = f.Close() }()

		if filepath.Dir(f.Name()) != root {
			t.Errorf("TempFile().Name(): got %q, want a file in %q", f.Name(), root)
		}
		if !strings.HasPrefix(filepath.Base(f.Name()), "upload-") {
			t.Errorf("TempFile().Name(): got %q, want prefix upload-", f.Name())
		}
		if _, err := f.Write([]byte("tmp")); err != nil {
			t.Errorf("Write(): got error %v", err)
		}
	})

	run(t, config, "TempFS", "Unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			f, err := b.TempFile(root, "u-")
			if err != nil {
				t.Fatalf("TempFile(): got error %v", err)
			}
			_ = f.Close()
			if seen[f.Name()] {
				t.Fatalf("TempFile(): name %q returned twice", f.Name())
			}
			seen[f.Name()] = true
		}
	})
}
