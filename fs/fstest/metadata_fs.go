package fstest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testMetadataFS(t *testing.T, b core.Backend, root string, config Config) {
	name := filepath.Join(root, "meta.txt")
	mustWrite(t, b, name, []byte("meta"))

	run(t, config, "MetadataFS", "Chmod", func(t *testing.T) {
		if err := b.Chmod(name, 0o600); err != nil {
			t.Fatalf("Chmod(%s, 0600): got error %v", name, err)
		}
		info, err := b.Stat(name)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", name, err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("Stat(%s).Mode(): got %o, want 0600", name, info.Mode().Perm())
		}
	})

	run(t, config, "MetadataFS", "Chtimes", func(t *testing.T) {
		mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := b.Chtimes(name, mtime, mtime); err != nil {
			t.Fatalf("Chtimes(%s): got error %v", name, err)
		}
		info, _ := b.Stat(name)
		if !info.ModTime().Equal(mtime) {
			t.Errorf("Stat(%s).ModTime(): got %v, want %v", name, info.ModTime(), mtime)
		}
	})

	run(t, config, "MetadataFS", "LchownSelf", func(t *testing.T) {
		if err := b.Lchown(name, os.Getuid(), os.Getgid()); err != nil {
			t.Errorf("Lchown(%s) to current user: got error %v", name, err)
		}
	})

	run(t, config, "MetadataFS", "LstatSymlink", func(t *testing.T) {
		link := filepath.Join(root, "meta.link")
		if err := b.Symlink(name, link); err != nil {
			t.Fatalf("Symlink(): setup failed: %v", err)
		}
		info, err := b.Lstat(link)
		if err != nil {
			t.Fatalf("Lstat(%s): got error %v", link, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			t.Errorf("Lstat(%s).Mode(): got %v, want symlink", link, info.Mode())
		}
	})
}
