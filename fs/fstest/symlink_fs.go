package fstest

import (
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testSymlinkFS(t *testing.T, b core.Backend, root string, config Config) {
	target := filepath.Join(root, "target.txt")
	mustWrite(t, b, target, []byte("target content"))

	run(t, config, "SymlinkFS", "Absolute", func(t *testing.T) {
		link := filepath.Join(root, "abs.link")
		if err := b.Symlink(target, link); err != nil {
			t.Fatalf("Symlink(%s, %s): got error %v", target, link, err)
		}
		got, err := b.Readlink(link)
		if err != nil {
			t.Fatalf("Readlink(%s): got error %v", link, err)
		}
		if got != target {
			t.Errorf("Readlink(%s): got %q, want %q", link, got, target)
		}
		data, err := b.ReadFile(link)
		if err != nil || string(data) != "target content" {
			t.Errorf("ReadFile(%s): got %q, %v", link, data, err)
		}
	})

	run(t, config, "SymlinkFS", "Relative", func(t *testing.T) {
		link := filepath.Join(root, "rel.link")
		if err := b.Symlink("target.txt", link); err != nil {
			t.Fatalf("Symlink(target.txt, %s): got error %v", link, err)
		}
		got, err := b.Readlink(link)
		if err != nil {
			t.Fatalf("Readlink(%s): got error %v", link, err)
		}
		if got != "target.txt" {
			t.Errorf("Readlink(%s): got %q, want %q", link, got, "target.txt")
		}
	})

	run(t, config, "SymlinkFS", "Dangling", func(t *testing.T) {
		link := filepath.Join(root, "dangling.link")
		if err := b.Symlink(filepath.Join(root, "nowhere"), link); err != nil {
			t.Fatalf("Symlink(): got error %v", err)
		}
		if ok, _ := b.Exists(link); ok {
			t.Errorf("Exists(%s): got true for dangling link", link)
		}
		if _, err := b.Lstat(link); err != nil {
			t.Errorf("Lstat(%s): got error %v for dangling link", link, err)
		}
	})
}
