package fstest

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testManageFS(t *testing.T, b core.Backend, root string, config Config) {
	run(t, config, "ManageFS", "Remove", func(t *testing.T) {
		name := filepath.Join(root, "remove.txt")
		mustWrite(t, b, name, []byte("x"))

		if err := b.Remove(name); err != nil {
			t.Fatalf("Remove(%s): got error %v", name, err)
		}
		if ok, _ := b.Exists(name); ok {
			t.Errorf("Exists(%s) after Remove: got true", name)
		}
		if err := b.Remove(name); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Remove(%s) twice: got error %v, want fs.ErrNotExist", name, err)
		}
	})

	run(t, config, "ManageFS", "RemoveNonEmptyDir", func(t *testing.T) {
		dir := filepath.Join(root, "full")
		mustWrite(t, b, filepath.Join(dir, "f"), []byte("x"))
		if err := b.Remove(dir); err == nil {
			t.Errorf("Remove(%s): got nil for non-empty directory", dir)
		}
	})

	run(t, config, "ManageFS", "RemoveAll", func(t *testing.T) {
		dir := filepath.Join(root, "tree")
		mustWrite(t, b, filepath.Join(dir, "a", "b", "c.txt"), []byte("x"))
		mustWrite(t, b, filepath.Join(dir, "d.txt"), []byte("x"))

		if err := b.RemoveAll(dir); err != nil {
			t.Fatalf("RemoveAll(%s): got error %v", dir, err)
		}
		if ok, _ := b.Exists(dir); ok {
			t.Errorf("Exists(%s) after RemoveAll: got true", dir)
		}
		if err := b.RemoveAll(dir); err != nil {
			t.Errorf("RemoveAll(%s) twice: got error %v, want nil", dir, err)
		}
	})

	run(t, config, "ManageFS", "Rename", func(t *testing.T) {
		from := filepath.Join(root, "from.txt")
		to := filepath.Join(root, "to.txt")
		mustWrite(t, b, from, []byte("moved"))

		if err := b.Rename(from, to); err != nil {
			t.Fatalf("Rename(%s, %s): got error %v", from, to, err)
		}
		if ok, _ := b.Exists(from); ok {
			t.Errorf("Exists(%s) after Rename: got true", from)
		}
		data, err := b.ReadFile(to)
		if err != nil || string(data) != "moved" {
			t.Errorf("ReadFile(%s): got %q, %v, want %q", to, data, err, "moved")
		}
	})
}
