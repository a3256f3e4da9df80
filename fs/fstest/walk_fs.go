package fstest

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

func testWalkFS(t *testing.T, b core.Backend, root string, config Config) {
	base := filepath.Join(root, "walkroot")
	mustWrite(t, b, filepath.Join(base, "root.txt"), []byte("r"))
	mustWrite(t, b, filepath.Join(base, "sub1", "file1.txt"), []byte("1"))
	mustWrite(t, b, filepath.Join(base, "sub2", "file2.txt"), []byte("2"))

	run(t, config, "WalkFS", "LexicalOrder", func(t *testing.T) {
		var visited []string
		err := b.Walk(base, func(path string, _ fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(base, path)
			visited = append(visited, rel)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk(%s): got error %v", base, err)
		}

		want := []string{".", "root.txt", "sub1", "sub1/file1.txt", "sub2", "sub2/file2.txt"}
		if len(visited) != len(want) {
			t.Fatalf("Walk(%s): visited %v, want %v", base, visited, want)
		}
		for i := range want {
			if visited[i] != want[i] {
				t.Errorf("Walk(%s): path[%d] = %q, want %q", base, i, visited[i], want[i])
			}
		}
	})

	run(t, config, "WalkFS", "SkipDir", func(t *testing.T) {
		var files int
		err := b.Walk(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == "sub1" {
				return fs.SkipDir
			}
			if !d.IsDir() {
				files++
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Walk(%s): got error %v", base, err)
		}
		if files != 2 {
			t.Errorf("Walk(%s) with SkipDir: visited %d files, want 2", base, files)
		}
	})

	run(t, config, "WalkFS", "DoesNotFollowSymlinks", func(t *testing.T) {
		link := filepath.Join(root, "walklink")
		if err := b.Symlink(base, link); err != nil {
			t.Fatalf("Symlink(): setup failed: %v", err)
		}
		var visited int
		err := b.Walk(link, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			visited++
			if d.Type()&fs.ModeSymlink == 0 {
				t.Errorf("Walk(%s): root entry type %v, want symlink", link, d.Type())
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Walk(%s): got error %v", link, err)
		}
		if visited != 1 {
			t.Errorf("Walk(%s): visited %d entries, want 1", link, visited)
		}
	})

	run(t, config, "WalkFS", "MissingRoot", func(t *testing.T) {
		missing := filepath.Join(root, "missing")
		var gotErr error
		_ = b.Walk(missing, func(_ string, _ fs.DirEntry, err error) error {
			gotErr = err
			return nil
		})
		if gotErr == nil {
			t.Errorf("Walk(%s): walkFn received nil error for missing root", missing)
		}
	})
}
