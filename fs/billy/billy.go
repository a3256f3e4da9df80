package billy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

// LocalFS is the osfs-backed core.Backend.
type LocalFS struct {
	bfs billy.Filesystem
}

// NewLocal creates a backend over the host filesystem rooted at "/".
func NewLocal() *LocalFS {
	return &LocalFS{bfs: osfs.New("/")}
}

// Unwrap returns the underlying billy.Filesystem.
func (lfs *LocalFS) Unwrap() billy.Filesystem {
	return lfs.bfs
}

// normalize cleans name and forces it absolute.
func normalize(name string) string {
	name = filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsAbs(name) {
		name = string(filepath.Separator) + name
	}
	return name
}

// dirEntry adapts fs.FileInfo to fs.DirEntry.
type dirEntry struct {
	info fs.FileInfo
}

func (d *dirEntry) Name() string               { return d.info.Name() }
func (d *dirEntry) IsDir() bool                { return d.info.IsDir() }
func (d *dirEntry) Type() fs.FileMode          { return d.info.Mode().Type() }
func (d *dirEntry) Info() (fs.FileInfo, error) { return d.info, nil }
func (d *dirEntry) String() string             { return fs.FormatDirEntry(d) }

func (lfs *LocalFS) wrap(f billy.File, name string) *File {
	return &File{file: f, fs: lfs.bfs, name: name}
}

// Open opens the named file for reading.
func (lfs *LocalFS) Open(name string) (core.File, error) {
	name = normalize(name)
	f, err := lfs.bfs.Open(name)
	if err != nil {
		return nil, err
	}
	return lfs.wrap(f, name), nil
}

// Stat returns file metadata, following symbolic links.
func (lfs *LocalFS) Stat(name string) (fs.FileInfo, error) {
	return lfs.bfs.Stat(normalize(name))
}

// ReadDir returns the entries of a directory sorted by name.
func (lfs *LocalFS) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := lfs.bfs.ReadDir(normalize(name))
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = &dirEntry{info: info}
	}
	return entries, nil
}

// ReadFile reads the whole named file.
func (lfs *LocalFS) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(lfs.bfs, normalize(name))
}

// Exists reports whether name exists, following symbolic links.
func (lfs *LocalFS) Exists(name string) (bool, error) {
	_, err := lfs.bfs.Stat(normalize(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Create creates or truncates the named file.
func (lfs *LocalFS) Create(name string) (core.File, error) {
	name = normalize(name)
	f, err := lfs.bfs.Create(name)
	if err != nil {
		return nil, err
	}
	return lfs.wrap(f, name), nil
}

// OpenFile opens a file with os.O_* flags.
func (lfs *LocalFS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	name = normalize(name)
	f, err := lfs.bfs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return lfs.wrap(f, name), nil
}

// WriteFile writes data to name, creating or truncating it.
func (lfs *LocalFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return util.WriteFile(lfs.bfs, normalize(name), data, perm)
}

// Mkdir creates a single directory. Unlike billy's MkdirAll it fails when
// the directory exists or the parent is missing.
func (lfs *LocalFS) Mkdir(name string, perm fs.FileMode) error {
	name = normalize(name)
	if _, err := lfs.bfs.Lstat(name); err == nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	parent := filepath.Dir(name)
	info, err := lfs.bfs.Stat(parent)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "mkdir", Path: name, Err: errors.New("parent is not a directory")}
	}
	return lfs.bfs.MkdirAll(name, perm)
}

// MkdirAll creates a directory and any missing parents.
func (lfs *LocalFS) MkdirAll(path string, perm fs.FileMode) error {
	return lfs.bfs.MkdirAll(normalize(path), perm)
}

// Remove removes a file, a symbolic link or an empty directory.
func (lfs *LocalFS) Remove(name string) error {
	return lfs.bfs.Remove(normalize(name))
}

// RemoveAll removes path and its children. Symbolic links are removed, not followed.
func (lfs *LocalFS) RemoveAll(path string) error {
	path = normalize(path)
	if _, err := lfs.bfs.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return util.RemoveAll(lfs.bfs, path)
}

// Rename renames oldpath to newpath.
func (lfs *LocalFS) Rename(oldpath, newpath string) error {
	return lfs.bfs.Rename(normalize(oldpath), normalize(newpath))
}

// Walk visits root and its descendants in lexical order without following
// symbolic links.
func (lfs *LocalFS) Walk(root string, walkFn fs.WalkDirFunc) error {
	root = normalize(root)
	info, err := lfs.bfs.Lstat(root)
	if err != nil {
		err = walkFn(root, nil, err)
	} else {
		err = lfs.walk(root, &dirEntry{info: info}, walkFn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (lfs *LocalFS) walk(path string, d fs.DirEntry, walkFn fs.WalkDirFunc) error {
	if err := walkFn(path, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	infos, err := lfs.bfs.ReadDir(path)
	if err != nil {
		if err = walkFn(path, d, err); err != nil {
			return err
		}
	}

	for _, info := range infos {
		child := filepath.Join(path, info.Name())
		if err := lfs.walk(child, &dirEntry{info: info}, walkFn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// Lstat returns file info without following symbolic links.
func (lfs *LocalFS) Lstat(name string) (fs.FileInfo, error) {
	return lfs.bfs.Lstat(normalize(name))
}

// Chmod changes the permission bits of name.
func (lfs *LocalFS) Chmod(name string, mode fs.FileMode) error {
	if c, ok := lfs.bfs.(billy.Change); ok {
		return c.Chmod(normalize(name), mode)
	}
	return os.Chmod(normalize(name), mode)
}

// Lchown changes the owner of name without following symbolic links.
func (lfs *LocalFS) Lchown(name string, uid, gid int) error {
	if c, ok := lfs.bfs.(billy.Change); ok {
		return c.Lchown(normalize(name), uid, gid)
	}
	return os.Lchown(normalize(name), uid, gid)
}

// Chtimes changes the access and modification times of name.
func (lfs *LocalFS) Chtimes(name string, atime, mtime time.Time) error {
	if c, ok := lfs.bfs.(billy.Change); ok {
		return c.Chtimes(normalize(name), atime, mtime)
	}
	return os.Chtimes(normalize(name), atime, mtime)
}

// Symlink creates newname as a symbolic link to oldname.
func (lfs *LocalFS) Symlink(oldname, newname string) error {
	return lfs.bfs.Symlink(oldname, normalize(newname))
}

// Readlink returns the value of the symbolic link name.
func (lfs *LocalFS) Readlink(name string) (string, error) {
	return lfs.bfs.Readlink(normalize(name))
}

// TempFile creates a new file in dir named after pattern.
func (lfs *LocalFS) TempFile(dir, pattern string) (core.File, error) {
	dir = normalize(dir)
	f, err := lfs.bfs.TempFile(dir, pattern)
	if err != nil {
		return nil, err
	}
	return lfs.wrap(f, filepath.Join(dir, filepath.Base(f.Name()))), nil
}

var _ core.Backend = (*LocalFS)(nil)
