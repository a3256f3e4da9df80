package billy

import (
	"io/fs"

	"github.com/go-git/go-billy/v5"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

// File wraps billy.File to implement core.File.
// billy.File has no Stat, so the filesystem is kept for it.
type File struct {
	file billy.File
	fs   billy.Basic
	name string
}

func (f *File) Read(p []byte) (int, error) { return f.file.Read(p) }

func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.file.ReadAt(p, off) }

func (f *File) Write(p []byte) (int, error) { return f.file.Write(p) }

func (f *File) Seek(offset int64, whence int) (int64, error) { return f.file.Seek(offset, whence) }

func (f *File) Close() error { return f.file.Close() }

// Name returns the absolute name the file was opened with.
func (f *File) Name() string { return f.name }

// Stat returns the metadata of the file.
func (f *File) Stat() (fs.FileInfo, error) { return f.fs.Stat(f.name) }

// Lock places an exclusive advisory lock (flock) on the file.
func (f *File) Lock() error { return f.file.Lock() }

// Unlock releases the lock.
func (f *File) Unlock() error { return f.file.Unlock() }

// Truncate implements core.Truncater.
func (f *File) Truncate(size int64) error { return f.file.Truncate(size) }

// Sync implements core.Syncer. It is a no-op when the underlying file cannot sync.
func (f *File) Sync() error {
	if s, ok := f.file.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

var (
	_ core.File      = (*File)(nil)
	_ core.Truncater = (*File)(nil)
	_ core.Syncer    = (*File)(nil)
)
