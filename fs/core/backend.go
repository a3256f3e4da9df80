package core

import (
	"io"
	"io/fs"
	"time"
)

// Backend combines every capability the restricted path layer needs.
type Backend interface {
	ReadFS
	WriteFS
	ManageFS
	WalkFS
	MetadataFS
	SymlinkFS
	TempFS
}

// ReadFS defines read-only operations.
type ReadFS interface {
	// Open opens the named file for reading.
	Open(name string) (File, error)

	// Stat returns file metadata, following symbolic links.
	Stat(name string) (fs.FileInfo, error)

	// ReadDir returns the entries of a directory sorted by name.
	ReadDir(name string) ([]fs.DirEntry, error)

	// ReadFile reads the whole named file.
	ReadFile(name string) ([]byte, error)

	// Exists reports whether name exists, following symbolic links.
	// A false result with a non-nil error means existence is undetermined.
	Exists(name string) (bool, error)
}

// WriteFS defines write operations.
type WriteFS interface {
	// Create creates or truncates the named file.
	Create(name string) (File, error)

	// OpenFile opens a file with os.O_* flags and creation mode perm.
	OpenFile(name string, flag int, perm fs.FileMode) (File, error)

	// WriteFile writes data to name, creating or truncating it.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Mkdir creates a single directory. The parent must exist.
	Mkdir(name string, perm fs.FileMode) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string, perm fs.FileMode) error
}

// ManageFS defines removal and renaming.
type ManageFS interface {
	// Remove removes a file, a symbolic link or an empty directory.
	Remove(name string) error

	// RemoveAll removes path and its children. A missing path is not an error.
	RemoveAll(path string) error

	// Rename renames oldpath to newpath, replacing a non-directory newpath.
	Rename(oldpath, newpath string) error
}

// WalkFS defines sequential tree traversal.
type WalkFS interface {
	// Walk visits root and its descendants in lexical order without
	// following symbolic links.
	Walk(root string, walkFn fs.WalkDirFunc) error
}

// MetadataFS defines metadata operations.
type MetadataFS interface {
	// Lstat returns file info without following symbolic links.
	Lstat(name string) (fs.FileInfo, error)

	// Chmod changes the permission bits of name.
	Chmod(name string, mode fs.FileMode) error

	// Lchown changes the owner of name without following symbolic links.
	Lchown(name string, uid, gid int) error

	// Chtimes changes the access and modification times of name.
	Chtimes(name string, atime, mtime time.Time) error
}

// SymlinkFS defines symbolic link operations.
type SymlinkFS interface {
	// Symlink creates newname as a symbolic link to oldname.
	// oldname is stored as given, relative or absolute.
	Symlink(oldname, newname string) error

	// Readlink returns the value of the symbolic link name.
	Readlink(name string) (string, error)
}

// TempFS defines temporary file creation.
type TempFS interface {
	// TempFile creates a new file in dir named after pattern and opens it
	// for reading and writing.
	TempFile(dir, pattern string) (File, error)
}

// File is an open file handle.
type File interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.Seeker
	io.Closer

	// Name returns the absolute name the file was opened with.
	Name() string

	// Stat returns the metadata of the open file.
	Stat() (fs.FileInfo, error)

	// Lock places an exclusive advisory lock on the file.
	Lock() error

	// Unlock releases the advisory lock.
	Unlock() error
}

// Truncater is implemented by files that can change their size.
type Truncater interface {
	Truncate(size int64) error
}

// Syncer is implemented by files that can flush to stable storage.
type Syncer interface {
	Sync() error
}
