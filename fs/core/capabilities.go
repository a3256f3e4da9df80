package core

// Stater is implemented by every path handle.
type Stater interface {
	// Name returns the absolute, cleaned path.
	Name() string

	// Kind returns the variant the handle was created as.
	Kind() Kind

	// Stat returns the stat record without following a final symbolic link.
	Stat() (*Info, error)
}

// StreamReader reads through an open stream.
type StreamReader interface {
	Stater

	// Read reads up to len(p) bytes from the open stream.
	Read(p []byte) (int, error)

	// ReadLine returns the next line without its terminator.
	ReadLine() (string, error)

	// ReadBytes reads n bytes at offset from a closed handle.
	ReadBytes(offset int64, n int) ([]byte, error)
}

// StreamWriter writes through an open stream or replaces whole content.
type StreamWriter interface {
	Stater

	// Write writes p to the open stream.
	Write(p []byte) (int, error)

	// PutContents atomically replaces the whole content.
	PutContents(data []byte) error
}

// TreeWalker inspects a directory tree.
type TreeWalker interface {
	Stater

	// TreeFileSize sums the sizes of all regular files under the directory.
	TreeFileSize() (int64, error)

	// TreeFileCount counts all non-directory entries under the directory.
	TreeFileCount() (int, error)
}
