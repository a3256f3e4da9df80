package local

import (
	"path/filepath"

	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

// Collection is an ordered list of path handles sharing restrictions.
// The "." and ".." pseudo entries are never stored.
type Collection struct {
	fs           *FS
	parent       *Directory
	restrictions *restrict.Restrictions
	items        []*Path
}

func newCollection(f *FS, parent *Directory, r *restrict.Restrictions) *Collection {
	return &Collection{fs: f, parent: parent, restrictions: r}
}

// Collection creates an empty collection bound to r, or to System when r
// is nil.
func (f *FS) Collection(r *restrict.Restrictions) *Collection {
	if r == nil {
		r = f.system
	}
	return newCollection(f, nil, r)
}

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.items) }

// Items returns a copy of the entries.
func (c *Collection) Items() []*Path {
	return append([]*Path(nil), c.items...)
}

// Paths returns the absolute paths of the entries.
func (c *Collection) Paths() []string {
	out := make([]string, len(c.items))
	for i, p := range c.items {
		out[i] = p.path
	}
	return out
}

// Bases returns the base names of the entries.
func (c *Collection) Bases() []string {
	out := make([]string, len(c.items))
	for i, p := range c.items {
		out[i] = p.Base()
	}
	return out
}

// Add appends a handle on path, bound to the collection's restrictions.
// Relative paths are resolved against the parent directory.
func (c *Collection) Add(path string, kind core.Kind) error {
	if base := filepath.Base(path); base == "." || base == ".." {
		return nil
	}
	prefix := ""
	if c.parent != nil {
		prefix = c.parent.path
	}
	abs, err := c.fs.absolute(path, prefix)
	if err != nil {
		return err
	}
	c.add(newPath(c.fs, abs, kind, c.restrictions))
	return nil
}

func (c *Collection) add(p *Path) {
	if base := p.Base(); base == "." || base == ".." {
		return
	}
	c.items = append(c.items, p)
}

// Each calls fn for every entry in order and stops at the first error.
func (c *Collection) Each(fn func(*Path) error) error {
	for _, p := range c.items {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Files returns the non-directory entries as file handles.
func (c *Collection) Files() []*File {
	var out []*File
	for _, p := range c.items {
		if p.kind != core.KindDirectory {
			out = append(out, newFile(p))
		}
	}
	return out
}

// Directories returns the directory entries as directory handles.
func (c *Collection) Directories() []*Directory {
	var out []*Directory
	for _, p := range c.items {
		if p.kind == core.KindDirectory {
			out = append(out, newDirectory(p))
		}
	}
	return out
}

// Parent returns the directory the collection was read from, or nil.
func (c *Collection) Parent() *Directory { return c.parent }

// Restrictions returns the shared restrictions.
func (c *Collection) Restrictions() *restrict.Restrictions { return c.restrictions }
