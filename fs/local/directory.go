package local

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

// Directory is a handle on a directory path.
type Directory struct {
	*Path
	files *Collection
}

var _ core.TreeWalker = (*Directory)(nil)

func newDirectory(p *Path) *Directory {
	p.kind = core.KindDirectory
	return &Directory{Path: p}
}

// EnsureOptions tunes Ensure.
type EnsureOptions struct {
	// Mode of created directories. Zero uses the configured directory mode.
	Mode fs.FileMode
	// Clear deletes and recreates an existing directory.
	Clear bool
	Sudo  bool
}

// Ensure creates the directory and its missing parents. With Clear an
// existing directory is deleted first, which requires write access to
// every path below it.
func (d *Directory) Ensure(opts EnsureOptions) (err error) {
	defer d.fs.observe("ensure", time.Now(), &err)

	mode := opts.Mode
	if mode == 0 {
		mode = d.fs.cfg.DirMode
	}
	if err := d.checkWrite(); err != nil {
		return err
	}
	defer d.Reload()

	info, err := d.fs.backend.Stat(d.path)
	switch {
	case err == nil && !info.IsDir():
		return errors.WithContext(errors.Newf(errors.CodeWrongType, "%q exists and is not a directory", d.path), "path", d.path)
	case err == nil && !opts.Clear:
		return nil
	case err == nil:
		if err := d.checkTreeWritable(); err != nil {
			return err
		}
		if err := d.Delete(DeleteOptions{Sudo: opts.Sudo}); err != nil {
			return err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return actionError(err, "stat", d.path)
	}

	if opts.Sudo {
		err = d.fs.run(true, "mkdir", "-p", "-m", fmt.Sprintf("%04o", uint32(mode.Perm())), "--", d.path)
	} else if err = d.fs.backend.MkdirAll(d.path, mode); err != nil {
		err = actionError(err, "mkdir", d.path)
	}
	d.Invalidate()
	return err
}

// checkTreeWritable verifies every path below the directory is writable
// under the restrictions.
func (d *Directory) checkTreeWritable() error {
	return d.fs.backend.Walk(d.path, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return actionError(err, "walk", path)
		}
		return d.restrictions.Check(true, path)
	})
}

// ClearOptions tunes ClearDirectory.
type ClearOptions struct {
	// Until stops removing empty ancestors at this directory. Empty means
	// continue up to the first non-empty ancestor or the restrictions boundary.
	Until      string
	Sudo       bool
	UseRunFile bool
}

// ClearDirectory deletes the directory and then every ancestor left empty.
func (d *Directory) ClearDirectory(opts ClearOptions) (err error) {
	defer d.fs.observe("clear_directory", time.Now(), &err)

	until := ""
	if opts.Until != "" {
		if !filepath.IsAbs(opts.Until) {
			return errors.Newf(errors.CodeOutOfBounds, "until directory %q is not absolute", opts.Until)
		}
		until = filepath.Clean(opts.Until)
	}
	defer d.Reload()

	delOpts := DeleteOptions{CleanPath: true, Sudo: opts.Sudo, UseRunFile: opts.UseRunFile}
	return d.remove(delOpts, until, func() error {
		if opts.Sudo {
			return d.fs.run(true, "rm", "-rf", "--", d.path)
		}
		if err := d.fs.backend.RemoveAll(d.path); err != nil {
			return actionError(err, "remove", d.path)
		}
		return nil
	})
}

// readDir lists the directory after checking read access.
func (d *Directory) readDir() ([]fs.DirEntry, error) {
	if err := d.checkRead(); err != nil {
		return nil, err
	}
	entries, err := d.fs.backend.ReadDir(d.path)
	if err != nil {
		return nil, actionError(err, "read directory", d.path)
	}
	return entries, nil
}

// ScanOptions tunes Scan.
type ScanOptions struct {
	// Patterns are doublestar globs matched against entry names. Empty
	// matches everything.
	Patterns []string
	// IncludeHidden includes dot entries without an explicit dot pattern.
	IncludeHidden bool
}

// Scan lists the entries of the directory, without recursion, whose names
// match any of the patterns.
func (d *Directory) Scan(opts ScanOptions) (*Collection, error) {
	for _, pattern := range opts.Patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Newf(errors.CodeOutOfBounds, "invalid pattern %q", pattern)
		}
	}
	return d.collect(func(name string) bool {
		if len(opts.Patterns) == 0 {
			return opts.IncludeHidden || !isHidden(name)
		}
		for _, pattern := range opts.Patterns {
			if isHidden(name) && !opts.IncludeHidden && !strings.HasPrefix(pattern, ".") {
				continue
			}
			if ok, _ := doublestar.Match(pattern, name); ok {
				return true
			}
		}
		return false
	})
}

// ScanRegex lists the entries of the directory, without recursion, whose
// names match expr.
func (d *Directory) ScanRegex(expr string) (*Collection, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeOutOfBounds, "invalid regular expression %q", expr)
	}
	return d.collect(re.MatchString)
}

func (d *Directory) collect(match func(name string) bool) (*Collection, error) {
	entries, err := d.readDir()
	if err != nil {
		return nil, err
	}
	c := newCollection(d.fs, d, d.restrictions)
	for _, e := range entries {
		if match(e.Name()) {
			c.add(d.child(e))
		}
	}
	return c, nil
}

func (d *Directory) child(e fs.DirEntry) *Path {
	kind := core.KindFile
	if e.IsDir() {
		kind = core.KindDirectory
	}
	return newPath(d.fs, filepath.Join(d.path, e.Name()), kind, d.restrictions)
}

// Files returns the cached listing, reading it on first use.
func (d *Directory) Files() (*Collection, error) {
	if d.files == nil {
		c, err := d.Scan(ScanOptions{IncludeHidden: true})
		if err != nil {
			return nil, err
		}
		d.files = c
	}
	return d.files, nil
}

// Reload drops the cached listing and stat data.
func (d *Directory) Reload() {
	d.files = nil
	d.Invalidate()
}

// ListTreeOptions tunes ListTree.
type ListTreeOptions struct {
	// Filters are regular expressions matched against entry names. An
	// entry is listed when any filter matches. Empty lists everything.
	Filters []string
	// NoRecurse lists only the top level.
	NoRecurse bool
}

// ListTree returns the sorted paths of all non-directory entries below the
// directory.
func (d *Directory) ListTree(opts ListTreeOptions) ([]string, error) {
	filters := make([]*regexp.Regexp, 0, len(opts.Filters))
	for _, f := range opts.Filters {
		re, err := regexp.Compile(f)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeOutOfBounds, "invalid filter %q", f)
		}
		filters = append(filters, re)
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	err := d.walkTree("list_tree", func(path string, e fs.DirEntry) error {
		if e.IsDir() {
			if opts.NoRecurse {
				return filepath.SkipDir
			}
			return nil
		}
		if len(filters) > 0 && !matchAny(filters, e.Name()) {
			return nil
		}
		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func matchAny(filters []*regexp.Regexp, name string) bool {
	for _, re := range filters {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// TreeFileSize sums the sizes of all regular files below the directory.
func (d *Directory) TreeFileSize() (int64, error) {
	var total atomic.Int64
	err := d.walkTree("tree_file_size", func(_ string, e fs.DirEntry) error {
		if !e.Type().IsRegular() {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total.Add(info.Size())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total.Load(), nil
}

// TreeFileCount counts all non-directory entries below the directory.
func (d *Directory) TreeFileCount() (int, error) {
	var count atomic.Int64
	err := d.walkTree("tree_file_count", func(_ string, e fs.DirEntry) error {
		if !e.IsDir() {
			count.Add(1)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count.Load()), nil
}

// walkTree runs fn for every entry below the directory with fastwalk.
// Symbolic links are not followed and entries that vanish mid-walk are
// skipped. fn may run concurrently.
func (d *Directory) walkTree(op string, fn func(path string, e fs.DirEntry) error) (err error) {
	defer d.fs.observe(op, time.Now(), &err)

	if err := d.checkRead(); err != nil {
		return err
	}
	if info, err := d.stat(); err != nil {
		return actionError(err, op, d.path)
	} else if !info.IsDir() {
		return errors.WithContext(errors.Newf(errors.CodeWrongType, "%q is not a directory", d.path), "path", d.path)
	}

	var visited atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, d.path, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == d.path {
			return nil
		}
		visited.Add(1)
		return fn(path, e)
	})
	d.fs.metrics.WalkEntries(op, int(visited.Load()))
	if err != nil {
		if _, ok := err.(errors.FsError); ok {
			return err
		}
		return actionError(err, op, d.path)
	}
	return nil
}

// GetSingleFile returns the only non-directory entry whose name matches
// expr, or the first in name order when allowMultiple is set. Zero matches,
// or several without allowMultiple, report CodeOutOfBounds.
func (d *Directory) GetSingleFile(expr string, allowMultiple bool) (*File, error) {
	p, err := d.single(expr, allowMultiple, false)
	if err != nil {
		return nil, err
	}
	return newFile(p), nil
}

// GetSingleDirectory is GetSingleFile for subdirectories.
func (d *Directory) GetSingleDirectory(expr string, allowMultiple bool) (*Directory, error) {
	p, err := d.single(expr, allowMultiple, true)
	if err != nil {
		return nil, err
	}
	return newDirectory(p), nil
}

func (d *Directory) single(expr string, allowMultiple, dirs bool) (*Path, error) {
	if expr == "" {
		expr = ".*"
	}
	c, err := d.ScanRegex(expr)
	if err != nil {
		return nil, err
	}
	var matches []*Path
	for _, p := range c.Items() {
		if (p.kind == core.KindDirectory) == dirs {
			matches = append(matches, p)
		}
	}

	kind := "file"
	if dirs {
		kind = "directory"
	}
	switch {
	case len(matches) == 0:
		return nil, errors.WithContext(errors.Newf(errors.CodeOutOfBounds, "no %s matching %q in %q", kind, expr, d.path), "path", d.path)
	case len(matches) > 1 && !allowMultiple:
		return nil, errors.WithContext(errors.Newf(errors.CodeOutOfBounds, "%d entries of type %s match %q in %q", len(matches), kind, expr, d.path), "path", d.path)
	}
	return matches[0], nil
}

// SymlinkTreeOptions tunes SymlinkTreeToTarget.
type SymlinkTreeOptions struct {
	// AlternatePath replaces the source directory in link values, for
	// trees that are served from another location.
	AlternatePath string
	// Restrictions bind the target. Nil uses the directory's restrictions.
	Restrictions *restrict.Restrictions
	// Rename builds the tree in a staging directory and renames it over
	// the target once complete.
	Rename bool
}

// SymlinkTreeToTarget mirrors the tree at target. Directories are created
// as real directories and every other entry becomes a symbolic link to the
// resolved path of the original.
func (d *Directory) SymlinkTreeToTarget(target string, opts SymlinkTreeOptions) (_ *Directory, err error) {
	defer d.fs.observe("symlink_tree", time.Now(), &err)

	r := opts.Restrictions
	if r == nil {
		r = d.restrictions
	}
	target, err = d.fs.absolute(target, filepath.Dir(d.path))
	if err != nil {
		return nil, err
	}
	if err := d.checkRead(); err != nil {
		return nil, err
	}
	if err := r.Check(true, target); err != nil {
		return nil, err
	}
	source, err := d.RealPath(true)
	if err != nil {
		return nil, err
	}
	if within(source, resolveExisting(target)) {
		return nil, errors.WithContextMap(
			errors.Newf(errors.CodeOutOfBounds, "target %q is inside the mirrored tree %q", target, source),
			map[string]interface{}{"path": d.path, "target": target},
		)
	}
	linkBase := source
	if opts.AlternatePath != "" {
		linkBase = filepath.Clean(opts.AlternatePath)
	}

	build := target
	if opts.Rename {
		build = filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+"."+uuid.NewString())
		if err := r.Check(true, build); err != nil {
			return nil, err
		}
	}

	count := 0
	var made []string
	walkErr := d.fs.backend.Walk(source, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		out := filepath.Join(build, rel)
		count++
		if e.IsDir() {
			if _, err := d.fs.backend.Lstat(out); err == nil {
				return nil
			}
			if err := d.fs.backend.MkdirAll(out, d.fs.cfg.DirMode); err != nil {
				return err
			}
			made = append(made, out)
			return nil
		}
		value := filepath.Join(linkBase, rel)
		if opts.AlternatePath == "" {
			if resolved, err := filepath.EvalSymlinks(path); err == nil {
				value = resolved
			}
		}
		if err := d.fs.backend.Symlink(value, out); err != nil {
			return err
		}
		made = append(made, out)
		return nil
	})
	d.fs.metrics.WalkEntries("symlink_tree", count)
	if walkErr != nil {
		if opts.Rename {
			_ = d.fs.backend.RemoveAll(build)
		} else {
			// Entries that were there before the call are kept.
			for i := len(made) - 1; i >= 0; i-- {
				_ = d.fs.backend.Remove(made[i])
			}
		}
		return nil, actionError(walkErr, "symlink tree", d.path)
	}

	if opts.Rename {
		if err := d.fs.backend.RemoveAll(target); err != nil {
			_ = d.fs.backend.RemoveAll(build)
			return nil, actionError(err, "remove", target)
		}
		if err := d.fs.backend.Rename(build, target); err != nil {
			_ = d.fs.backend.RemoveAll(build)
			return nil, actionError(err, "rename", build)
		}
	}

	d.target = target
	d.log().Debug("mirrored tree", zap.String("target", target), zap.Int("entries", count))
	return newDirectory(newPath(d.fs, target, core.KindDirectory, r)), nil
}
