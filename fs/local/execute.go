package local

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

// ExecuteOptions configures a tree walk.
type ExecuteOptions struct {
	// Recurse descends into subdirectories.
	Recurse bool
	// FollowSymlinks visits symbolic links. Links are never descended into.
	FollowSymlinks bool
	// FollowHidden visits dot entries.
	FollowHidden bool
	// SkipPaths excludes entries at or below these paths. Relative entries
	// are resolved against the walked directory.
	SkipPaths []string
	// AllowExtensions visits only files with one of these extensions.
	AllowExtensions []string
	// DenyExtensions never visits files with one of these extensions.
	DenyExtensions []string
	// IgnoreErrors logs callback failures and continues.
	IgnoreErrors bool
	// Mode is applied to every visited file before the callback. Zero
	// leaves modes alone.
	Mode fs.FileMode
	// Restrictions bind the visited handles. Nil uses the directory's.
	Restrictions *restrict.Restrictions
}

// Execute is a configured, single-use tree walk.
type Execute struct {
	dir   *Directory
	opts  ExecuteOptions
	skip  []string
	allow map[string]bool
	deny  map[string]bool
	done  bool
}

// Execute prepares a walk over the directory.
func (d *Directory) Execute(opts ExecuteOptions) *Execute {
	if opts.Restrictions == nil {
		opts.Restrictions = d.restrictions
	}
	e := &Execute{
		dir:   d,
		opts:  opts,
		allow: extensionSet(opts.AllowExtensions),
		deny:  extensionSet(opts.DenyExtensions),
	}
	for _, s := range opts.SkipPaths {
		if !filepath.IsAbs(s) {
			s = filepath.Join(d.path, s)
		}
		e.skip = append(e.skip, filepath.Clean(s))
	}
	return e
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return set
}

// Find walks the directory and returns the paths of the visited files.
func (d *Directory) Find(opts ExecuteOptions) ([]string, error) {
	var found []string
	err := d.Execute(opts).OnPathOnly(func(path string) error {
		found = append(found, path)
		return nil
	})
	return found, err
}

// OnFiles runs fn for every file that passes the filters and returns how
// many times fn was called.
func (e *Execute) OnFiles(fn func(*File) error) (int, error) {
	return e.run(func(path string) error {
		return fn(newFile(newPath(e.dir.fs, path, core.KindFile, e.opts.Restrictions)))
	})
}

// OnPathOnly runs fn with the path of every file that passes the filters.
func (e *Execute) OnPathOnly(fn func(path string) error) error {
	_, err := e.run(fn)
	return err
}

func (e *Execute) run(fn func(path string) error) (count int, err error) {
	defer e.dir.fs.observe("execute", time.Now(), &err)

	if e.done {
		return 0, errors.New(errors.CodeActionFailed, "execute has already run")
	}
	e.done = true

	if err := e.dir.checkRead(); err != nil {
		return 0, err
	}
	err = e.walk(e.dir.path, func(path string) error {
		if e.opts.Mode != 0 {
			if err := e.applyMode(path); err != nil {
				return err
			}
		}
		count++
		return fn(path)
	})
	e.dir.fs.metrics.WalkEntries("execute", count)
	return count, err
}

// applyMode changes the mode of path, or of its target when path is a
// followed link. Both must be writable.
func (e *Execute) applyMode(path string) error {
	info, err := e.dir.fs.backend.Lstat(path)
	if err != nil {
		return actionError(err, "chmod", path)
	}
	target, err := e.dir.fs.followLink(path, info)
	if err != nil {
		return err
	}
	if err := e.opts.Restrictions.Check(true, path, target); err != nil {
		return err
	}
	if err := e.dir.fs.backend.Chmod(target, e.opts.Mode); err != nil {
		return actionError(err, "chmod", target)
	}
	return nil
}

// walk visits dir in lexical order. Directories that vanish before they
// are read are skipped.
func (e *Execute) walk(dir string, visit func(path string) error) error {
	entries, err := e.dir.fs.backend.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && dir != e.dir.path {
			return nil
		}
		return actionError(err, "read directory", dir)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !e.passes(path, entry) {
			continue
		}

		if entry.IsDir() {
			if !e.opts.Recurse {
				continue
			}
			if err := e.walk(path, visit); err != nil {
				return err
			}
			continue
		}

		if err := e.opts.Restrictions.Check(false, path); err != nil {
			return err
		}
		if err := visit(path); err != nil {
			if !e.opts.IgnoreErrors {
				return err
			}
			e.dir.fs.logger.Warn("ignoring failure", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// passes applies the hidden and symlink policy, the skip paths and, for
// files, the extension lists in that order.
func (e *Execute) passes(path string, entry fs.DirEntry) bool {
	if !e.opts.FollowHidden && isHidden(entry.Name()) {
		return false
	}
	if !e.opts.FollowSymlinks && entry.Type()&fs.ModeSymlink != 0 {
		return false
	}
	for _, s := range e.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return false
		}
	}
	if entry.IsDir() {
		return true
	}

	ext := extensionOf(entry.Name())
	if len(e.allow) > 0 && !e.allow[ext] {
		return false
	}
	return !e.deny[ext]
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
