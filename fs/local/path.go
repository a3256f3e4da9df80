package local

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
	"github.com/Capmega/phoundation-sub014/log"
)

// Path is a restriction-checked handle on one filesystem path.
type Path struct {
	fs           *FS
	path         string
	kind         core.Kind
	restrictions *restrict.Restrictions
	target       string

	// stats caches lstat and stat results for the configured window.
	stats *cache.Cache

	stream core.File
	mode   string
	reader *bufio.Reader
	locked bool
}

var _ core.Stater = (*Path)(nil)

func newPath(f *FS, path string, kind core.Kind, r *restrict.Restrictions) *Path {
	p := &Path{fs: f, path: path, kind: kind, restrictions: r}
	if f.cfg.StatCacheWindow > 0 {
		p.stats = cache.New(f.cfg.StatCacheWindow, 0)
	}
	return p
}

// IsSet reports whether the handle carries a path.
func (p *Path) IsSet() bool { return p != nil && p.path != "" }

// Name returns the absolute, cleaned path, like os.File.Name.
func (p *Path) Name() string { return p.path }

func (p *Path) String() string { return p.path }

// Base returns the last element of the path.
func (p *Path) Base() string { return filepath.Base(p.path) }

// Kind returns the variant the handle was created as.
func (p *Path) Kind() core.Kind { return p.kind }

// Target returns the destination produced by the last copy, move or
// target operation, or "".
func (p *Path) Target() string { return p.target }

// Restrictions returns the restrictions bound to the handle.
func (p *Path) Restrictions() *restrict.Restrictions { return p.restrictions }

// Parent returns a handle on the containing directory with the same restrictions.
func (p *Path) Parent() *Directory {
	return newDirectory(newPath(p.fs, filepath.Dir(p.path), core.KindDirectory, p.restrictions))
}

func (p *Path) log() *log.Logger {
	return p.fs.logger.With(log.Path(p.path), log.Label(p.restrictions.Label()))
}

func (p *Path) checkRead(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{p.path}
	}
	return p.restrictions.Check(false, paths...)
}

func (p *Path) checkWrite(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{p.path}
	}
	return p.restrictions.Check(true, paths...)
}

// Rename renames the path in place. A relative target is resolved against
// the containing directory. Both ends must be writable.
func (p *Path) Rename(target string) (err error) {
	defer p.fs.observe("rename", time.Now(), &err)

	target, err = p.fs.absolute(target, filepath.Dir(p.path))
	if err != nil {
		return err
	}
	if err := p.checkWrite(p.path, target); err != nil {
		return err
	}
	if p.stream != nil {
		return errors.WithContext(errors.New(errors.CodeFileAlreadyOpen, "cannot rename an open file"), "path", p.path)
	}

	if err := p.fs.backend.Rename(p.path, target); err != nil {
		return actionError(err, "rename", p.path)
	}

	p.log().Debug("renamed", zap.String("target", target))
	p.path = target
	p.target = target
	p.Invalidate()
	return nil
}

// Move moves the path to target, bound afterwards to r, or to the current
// restrictions when r is nil. An existing directory target receives the
// path under its current name. Missing parents of the destination are created.
func (p *Path) Move(target string, r *restrict.Restrictions) (err error) {
	defer p.fs.observe("move", time.Now(), &err)

	if r == nil {
		r = p.restrictions
	}
	target, err = p.fs.absolute(target, filepath.Dir(p.path))
	if err != nil {
		return err
	}
	if err := p.checkWrite(); err != nil {
		return err
	}
	if p.stream != nil {
		return errors.WithContext(errors.New(errors.CodeFileAlreadyOpen, "cannot move an open file"), "path", p.path)
	}
	if _, err := p.fs.backend.Lstat(p.path); err != nil {
		return actionError(err, "move", p.path)
	}

	target = p.fs.intoDirectory(target, p.Base())
	if err := r.Check(true, target); err != nil {
		return err
	}
	if err := p.fs.ensureParent(target, r); err != nil {
		return err
	}

	if err := p.fs.move(p.path, target); err != nil {
		return err
	}

	p.log().Debug("moved", zap.String("target", target))
	p.path = target
	p.target = target
	p.restrictions = r
	p.Invalidate()
	return nil
}

// Copy copies the file or tree to target and returns a handle on the copy
// bound to r, or to the current restrictions when r is nil.
func (p *Path) Copy(target string, r *restrict.Restrictions) (_ *Path, err error) {
	defer p.fs.observe("copy", time.Now(), &err)

	if r == nil {
		r = p.restrictions
	}
	target, err = p.fs.absolute(target, filepath.Dir(p.path))
	if err != nil {
		return nil, err
	}
	if err := p.checkRead(); err != nil {
		return nil, err
	}
	if _, err := p.fs.backend.Lstat(p.path); err != nil {
		return nil, actionError(err, "copy", p.path)
	}

	target = p.fs.intoDirectory(target, p.Base())
	if err := r.Check(true, target); err != nil {
		return nil, err
	}
	if err := p.fs.ensureParent(target, r); err != nil {
		return nil, err
	}
	if err := p.fs.copyTree(p.path, target); err != nil {
		return nil, err
	}

	p.target = target
	return newPath(p.fs, target, p.kind, r), nil
}

// intoDirectory appends base to target when target is an existing directory.
func (f *FS) intoDirectory(target, base string) string {
	if info, err := f.backend.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, base)
	}
	return target
}

// ensureParent creates the missing parents of path after checking r allows
// writing there.
func (f *FS) ensureParent(path string, r *restrict.Restrictions) error {
	dir := filepath.Dir(path)
	if _, err := f.backend.Stat(dir); err == nil {
		return nil
	}
	if err := r.Check(true, dir); err != nil {
		return err
	}
	if err := f.backend.MkdirAll(dir, f.cfg.DirMode); err != nil {
		return actionError(err, "mkdir", dir)
	}
	return nil
}

// move renames src to dst, copying and removing when they live on
// different devices.
func (f *FS) move(src, dst string) error {
	err := f.backend.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return actionError(err, "rename", src)
	}

	f.logger.Debug("cross-device move, copying", log.Path(src), zap.String("target", dst))
	if err := f.copyTree(src, dst); err != nil {
		return err
	}
	if err := f.backend.RemoveAll(src); err != nil {
		return actionError(err, "remove", src)
	}
	return nil
}

// copyTree copies src to dst. Directories are recreated, symbolic links are
// copied as links and other special files are skipped.
func (f *FS) copyTree(src, dst string) error {
	err := f.backend.Walk(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return f.backend.MkdirAll(out, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := f.backend.Readlink(path)
			if err != nil {
				return err
			}
			return f.backend.Symlink(link, out)
		case info.Mode().IsRegular():
			return f.copyFile(path, out, info.Mode().Perm())
		default:
			return nil
		}
	})
	if err != nil {
		return actionError(err, "copy", src)
	}
	return nil
}

func (f *FS) copyFile(src, dst string, perm fs.FileMode) error {
	in, err := f.backend.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := f.backend.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return f.backend.Chmod(dst, perm)
}

// actionError maps a backend failure to a coded error. Missing paths
// report CodeFileNotExist, everything else CodeActionFailed.
func actionError(err error, op, path string) error {
	code := errors.CodeActionFailed
	if errors.Is(err, fs.ErrNotExist) {
		code = errors.CodeFileNotExist
	}
	return errors.WithContextMap(
		errors.Wrapf(err, code, "%s %q failed", op, path),
		map[string]interface{}{"path": path, "op": op},
	)
}

func (f *FS) observe(op string, start time.Time, err *error) {
	f.metrics.Operation(op, start, *err)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
