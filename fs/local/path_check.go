package local

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
)

// ExistsOptions tunes Exists and CheckExists.
type ExistsOptions struct {
	// CheckDeadSymlink counts a symbolic link whose target is missing as existing.
	CheckDeadSymlink bool
	// NoAutoMount skips mounting declared but unmounted mount points.
	NoAutoMount bool
	// Force makes CheckExists log a warning instead of failing.
	Force bool
}

// Exists reports whether the path exists. A symbolic link is followed; a
// dangling link exists only with CheckDeadSymlink. Declared mount points
// above the path are mounted first unless NoAutoMount is set.
func (p *Path) Exists(opts ExistsOptions) (bool, error) {
	if err := p.checkRead(); err != nil {
		return false, err
	}
	if !opts.NoAutoMount {
		if err := p.fs.autoMount(p.path); err != nil {
			return false, err
		}
	}
	return p.exists(opts.CheckDeadSymlink)
}

func (p *Path) exists(deadLinks bool) (bool, error) {
	info, err := p.lstat()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, actionError(err, "lstat", p.path)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return true, nil
	}
	if _, err := p.stat(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return deadLinks, nil
		}
		return false, actionError(err, "stat", p.path)
	}
	return true, nil
}

// CheckExists fails with CodeFileNotExist unless the path exists. With
// Force it logs a warning and returns nil instead.
func (p *Path) CheckExists(opts ExistsOptions) error {
	ok, err := p.Exists(opts)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if opts.Force {
		p.log().Warn("path does not exist, continuing because of force")
		return nil
	}
	return errors.WithContext(errors.Newf(errors.CodeFileNotExist, "%s %q does not exist", p.kind, p.path), "path", p.path)
}

// CheckOptions tunes CheckReadable and CheckWritable.
type CheckOptions struct {
	// Kind requires the path to be a file or a directory. KindPath accepts both.
	Kind core.Kind
	// Previous is an earlier failure explained by this check. It is kept in
	// the chain of the returned error.
	Previous error
}

// CheckReadable verifies that the restrictions allow reading and that the
// path exists, has the expected kind and is readable by the process.
// Restriction failures keep CodeRestricted; all others report
// CodeNotReadable wrapping the specific cause.
func (p *Path) CheckReadable(opts CheckOptions) error {
	return p.checkAccess(false, opts)
}

// CheckWritable is CheckReadable for write access. A missing path is
// writable when its parent directory exists and is writable.
func (p *Path) CheckWritable(opts CheckOptions) error {
	return p.checkAccess(true, opts)
}

func (p *Path) checkAccess(write bool, opts CheckOptions) error {
	code, verb, bits := errors.CodeNotReadable, "readable", uint32(unix.R_OK)
	if write {
		code, verb, bits = errors.CodeNotWritable, "writable", unix.W_OK
	}

	fail := func(code errors.ErrorCode, cause error) error {
		if opts.Previous != nil {
			cause = stderrors.Join(cause, opts.Previous)
		}
		return errors.WithContext(errors.Wrapf(cause, code, "%s %q is not %s", p.kind, p.path, verb), "path", p.path)
	}

	if err := p.restrictions.Check(write, p.path); err != nil {
		if opts.Previous == nil {
			return err
		}
		return fail(errors.CodeRestricted, err)
	}

	exists, err := p.exists(false)
	if err != nil {
		return fail(code, err)
	}

	target := p.path
	if !exists {
		if !write {
			return fail(code, errors.Newf(errors.CodeFileNotExist, "%q does not exist", p.path))
		}
		target = filepath.Dir(p.path)
		if info, err := p.fs.backend.Stat(target); err != nil || !info.IsDir() {
			return fail(code, errors.Newf(errors.CodeFileNotExist, "parent directory %q does not exist", target))
		}
	} else if opts.Kind != core.KindPath {
		info, err := p.stat()
		if err != nil {
			return fail(code, err)
		}
		if info.IsDir() != (opts.Kind == core.KindDirectory) {
			return fail(code, errors.Newf(errors.CodeWrongType, "expected a %s", opts.Kind))
		}
	}

	if err := unix.Access(target, bits); err != nil {
		return fail(code, &fs.PathError{Op: "access", Path: target, Err: err})
	}
	return nil
}

// RealPath resolves symbolic links and returns the absolute path. When the
// path does not exist and mustExist is false, the deepest existing ancestor
// is resolved and the rest appended. With mustExist a failed resolution
// reports CodePathNotFound.
func (p *Path) RealPath(mustExist bool) (string, error) {
	if err := p.checkRead(); err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(p.path)
	if err == nil {
		return resolved, nil
	}
	if mustExist {
		return "", errors.WithContext(errors.Wrapf(err, errors.CodePathNotFound, "cannot resolve %q", p.path), "path", p.path)
	}

	return resolveExisting(p.path), nil
}

// resolveExisting resolves the deepest existing ancestor of path and
// appends the remaining elements. A path with no resolvable ancestor is
// returned unchanged.
func resolveExisting(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	rest := filepath.Base(path)
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest)
		}
		if dir == filepath.Dir(dir) {
			return path
		}
		rest = filepath.Join(filepath.Base(dir), rest)
	}
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
