package local

import (
	"crypto/rand"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

// DeleteOptions tunes Delete and SecureDelete.
type DeleteOptions struct {
	// CleanPath removes ancestors left empty, stopping at the first
	// non-empty one or at the restrictions boundary.
	CleanPath bool
	// Sudo runs the removal tool through the configured sudo prefix.
	Sudo bool
	// UseRunFile guards the operation with a run-file marker.
	UseRunFile bool
}

// Delete removes the path and everything below it. A missing path is not
// an error.
func (p *Path) Delete(opts DeleteOptions) (err error) {
	defer p.fs.observe("delete", time.Now(), &err)
	return p.remove(opts, "", func() error {
		if opts.Sudo {
			return p.fs.run(true, "rm", "-rf", "--", p.path)
		}
		if err := p.fs.backend.RemoveAll(p.path); err != nil {
			return actionError(err, "remove", p.path)
		}
		return nil
	})
}

// SecureDelete overwrites every regular file with random data for the
// configured number of passes and a final zero pass, then removes the path.
// Overwriting gives no guarantee on copy-on-write or flash storage.
func (p *Path) SecureDelete(opts DeleteOptions) (err error) {
	defer p.fs.observe("secure_delete", time.Now(), &err)
	return p.remove(opts, "", func() error {
		var files []string
		walkErr := p.fs.backend.Walk(p.path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			return actionError(walkErr, "walk", p.path)
		}

		passes := strconv.Itoa(p.fs.cfg.SecureDeletePasses)
		for _, file := range files {
			var err error
			if opts.Sudo {
				err = p.fs.run(true, "shred", "-z", "-n", passes, "--", file)
			} else {
				err = p.fs.overwrite(file)
			}
			if err != nil {
				return err
			}
		}

		if opts.Sudo {
			return p.fs.run(true, "rm", "-rf", "--", p.path)
		}
		if err := p.fs.backend.RemoveAll(p.path); err != nil {
			return actionError(err, "remove", p.path)
		}
		return nil
	})
}

// remove runs del under the common delete contract.
func (p *Path) remove(opts DeleteOptions, until string, del func() error) error {
	if err := p.checkWrite(); err != nil {
		return err
	}
	if _, err := p.fs.backend.Lstat(p.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.log().Debug("already absent")
			return nil
		}
		return actionError(err, "lstat", p.path)
	}
	if err := p.Close(true); err != nil {
		return err
	}

	if opts.UseRunFile {
		release, err := p.fs.acquireRunFile(p.path)
		if err != nil {
			return err
		}
		defer release()
	}

	if err := del(); err != nil {
		return err
	}
	p.Invalidate()
	p.log().Debug("deleted")

	if opts.CleanPath {
		p.cleanPath(filepath.Dir(p.path), until)
	}
	return nil
}

// cleanPath removes empty directories from dir upwards. It stops at until,
// at a non-empty directory, at a directory the restrictions do not allow
// writing or that is a restrictions root, and on the first failure.
func (p *Path) cleanPath(dir, until string) {
	for ; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if dir == until || !p.restrictions.Allows(dir, true) || p.isRestrictionRoot(dir) {
			return
		}
		entries, err := p.fs.backend.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return
		}
		if len(entries) > 0 {
			return
		}
		if err := p.fs.backend.Remove(dir); err != nil {
			p.fs.logger.Debug("stopped cleaning path", zap.String("dir", dir), zap.Error(err))
			return
		}
		p.fs.logger.Debug("removed empty directory", zap.String("dir", dir))
	}
}

func (p *Path) isRestrictionRoot(dir string) bool {
	for _, d := range p.restrictions.Dirs() {
		if d == dir {
			return true
		}
	}
	return false
}

// overwrite fills path with random data for each configured pass, then
// with zeros, syncing after every pass.
func (f *FS) overwrite(path string) error {
	info, err := f.backend.Stat(path)
	if err != nil {
		return actionError(err, "stat", path)
	}
	file, err := f.backend.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return actionError(err, "open", path)
	}
	defer file.Close()

	size := info.Size()
	sources := make([]io.Reader, 0, f.cfg.SecureDeletePasses+1)
	for i := 0; i < f.cfg.SecureDeletePasses; i++ {
		sources = append(sources, rand.Reader)
	}
	sources = append(sources, zeros{})

	for _, src := range sources {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return actionError(err, "seek", path)
		}
		if _, err := io.CopyN(file, src, size); err != nil {
			return actionError(err, "overwrite", path)
		}
		if s, ok := file.(core.Syncer); ok {
			if err := s.Sync(); err != nil {
				return actionError(err, "sync", path)
			}
		}
	}
	return nil
}

// followLink returns the resolved target of path when info describes a
// symbolic link, and path otherwise.
func (f *FS) followLink(path string, info fs.FileInfo) (string, error) {
	if info.Mode()&fs.ModeSymlink == 0 {
		return path, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", actionError(err, "resolve link", path)
	}
	return resolved, nil
}

type zeros struct{}

func (zeros) Read(b []byte) (int, error) {
	clear(b)
	return len(b), nil
}

// ChmodOptions tunes Chmod.
type ChmodOptions struct {
	// Recursive applies the mode to the whole tree, parents before children.
	// Symbolic links are skipped.
	Recursive bool
	Sudo      bool
}

// Chmod changes the permission bits. The recursive variant stops at the
// first failure.
func (p *Path) Chmod(mode fs.FileMode, opts ChmodOptions) (err error) {
	defer p.fs.observe("chmod", time.Now(), &err)

	if err := p.checkWrite(); err != nil {
		return err
	}
	info, err := p.fs.backend.Lstat(p.path)
	if err != nil {
		return actionError(err, "chmod", p.path)
	}
	// chmod(2) follows links, so the target must be writable too.
	target, err := p.fs.followLink(p.path, info)
	if err != nil {
		return err
	}
	if err := p.checkWrite(target); err != nil {
		return err
	}
	defer p.Invalidate()

	if opts.Sudo {
		args := []string{"chmod"}
		if opts.Recursive {
			args = append(args, "-R")
		}
		return p.fs.run(true, append(args, fmt.Sprintf("%04o", uint32(mode.Perm())), "--", p.path)...)
	}

	if !opts.Recursive {
		if err := p.fs.backend.Chmod(target, mode); err != nil {
			return actionError(err, "chmod", target)
		}
		return nil
	}

	return p.walkMutate("chmod", func(path string) error {
		return p.fs.backend.Chmod(path, mode)
	})
}

// ChownOptions tunes Chown. User and Group accept names or numeric ids;
// an empty value leaves that id unchanged.
type ChownOptions struct {
	User      string
	Group     string
	Recursive bool
	Sudo      bool
}

// Chown changes the owner without following symbolic links.
func (p *Path) Chown(opts ChownOptions) (err error) {
	defer p.fs.observe("chown", time.Now(), &err)

	if opts.User == "" && opts.Group == "" {
		return errors.New(errors.CodeOutOfBounds, "chown needs a user or a group")
	}
	if err := p.checkWrite(); err != nil {
		return err
	}
	if _, err := p.fs.backend.Lstat(p.path); err != nil {
		return actionError(err, "chown", p.path)
	}
	defer p.Invalidate()

	if opts.Sudo {
		owner := opts.User
		if opts.Group != "" {
			owner += ":" + opts.Group
		}
		args := []string{"chown", "-h"}
		if opts.Recursive {
			args = append(args, "-R")
		}
		return p.fs.run(true, append(args, owner, "--", p.path)...)
	}

	uid, err := lookupID(opts.User, func(name string) (string, error) {
		u, err := user.Lookup(name)
		if err != nil {
			return "", err
		}
		return u.Uid, nil
	})
	if err != nil {
		return err
	}
	gid, err := lookupID(opts.Group, func(name string) (string, error) {
		g, err := user.LookupGroup(name)
		if err != nil {
			return "", err
		}
		return g.Gid, nil
	})
	if err != nil {
		return err
	}

	chown := func(path string) error {
		return p.fs.backend.Lchown(path, uid, gid)
	}
	if !opts.Recursive {
		if err := chown(p.path); err != nil {
			return actionError(err, "chown", p.path)
		}
		return nil
	}
	return p.walkMutate("chown", chown)
}

// lookupID turns a name or numeric id into an id. Empty means -1.
func lookupID(name string, lookup func(string) (string, error)) (int, error) {
	if name == "" {
		return -1, nil
	}
	if id, err := strconv.Atoi(name); err == nil {
		return id, nil
	}
	raw, err := lookup(name)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeOutOfBounds, "unknown user or group %q", name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInternal, "non-numeric id %q for %q", raw, name)
	}
	return id, nil
}

// walkMutate applies fn to the tree in pre-order and stops at the first
// failure. Symbolic links are skipped.
func (p *Path) walkMutate(op string, fn func(path string) error) error {
	count := 0
	err := p.fs.backend.Walk(p.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if err := p.restrictions.Check(true, path); err != nil {
			return err
		}
		count++
		if err := fn(path); err != nil {
			return actionError(err, op, path)
		}
		return nil
	})
	p.fs.metrics.WalkEntries(op, count)
	if err != nil {
		if _, ok := err.(errors.FsError); ok {
			return err
		}
		return actionError(err, op, p.path)
	}
	return nil
}

// SymlinkOptions tunes symbolic link creation.
type SymlinkOptions struct {
	// MakeRelative stores a relative link value when the common ancestor of
	// both ends is allowed by the restrictions.
	MakeRelative bool
}

// SymlinkThisToTarget makes this path a symbolic link pointing at target
// and returns a handle on target. An existing link with the same value is
// left alone.
func (p *Path) SymlinkThisToTarget(target string, opts SymlinkOptions) (*Path, error) {
	target, err := p.fs.absolute(target, filepath.Dir(p.path))
	if err != nil {
		return nil, err
	}
	if err := p.fs.symlink(p.path, target, p.restrictions, opts); err != nil {
		return nil, err
	}
	p.Invalidate()
	return newPath(p.fs, target, core.KindPath, p.restrictions), nil
}

// SymlinkTargetFromThis creates target as a symbolic link pointing at this
// path and returns a handle on the link.
func (p *Path) SymlinkTargetFromThis(target string, opts SymlinkOptions) (*Path, error) {
	target, err := p.fs.absolute(target, filepath.Dir(p.path))
	if err != nil {
		return nil, err
	}
	if err := p.fs.symlink(target, p.path, p.restrictions, opts); err != nil {
		return nil, err
	}
	p.target = target
	return newPath(p.fs, target, core.KindPath, p.restrictions), nil
}

// symlink creates link pointing at dest.
func (f *FS) symlink(link, dest string, r *restrict.Restrictions, opts SymlinkOptions) error {
	if err := r.Check(true, link); err != nil {
		return err
	}
	if err := r.Check(false, dest); err != nil {
		return err
	}

	value := dest
	if opts.MakeRelative {
		if common := commonAncestor(filepath.Dir(link), dest); r.Allows(common, false) {
			if rel, err := filepath.Rel(filepath.Dir(link), dest); err == nil {
				value = rel
			}
		}
	}

	if info, err := f.backend.Lstat(link); err == nil {
		if info.Mode()&fs.ModeSymlink != 0 {
			if current, err := f.backend.Readlink(link); err == nil && current == value {
				return nil
			}
		}
		return errors.WithContext(errors.Newf(errors.CodeActionFailed, "cannot create symlink, %q already exists", link), "path", link)
	}

	if err := f.ensureParent(link, r); err != nil {
		return err
	}
	if err := f.backend.Symlink(value, link); err != nil {
		return actionError(err, "symlink", link)
	}
	f.logger.Debug("created symlink", zap.String("link", link), zap.String("value", value))
	return nil
}

// commonAncestor returns the deepest directory containing both paths.
func commonAncestor(a, b string) string {
	as := strings.Split(filepath.Clean(a), string(filepath.Separator))
	bs := strings.Split(filepath.Clean(b), string(filepath.Separator))
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	common := strings.Join(as[:n], string(filepath.Separator))
	if common == "" {
		return string(filepath.Separator)
	}
	return common
}
