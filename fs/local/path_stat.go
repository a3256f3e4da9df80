package local

import (
	"io/fs"
	"syscall"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
)

const (
	keyLstat = "lstat"
	keyStat  = "stat"
)

// Invalidate drops the cached stat data. Every mutating operation calls it.
func (p *Path) Invalidate() {
	if p.stats != nil {
		p.stats.Flush()
	}
}

func (p *Path) lstat() (fs.FileInfo, error) {
	return p.cached(keyLstat, p.fs.backend.Lstat)
}

func (p *Path) stat() (fs.FileInfo, error) {
	return p.cached(keyStat, p.fs.backend.Stat)
}

func (p *Path) cached(key string, load func(string) (fs.FileInfo, error)) (fs.FileInfo, error) {
	if p.stats != nil {
		if v, ok := p.stats.Get(key); ok {
			return v.(fs.FileInfo), nil
		}
	}
	info, err := load(p.path)
	if err != nil {
		return nil, err
	}
	if p.stats != nil {
		p.stats.SetDefault(key, info)
	}
	return info, nil
}

// Stat returns the stat record without following a final symbolic link.
func (p *Path) Stat() (*core.Info, error) {
	if err := p.checkRead(); err != nil {
		return nil, err
	}
	info, err := p.lstat()
	if err != nil {
		return nil, actionError(err, "stat", p.path)
	}

	out := &core.Info{
		Path:       p.path,
		TypeCode:   core.TypeCode(info.Mode()),
		TypeName:   core.TypeName(info.Mode()),
		Size:       info.Size(),
		UID:        -1,
		GID:        -1,
		Mode:       info.Mode(),
		ModeString: core.ModeString(info.Mode()),
		ModTime:    info.ModTime(),
	}

	// Owner ids come from the same record as the rest.
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		out.UID = int(st.Uid)
		out.GID = int(st.Gid)
	}
	return out, nil
}

// Mode returns the permission and type bits.
func (p *Path) Mode() (fs.FileMode, error) {
	info, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return info.Mode, nil
}

// ModeString returns the permission bits as "rwxrwxrwx".
func (p *Path) ModeString() (string, error) {
	info, err := p.Stat()
	if err != nil {
		return "", err
	}
	return info.ModeString, nil
}

// TypeCode returns the ls(1) type character, such as "d" or "l".
func (p *Path) TypeCode() (string, error) {
	info, err := p.Stat()
	if err != nil {
		return "", err
	}
	return info.TypeCode, nil
}

// TypeName returns the type name, such as "directory" or "symlink".
func (p *Path) TypeName() (string, error) {
	info, err := p.Stat()
	if err != nil {
		return "", err
	}
	return info.TypeName, nil
}

// MimeType detects the content type. Directories report "inode/directory".
func (p *Path) MimeType() (string, error) {
	if err := p.checkRead(); err != nil {
		return "", err
	}
	info, err := p.stat()
	if err != nil {
		return "", actionError(err, "stat", p.path)
	}
	if info.IsDir() {
		return "inode/directory", nil
	}

	f, err := p.fs.backend.Open(p.path)
	if err != nil {
		return "", actionError(err, "open", p.path)
	}
	defer f.Close()

	m, err := mimetype.DetectReader(f)
	if err != nil {
		return "", actionError(err, "detect mime type", p.path)
	}
	return m.String(), nil
}

// Readlink returns the value of a symbolic link. Other types report
// CodeWrongType.
func (p *Path) Readlink() (string, error) {
	if err := p.checkRead(); err != nil {
		return "", err
	}
	info, err := p.lstat()
	if err != nil {
		return "", actionError(err, "lstat", p.path)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return "", errors.WithContext(errors.Newf(errors.CodeWrongType, "%q is not a symlink", p.path), "path", p.path)
	}
	link, err := p.fs.backend.Readlink(p.path)
	if err != nil {
		return "", actionError(err, "readlink", p.path)
	}
	return link, nil
}

// IsLink reports whether the path is a symbolic link.
func (p *Path) IsLink() (bool, error) {
	return p.is(p.lstat, func(m fs.FileMode) bool { return m&fs.ModeSymlink != 0 })
}

// IsLinkAndTargetExists reports whether the path is a symbolic link whose
// target exists.
func (p *Path) IsLinkAndTargetExists() (bool, error) {
	link, err := p.IsLink()
	if err != nil || !link {
		return false, err
	}
	return p.is(p.stat, func(fs.FileMode) bool { return true })
}

// IsDirectory reports whether the path is a directory, following links.
func (p *Path) IsDirectory() (bool, error) {
	return p.is(p.stat, fs.FileMode.IsDir)
}

// IsRegular reports whether the path is a regular file, following links.
func (p *Path) IsRegular() (bool, error) {
	return p.is(p.stat, fs.FileMode.IsRegular)
}

// IsFifo reports whether the path is a named pipe.
func (p *Path) IsFifo() (bool, error) {
	return p.is(p.stat, func(m fs.FileMode) bool { return m&fs.ModeNamedPipe != 0 })
}

// IsChr reports whether the path is a character device.
func (p *Path) IsChr() (bool, error) {
	return p.is(p.stat, func(m fs.FileMode) bool { return m&fs.ModeCharDevice != 0 })
}

// IsBlk reports whether the path is a block device.
func (p *Path) IsBlk() (bool, error) {
	return p.is(p.stat, func(m fs.FileMode) bool {
		return m&fs.ModeDevice != 0 && m&fs.ModeCharDevice == 0
	})
}

// IsSock reports whether the path is a socket.
func (p *Path) IsSock() (bool, error) {
	return p.is(p.stat, func(m fs.FileMode) bool { return m&fs.ModeSocket != 0 })
}

// is applies test to the mode returned by load. A missing path is false.
func (p *Path) is(load func() (fs.FileInfo, error), test func(fs.FileMode) bool) (bool, error) {
	if err := p.checkRead(); err != nil {
		return false, err
	}
	info, err := load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, actionError(err, "stat", p.path)
	}
	return test(info.Mode()), nil
}
