package local

import (
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Capmega/phoundation-sub014/config"
	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

func TestFS_NewPath(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("a.txt"), "a")

	tests := []struct {
		name string
		raw  string
		opts []PathOption
		want string
		code errors.ErrorCode
	}{
		{"absolute", env.path("a.txt"), nil, env.path("a.txt"), ""},
		{"cleaned", env.root + "/x/../a.txt", nil, env.path("a.txt"), ""},
		{"relative with prefix", "a.txt", []PathOption{WithAbsolutePrefix(env.root)}, env.path("a.txt"), ""},
		{"relative without prefix", "a.txt", nil, "", errors.CodeOutOfBounds},
		{"relative with relative prefix", "a.txt", []PathOption{WithAbsolutePrefix("tmp")}, "", errors.CodeOutOfBounds},
		{"empty", "", nil, "", errors.CodeOutOfBounds},
		{"must exist", env.path("a.txt"), []PathOption{MustExist()}, env.path("a.txt"), ""},
		{"must exist missing", env.path("b.txt"), []PathOption{MustExist()}, "", errors.CodePathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := env.fs.Path(tt.raw, nil, tt.opts...)
			if tt.code != "" {
				require.Error(t, err)
				require.Equal(t, tt.code, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, p.Name())
			require.True(t, p.IsSet())
			require.Equal(t, core.KindPath, p.Kind())
		})
	}
}

func TestFS_WithRoot(t *testing.T) {
	root := t.TempDir()
	fsys := New(WithRoot(root), WithSystemRestrictions(restrict.New("r", false, root)))

	p, err := fsys.Path("sub/file", nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "sub", "file"), p.Name())
	require.Same(t, fsys.System(), p.Restrictions())
}

func TestFS_SystemFromConfig(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.System.Label = "sys"
	cfg.System.WriteDirs = []string{root}

	fsys := New(WithConfig(cfg))
	require.Equal(t, "sys", fsys.System().Label())
	require.NoError(t, fsys.System().Check(true, filepath.Join(root, "x")))
}

func TestPath_Exists(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("file"), "x")
	require.NoError(t, os.Symlink(env.path("file"), env.path("link")))
	require.NoError(t, os.Symlink(env.path("gone"), env.path("dead")))

	tests := []struct {
		name string
		path string
		opts ExistsOptions
		want bool
	}{
		{"file", "file", ExistsOptions{}, true},
		{"missing", "missing", ExistsOptions{}, false},
		{"link", "link", ExistsOptions{}, true},
		{"dead link", "dead", ExistsOptions{}, false},
		{"dead link counted", "dead", ExistsOptions{CheckDeadSymlink: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := env.fs.Path(env.path(tt.path), nil)
			require.NoError(t, err)
			got, err := p.Exists(tt.opts)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("outside restrictions", func(t *testing.T) {
		p, err := env.fs.Path("/etc/hostname", nil)
		require.NoError(t, err)
		_, err = p.Exists(ExistsOptions{})
		require.Equal(t, errors.CodeRestricted, errors.GetCode(err))
	})
}

func TestPath_CheckExists(t *testing.T) {
	env := newEnv(t)
	p, err := env.fs.Path(env.path("missing"), nil)
	require.NoError(t, err)

	err = p.CheckExists(ExistsOptions{})
	require.Equal(t, errors.CodeFileNotExist, errors.GetCode(err))

	require.NoError(t, p.CheckExists(ExistsOptions{Force: true}))
	warnings := env.logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	require.Equal(t, env.path("missing"), warnings[0].ContextMap()["path"])
}

func TestPath_CheckReadable(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("file"), "x")
	require.NoError(t, os.Mkdir(env.path("dir"), 0o755))

	t.Run("readable file", func(t *testing.T) {
		require.NoError(t, env.file(t, "file").CheckReadable(CheckOptions{Kind: core.KindFile}))
	})

	t.Run("missing", func(t *testing.T) {
		err := env.file(t, "missing").CheckReadable(CheckOptions{})
		require.Equal(t, errors.CodeNotReadable, errors.GetCode(err))
		require.True(t, errors.HasCode(err, errors.CodeFileNotExist))
	})

	t.Run("wrong kind", func(t *testing.T) {
		err := env.dir(t, "file").CheckReadable(CheckOptions{Kind: core.KindDirectory})
		require.True(t, errors.HasCode(err, errors.CodeWrongType))

		err = env.file(t, "dir").CheckReadable(CheckOptions{Kind: core.KindFile})
		require.True(t, errors.HasCode(err, errors.CodeWrongType))
	})

	t.Run("wraps previous", func(t *testing.T) {
		previous := errors.New(errors.CodeActionFailed, "read failed")
		err := env.file(t, "missing").CheckReadable(CheckOptions{Previous: previous})
		require.True(t, errors.HasCode(err, errors.CodeNotReadable))
		require.True(t, errors.HasCode(err, errors.CodeActionFailed))
		require.True(t, errors.Is(err, previous))
	})

	t.Run("restricted", func(t *testing.T) {
		p, err := env.fs.Path("/etc/hostname", nil)
		require.NoError(t, err)
		err = p.CheckReadable(CheckOptions{})
		require.Equal(t, errors.CodeRestricted, errors.GetCode(err))

		previous := errors.New(errors.CodeActionFailed, "read failed")
		err = p.CheckReadable(CheckOptions{Previous: previous})
		require.Equal(t, errors.CodeRestricted, errors.GetCode(err))
		require.True(t, errors.Is(err, previous))
	})
}

func TestPath_CheckWritable(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("file"), "x")

	require.NoError(t, env.file(t, "file").CheckWritable(CheckOptions{}))
	require.NoError(t, env.file(t, "new").CheckWritable(CheckOptions{}))

	err := env.file(t, "nodir", "new").CheckWritable(CheckOptions{})
	require.Equal(t, errors.CodeNotWritable, errors.GetCode(err))
	require.True(t, errors.HasCode(err, errors.CodeFileNotExist))

	ro, err := env.fs.File(env.path("file"), env.r.ReadOnly())
	require.NoError(t, err)
	require.Equal(t, errors.CodeRestricted, errors.GetCode(ro.CheckWritable(CheckOptions{})))
}

func TestPath_RealPath(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("real", "file"), "x")
	require.NoError(t, os.Symlink(env.path("real"), env.path("alias")))

	p, err := env.fs.Path(env.path("alias", "file"), nil)
	require.NoError(t, err)
	got, err := p.RealPath(true)
	require.NoError(t, err)
	require.Equal(t, env.path("real", "file"), got)

	missing, err := env.fs.Path(env.path("alias", "sub", "nope"), nil)
	require.NoError(t, err)
	got, err = missing.RealPath(false)
	require.NoError(t, err)
	require.Equal(t, env.path("real", "sub", "nope"), got)

	_, err = missing.RealPath(true)
	require.Equal(t, errors.CodePathNotFound, errors.GetCode(err))
}

func TestPath_Rename(t *testing.T) {
	env := newEnv(t)

	for _, target := range []string{"b.txt", "sub/../c.txt"} {
		t.Run(target, func(t *testing.T) {
			writeFile(t, env.path("a.txt"), "data")
			p := env.file(t, "a.txt")

			require.NoError(t, p.Rename(target))
			require.Equal(t, filepath.Join(env.root, filepath.Clean(target)), p.Name())
			require.Equal(t, p.Name(), p.Target())

			ok, err := p.Exists(ExistsOptions{})
			require.NoError(t, err)
			require.True(t, ok)
			require.False(t, exists(env.path("a.txt")))
			require.NoError(t, p.Delete(DeleteOptions{}))
		})
	}

	t.Run("outside restrictions", func(t *testing.T) {
		writeFile(t, env.path("a.txt"), "data")
		p := env.file(t, "a.txt")
		err := p.Rename("/tmp/escaped.txt")
		require.Equal(t, errors.CodeRestricted, errors.GetCode(err))
		require.True(t, exists(env.path("a.txt")))
	})

	t.Run("missing source", func(t *testing.T) {
		err := env.file(t, "nope").Rename("other")
		require.Equal(t, errors.CodeFileNotExist, errors.GetCode(err))
	})
}

func TestPath_Move(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("a.txt"), "data")
	require.NoError(t, os.Mkdir(env.path("into"), 0o755))

	p := env.file(t, "a.txt")
	require.NoError(t, p.Move(env.path("into"), nil))
	require.Equal(t, env.path("into", "a.txt"), p.Name())
	require.Equal(t, "data", readFile(t, env.path("into", "a.txt")))

	require.NoError(t, p.Move(env.path("deep", "er", "b.txt"), nil))
	require.Equal(t, "data", readFile(t, env.path("deep", "er", "b.txt")))

	other := restrict.New("other", true, env.path("deep"))
	require.NoError(t, p.Move(env.path("deep", "c.txt"), other))
	require.Same(t, other, p.Restrictions())

	err := p.Move(env.path("elsewhere.txt"), nil)
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))
}

func TestPath_Copy(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("src", "a.txt"), "a")
	writeFile(t, env.path("src", "sub", "b.txt"), "b")
	require.NoError(t, os.Symlink("a.txt", env.path("src", "link")))

	p, err := env.fs.Path(env.path("src"), nil)
	require.NoError(t, err)

	cp, err := p.Copy(env.path("dst"), nil)
	require.NoError(t, err)
	require.Equal(t, env.path("dst"), cp.Name())
	require.Equal(t, "a", readFile(t, env.path("dst", "a.txt")))
	require.Equal(t, "b", readFile(t, env.path("dst", "sub", "b.txt")))
	link, err := os.Readlink(env.path("dst", "link"))
	require.NoError(t, err)
	require.Equal(t, "a.txt", link)

	ro, err := env.fs.Path(env.path("src"), env.r.ReadOnly())
	require.NoError(t, err)
	_, err = ro.Copy(env.path("dst2"), nil)
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))
}

func TestPath_Stat(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("file"), "hello")
	require.NoError(t, os.Chmod(env.path("file"), 0o640))
	require.NoError(t, os.Symlink("file", env.path("link")))

	info, err := env.file(t, "file").Stat()
	require.NoError(t, err)
	require.Equal(t, "-", info.TypeCode)
	require.Equal(t, "regular file", info.TypeName)
	require.Equal(t, int64(5), info.Size)
	require.Equal(t, "rw-r-----", info.ModeString)
	require.Equal(t, os.Getuid(), info.UID)
	require.Equal(t, os.Getgid(), info.GID)

	p, err := env.fs.Path(env.path("link"), nil)
	require.NoError(t, err)
	code, err := p.TypeCode()
	require.NoError(t, err)
	require.Equal(t, "l", code)
	name, err := p.TypeName()
	require.NoError(t, err)
	require.Equal(t, "symlink", name)

	_, err = env.file(t, "missing").Stat()
	require.Equal(t, errors.CodeFileNotExist, errors.GetCode(err))
}

// ownerBackend reports fixed owner ids in every Lstat record.
type ownerBackend struct {
	core.Backend
	lstats int
}

type ownedInfo struct{ fs.FileInfo }

func (ownedInfo) Sys() any { return &syscall.Stat_t{Uid: 4242, Gid: 4343} }

func (b *ownerBackend) Lstat(name string) (fs.FileInfo, error) {
	b.lstats++
	info, err := b.Backend.Lstat(name)
	if err != nil {
		return nil, err
	}
	return ownedInfo{info}, nil
}

func TestPath_StatOwnerFromCachedRecord(t *testing.T) {
	env := newEnv(t, func(c *config.Config) { c.FS.StatCacheWindow = time.Hour })
	backend := &ownerBackend{Backend: env.fs.Backend()}
	env = env.with(WithBackend(backend))
	writeFile(t, env.path("file"), "hello")

	f := env.file(t, "file")
	first, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, 4242, first.UID)
	require.Equal(t, 4343, first.GID)

	calls := backend.lstats
	second, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, calls, backend.lstats)
	require.Equal(t, first, second)
}

func TestPath_Predicates(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("file"), "x")
	require.NoError(t, os.Mkdir(env.path("dir"), 0o755))
	require.NoError(t, os.Symlink(env.path("file"), env.path("link")))
	require.NoError(t, os.Symlink(env.path("gone"), env.path("dead")))

	check := func(name string, fn func(*Path) (bool, error), want bool) {
		t.Helper()
		p, err := env.fs.Path(env.path(name), nil)
		require.NoError(t, err)
		got, err := fn(p)
		require.NoError(t, err)
		require.Equal(t, want, got, name)
	}

	check("file", (*Path).IsRegular, true)
	check("file", (*Path).IsDirectory, false)
	check("dir", (*Path).IsDirectory, true)
	check("link", (*Path).IsLink, true)
	check("link", (*Path).IsRegular, true)
	check("link", (*Path).IsLinkAndTargetExists, true)
	check("dead", (*Path).IsLink, true)
	check("dead", (*Path).IsLinkAndTargetExists, false)
	check("file", (*Path).IsLink, false)
	check("file", (*Path).IsFifo, false)
	check("file", (*Path).IsSock, false)
	check("missing", (*Path).IsRegular, false)

	null, err := env.fs.Path("/dev/null", restrict.New("dev", false, "/dev"))
	require.NoError(t, err)
	chr, err := null.IsChr()
	require.NoError(t, err)
	require.True(t, chr)
	blk, err := null.IsBlk()
	require.NoError(t, err)
	require.False(t, blk)
}

func TestPath_StatCacheInvalidatedByMutation(t *testing.T) {
	env := newEnv(t, func(c *config.Config) { c.FS.StatCacheWindow = time.Hour })
	writeFile(t, env.path("file"), "x")

	f := env.file(t, "file")
	ok, err := f.IsRegular()
	require.NoError(t, err)
	require.True(t, ok)

	// External removal is not seen while the cache is valid.
	require.NoError(t, os.Remove(env.path("file")))
	ok, err = f.IsRegular()
	require.NoError(t, err)
	require.True(t, ok)

	f.Invalidate()
	ok, err = f.IsRegular()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, f.PutContents([]byte("again")))
	ok, err = f.IsRegular()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.Delete(DeleteOptions{}))
	ok, err = f.IsRegular()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPath_MimeType(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("page.html"), "<!DOCTYPE html><html><body>hi</body></html>")
	require.NoError(t, os.Mkdir(env.path("dir"), 0o755))

	mime, err := env.file(t, "page.html").MimeType()
	require.NoError(t, err)
	require.Contains(t, mime, "text/html")

	mime, err = env.dir(t, "dir").MimeType()
	require.NoError(t, err)
	require.Equal(t, "inode/directory", mime)
}

func TestPath_Readlink(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("file"), "x")
	require.NoError(t, os.Symlink("file", env.path("link")))

	p, err := env.fs.Path(env.path("link"), nil)
	require.NoError(t, err)
	value, err := p.Readlink()
	require.NoError(t, err)
	require.Equal(t, "file", value)

	_, err = env.file(t, "file").Readlink()
	require.Equal(t, errors.CodeWrongType, errors.GetCode(err))
}

func TestPath_Parent(t *testing.T) {
	env := newEnv(t)
	f := env.file(t, "a", "b.txt")
	parent := f.Parent()
	require.Equal(t, env.path("a"), parent.Name())
	require.Equal(t, core.KindDirectory, parent.Kind())
	require.Same(t, f.Restrictions(), parent.Restrictions())
}
