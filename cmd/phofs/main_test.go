package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Capmega/phoundation-sub014/errors"
)

// setupEnv points the PHO_* system restrictions at a fresh writable root.
func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("PHO_SYSTEM_WRITE_DIRS", root)
	t.Setenv("PHO_FS_RUN_DIR", filepath.Join(t.TempDir(), "run"))
	t.Setenv("PHO_LOG_LEVEL", "error")
	return root
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	root := setupEnv(t)
	write(t, filepath.Join(root, "file"), "x")

	out, err := run(t, "check", filepath.Join(root, "file"))
	require.NoError(t, err)
	require.Equal(t, "ok\n", out)

	_, err = run(t, "check", "--write", "--kind", "file", filepath.Join(root, "file"))
	require.NoError(t, err)

	_, err = run(t, "check", "--kind", "directory", filepath.Join(root, "file"))
	require.True(t, errors.HasCode(err, errors.CodeWrongType))

	_, err = run(t, "check", "/etc/hostname")
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))

	_, err = run(t, "check", "--kind", "socket", root)
	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(err))
}

func TestSizeAndCount(t *testing.T) {
	root := setupEnv(t)
	write(t, filepath.Join(root, "a"), "12345")
	write(t, filepath.Join(root, "sub", "b"), "123")

	out, err := run(t, "size", root)
	require.NoError(t, err)
	require.Equal(t, "8\n", out)

	out, err = run(t, "count", root)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestTreeAndFind(t *testing.T) {
	root := setupEnv(t)
	for _, name := range []string{"a.txt", "a.tmp", "a.txt.tmp", filepath.Join("sub", "b.txt")} {
		write(t, filepath.Join(root, name), name)
	}

	out, err := run(t, "tree", "--filter", `\.txt$`, root)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "a.txt"), filepath.Join(root, "sub", "b.txt")}, strings.Fields(out))

	out, err = run(t, "find", "--allow", "txt", "--deny", "tmp", "-R", root)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "a.txt"), filepath.Join(root, "sub", "b.txt")}, strings.Fields(out))
}

func TestSha256(t *testing.T) {
	root := setupEnv(t)
	path := filepath.Join(root, "file")
	write(t, path, "payload")
	sum := sha256.Sum256([]byte("payload"))
	digest := hex.EncodeToString(sum[:])

	out, err := run(t, "sha256", path)
	require.NoError(t, err)
	require.Equal(t, digest+"  "+path+"\n", out)

	out, err = run(t, "sha256", "--expect", digest, path)
	require.NoError(t, err)
	require.Equal(t, "ok\n", out)

	_, err = run(t, "sha256", "--expect", strings.Repeat("f", 64), path)
	require.Equal(t, errors.CodeSha256Mismatch, errors.GetCode(err))
	require.Equal(t, string(errors.CodeSha256Mismatch), errors.ToJSON(err).Code)
}

func TestLines(t *testing.T) {
	root := setupEnv(t)
	path := filepath.Join(root, "file")
	write(t, path, "one two\nthree\nfour")

	out, err := run(t, "lines", "--buffer-size", "2", path)
	require.NoError(t, err)
	require.Equal(t, "3\n", out)

	out, err = run(t, "lines", "--words", path)
	require.NoError(t, err)
	require.Equal(t, "4\n", out)
}

func TestMounted(t *testing.T) {
	root := setupEnv(t)
	dir := filepath.Join(root, "not-a-mount")
	require.NoError(t, os.Mkdir(dir, 0o755))

	out, err := run(t, "mounted", dir)
	require.NoError(t, err)
	require.Equal(t, "not_mounted\n", out)

	_, err = run(t, "mounted", "--require", dir)
	require.Equal(t, errors.CodeNotMounted, errors.GetCode(err))
}

func TestRestrictionSetFromFile(t *testing.T) {
	root := setupEnv(t)
	write(t, filepath.Join(root, "public", "index.html"), "<html></html>")
	cfgFile := filepath.Join(t.TempDir(), "phofs.yaml")
	write(t, cfgFile, `
restrictions:
  Uploads:
    read:
      - `+filepath.Join(root, "public")+`
    write:
      - `+filepath.Join(root, "public", "uploads")+`
mounts:
  - path: /mnt/never-used
    source: /dev/null
    fstype: ext4
`)

	_, err := run(t, "--config", cfgFile, "-r", "uploads", "check", filepath.Join(root, "public", "index.html"))
	require.NoError(t, err)

	_, err = run(t, "--config", cfgFile, "-r", "uploads", "check", "--write", filepath.Join(root, "public", "index.html"))
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))

	_, err = run(t, "--config", cfgFile, "-r", "uploads", "count", root)
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))

	_, err = run(t, "--config", cfgFile, "-r", "missing", "count", root)
	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(err))

	_, err = run(t, "--config", filepath.Join(root, "nope.yaml"), "count", root)
	require.Equal(t, errors.CodeActionFailed, errors.GetCode(err))
}

func TestFileConfig(t *testing.T) {
	fc := &fileConfig{
		Restrictions: map[string]restrictionSet{
			"web": {Read: []string{"/srv/www"}, Write: []string{"/srv/www/uploads"}},
		},
		Mounts: []mountSpec{{Path: "/mnt/backup/", Source: "/dev/sdb1", FSType: "ext4", Sudo: true}},
	}

	r, err := fc.restrictions("WEB")
	require.NoError(t, err)
	require.Equal(t, "WEB", r.Label())
	require.True(t, r.Allows("/srv/www/index.html", false))
	require.False(t, r.Allows("/srv/www/index.html", true))
	require.True(t, r.Allows("/srv/www/uploads/a.png", true))

	mounts := fc.mountPoints()
	require.Len(t, mounts, 1)
	require.Equal(t, "/dev/sdb1", mounts[0].Source)
	require.True(t, mounts[0].Sudo)

	empty, err := loadFileConfig("")
	require.NoError(t, err)
	require.Empty(t, empty.Restrictions)
}
