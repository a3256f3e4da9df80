package local

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
)

func TestFile_Kind(t *testing.T) {
	env := newEnv(t)
	f := env.file(t, "file")
	require.Equal(t, core.KindFile, f.Kind())
	require.Equal(t, env.cfg.FS.BufferSize, f.BufferSize())

	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(f.SetBufferSize(0)))
	require.NoError(t, f.SetBufferSize(16))
	require.Equal(t, 16, f.BufferSize())
}

func TestFile_LineCount(t *testing.T) {
	env := newEnv(t)

	const lines = 123456
	var b strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "%06d %s\n", i, strings.Repeat("x", 77))
	}
	writeFile(t, env.path("big.txt"), b.String())

	for _, size := range []int{1 << 10, 1 << 20} {
		t.Run(fmt.Sprintf("buffer %d", size), func(t *testing.T) {
			f := env.file(t, "big.txt")
			require.NoError(t, f.SetBufferSize(size))
			n, err := f.LineCount()
			require.NoError(t, err)
			require.Equal(t, lines, n)
		})
	}
}

func TestFile_LineCountEdges(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"\n\n", 2},
		{"a\x00", 1},
	}
	for i, tt := range tests {
		name := fmt.Sprintf("case%d", i)
		writeFile(t, env.path(name), tt.content)
		f := env.file(t, name)
		require.NoError(t, f.SetBufferSize(2))
		n, err := f.LineCount()
		require.NoError(t, err)
		require.Equal(t, tt.want, n, "content %q", tt.content)
	}

	require.NoError(t, os.Mkdir(env.path("dir"), 0o755))
	_, err := env.file(t, "dir").LineCount()
	require.Equal(t, errors.CodeWrongType, errors.GetCode(err))
}

func TestFile_WordCount(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("words"), "The quick  brown\tfox\njumps over\r\nthe lazy dog. The end")

	for _, size := range []int{3, 4096} {
		f := env.file(t, "words")
		require.NoError(t, f.SetBufferSize(size))
		n, err := f.WordCount()
		require.NoError(t, err)
		require.Equal(t, 11, n)
	}

	freq, err := env.file(t, "words").WordFrequency()
	require.NoError(t, err)
	require.Equal(t, 3, freq["the"])
	require.Equal(t, 1, freq["dog"])
	require.Equal(t, 1, freq["end"])
	require.NotContains(t, freq, "dog.")
}

func TestFile_Grep(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("log"), "info start\nerror disk\ninfo ok\nwarn slow\nerror net\n")
	f := env.file(t, "log")

	matches, err := f.Grep([]string{"error", "warn"}, 0)
	require.NoError(t, err)
	require.Equal(t, []Match{
		{Line: 2, Text: "error disk"},
		{Line: 4, Text: "warn slow"},
		{Line: 5, Text: "error net"},
	}, matches)

	matches, err = f.Grep([]string{"error"}, 3)
	require.NoError(t, err)
	require.Equal(t, []Match{{Line: 2, Text: "error disk"}}, matches)

	_, err = f.Grep([]string{"error"}, -1)
	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(err))
}

func TestFile_Sha256(t *testing.T) {
	env := newEnv(t)
	content := "integrity matters\n"
	writeFile(t, env.path("file"), content)
	sum := sha256.Sum256([]byte(content))
	correct := hex.EncodeToString(sum[:])
	wrong := strings.Repeat("0", 64)

	f := env.file(t, "file")
	got, err := f.Sha256()
	require.NoError(t, err)
	require.Equal(t, correct, got)

	require.NoError(t, f.CheckSha256(correct, false))
	require.NoError(t, f.CheckSha256(strings.ToUpper(correct), false))

	err = f.CheckSha256(wrong, false)
	require.Equal(t, errors.CodeSha256Mismatch, errors.GetCode(err))

	require.NoError(t, f.CheckSha256(wrong, true))
	warnings := env.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("sha256 mismatch ignored").All()
	require.Len(t, warnings, 1)
	require.Equal(t, correct, warnings[0].ContextMap()["actual"])
}

func TestFile_Append(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("a"), "A")
	writeFile(t, env.path("b"), "B")
	f := env.file(t, "out")

	require.NoError(t, f.Append([]byte("start:")))
	require.NoError(t, f.AppendFiles(env.path("a"), "b"))
	require.Equal(t, "start:AB", readFile(t, env.path("out")))
	require.False(t, f.IsOpen())

	err := f.AppendFiles("/etc/hostname")
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))

	err = f.AppendFiles(env.path("missing"))
	require.Equal(t, errors.CodeFileNotExist, errors.GetCode(err))

	require.NoError(t, os.Mkdir(env.path("dir"), 0o755))
	require.Equal(t, errors.CodeWrongType, errors.GetCode(env.file(t, "dir").Append([]byte("x"))))
}

func TestFile_CopyToTargetUnique(t *testing.T) {
	env := newEnv(t)
	targets := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		name := fmt.Sprintf("src-%04d.txt", i)
		writeFile(t, env.path("src", name), name)

		cp, err := env.file(t, "src", name).CopyToTarget(TargetOptions{Directory: env.path("targets"), Length: 4})
		require.NoError(t, err)
		dir := filepath.Dir(cp.Name())
		require.False(t, targets[dir], "duplicate target %s", dir)
		targets[dir] = true
	}
	require.Len(t, targets, 1000)
}

func TestFile_CopyToTarget(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("photo.jpeg"), "img")
	f := env.file(t, "photo.jpeg")

	cp, err := f.CopyToTarget(TargetOptions{Directory: env.path("store"), Length: 3})
	require.NoError(t, err)
	rel, err := filepath.Rel(env.path("store"), cp.Name())
	require.NoError(t, err)
	parts := strings.Split(rel, string(filepath.Separator))
	require.Len(t, parts, 4)
	require.Equal(t, "photo.jpeg", parts[3])
	require.Equal(t, cp.Name(), f.Target())
	require.Equal(t, "img", readFile(t, cp.Name()))
	require.True(t, exists(env.path("photo.jpeg")))

	cp, err = f.CopyToTarget(TargetOptions{Directory: env.path("store"), Length: 6, SingleDir: true, Extension: "jpg"})
	require.NoError(t, err)
	rel, err = filepath.Rel(env.path("store"), cp.Name())
	require.NoError(t, err)
	parts = strings.Split(rel, string(filepath.Separator))
	require.Len(t, parts, 2)
	require.Len(t, parts[0], 6)
	require.Equal(t, "photo.jpg", parts[1])

	_, err = f.CopyToTarget(TargetOptions{Directory: env.path("store"), Length: 0})
	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(err))

	_, err = f.CopyToTarget(TargetOptions{Directory: "/var/lib", Length: 2})
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))
}

func TestFile_MoveToTarget(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("upload.bin"), "payload")
	f := env.file(t, "upload.bin")

	moved, err := f.MoveToTarget(TargetOptions{Directory: env.path("store"), Length: 2})
	require.NoError(t, err)
	require.Same(t, f, moved)
	require.False(t, exists(env.path("upload.bin")))
	require.Equal(t, "payload", readFile(t, f.Name()))
	require.Equal(t, f.Name(), f.Target())
}
