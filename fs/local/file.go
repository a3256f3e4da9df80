package local

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

// File is a handle on a non-directory path.
type File struct {
	*Path
	bufferSize int
}

var (
	_ core.StreamReader = (*File)(nil)
	_ core.StreamWriter = (*File)(nil)
)

func newFile(p *Path) *File {
	if p.kind == core.KindPath {
		p.kind = core.KindFile
	}
	return &File{Path: p, bufferSize: p.fs.cfg.BufferSize}
}

// SetBufferSize sets the chunk size used by streamed content operations.
func (f *File) SetBufferSize(size int) error {
	if size <= 0 {
		return errors.Newf(errors.CodeOutOfBounds, "invalid buffer size %d: must be positive", size)
	}
	f.bufferSize = size
	return nil
}

// BufferSize returns the chunk size used by streamed content operations.
func (f *File) BufferSize() int { return f.bufferSize }

// checkNotDirectory fails with CodeWrongType when the path is a directory.
func (f *File) checkNotDirectory() error {
	if info, err := f.stat(); err == nil && info.IsDir() {
		return errors.WithContext(errors.Newf(errors.CodeWrongType, "%q is a directory", f.path), "path", f.path)
	}
	return nil
}

// Append adds data at the end of the file.
func (f *File) Append(data []byte) error {
	if err := f.checkNotDirectory(); err != nil {
		return err
	}
	return f.AppendData(data)
}

// AppendFiles appends the content of every source file in order.
func (f *File) AppendFiles(sources ...string) (err error) {
	defer f.fs.observe("append_files", time.Now(), &err)

	if err := f.checkNotDirectory(); err != nil {
		return err
	}
	paths := make([]string, len(sources))
	for i, src := range sources {
		abs, err := f.fs.absolute(src, filepath.Dir(f.path))
		if err != nil {
			return err
		}
		paths[i] = abs
	}
	if len(paths) > 0 {
		if err := f.checkRead(paths...); err != nil {
			return err
		}
	}

	return f.appending(func() error {
		for _, src := range paths {
			if err := f.appendFrom(src); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *File) appendFrom(src string) error {
	in, err := f.fs.backend.Open(src)
	if err != nil {
		return actionError(err, "open", src)
	}
	defer in.Close()

	if _, err := io.CopyBuffer(f.stream, in, make([]byte, f.bufferSize)); err != nil {
		return actionError(err, "append", src)
	}
	f.Invalidate()
	return nil
}

// chunks streams the file in buffer-sized chunks. The slice passed to fn is
// reused between calls.
func (f *File) chunks(fn func(chunk []byte)) error {
	if err := f.checkRead(); err != nil {
		return err
	}
	if err := f.checkNotDirectory(); err != nil {
		return err
	}

	in, err := f.fs.backend.Open(f.path)
	if err != nil {
		return actionError(err, "open", f.path)
	}
	defer in.Close()

	buf := make([]byte, f.bufferSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return actionError(err, "read", f.path)
		}
	}
}

// LineCount counts newline characters. A final line without a terminator
// counts as a line.
func (f *File) LineCount() (int, error) {
	count := 0
	last := byte('\n')
	err := f.chunks(func(chunk []byte) {
		count += bytes.Count(chunk, []byte{'\n'})
		last = chunk[len(chunk)-1]
	})
	if err != nil {
		return 0, err
	}
	if last != '\n' {
		count++
	}
	return count, nil
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// WordCount counts whitespace-separated words.
func (f *File) WordCount() (int, error) {
	count := 0
	inWord := false
	err := f.chunks(func(chunk []byte) {
		for _, b := range chunk {
			if isSpace(b) {
				inWord = false
			} else if !inWord {
				inWord = true
				count++
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// WordFrequency counts every word, lowercased with surrounding punctuation
// removed.
func (f *File) WordFrequency() (map[string]int, error) {
	freq := make(map[string]int)
	var word []byte
	flush := func() {
		if len(word) == 0 {
			return
		}
		w := strings.ToLower(strings.TrimFunc(string(word), unicode.IsPunct))
		if w != "" {
			freq[w]++
		}
		word = word[:0]
	}
	err := f.chunks(func(chunk []byte) {
		for _, b := range chunk {
			if isSpace(b) {
				flush()
			} else {
				word = append(word, b)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	flush()
	return freq, nil
}

// Match is one line found by Grep.
type Match struct {
	// Line is 1-based.
	Line int
	Text string
}

// Grep returns the lines containing any of filters. Lines are truncated to
// the configured maximum line length. With untilLine above zero scanning
// stops after that line.
func (f *File) Grep(filters []string, untilLine int) ([]Match, error) {
	if untilLine < 0 {
		return nil, errors.Newf(errors.CodeOutOfBounds, "invalid line limit %d", untilLine)
	}
	if err := f.checkRead(); err != nil {
		return nil, err
	}
	if err := f.checkNotDirectory(); err != nil {
		return nil, err
	}

	in, err := f.fs.backend.Open(f.path)
	if err != nil {
		return nil, actionError(err, "open", f.path)
	}
	defer in.Close()

	r := bufio.NewReaderSize(in, f.bufferSize)
	var matches []Match
	for n := 1; untilLine == 0 || n <= untilLine; n++ {
		line, err := readLine(r, f.fs.cfg.MaxLineLength)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, actionError(err, "read", f.path)
		}
		for _, filter := range filters {
			if strings.Contains(line, filter) {
				matches = append(matches, Match{Line: n, Text: line})
				break
			}
		}
	}
	return matches, nil
}

// Sha256 returns the lowercase hex SHA-256 digest of the content.
func (f *File) Sha256() (string, error) {
	h := sha256.New()
	if err := f.chunks(func(chunk []byte) { h.Write(chunk) }); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CheckSha256 fails with CodeSha256Mismatch unless the digest equals hash,
// compared case-insensitively. With ignoreFailure a mismatch is logged.
func (f *File) CheckSha256(hash string, ignoreFailure bool) error {
	actual, err := f.Sha256()
	if err != nil {
		return err
	}
	if strings.EqualFold(actual, strings.TrimSpace(hash)) {
		return nil
	}
	if ignoreFailure {
		f.log().Warn("sha256 mismatch ignored", zap.String("expected", hash), zap.String("actual", actual))
		return nil
	}
	return errors.WithContextMap(
		errors.Newf(errors.CodeSha256Mismatch, "sha256 of %q does not match", f.path),
		map[string]interface{}{"path": f.path, "expected": hash, "actual": actual},
	)
}

// TargetOptions tunes CopyToTarget and MoveToTarget.
type TargetOptions struct {
	// Directory receives the generated subdirectory.
	Directory string
	// Extension replaces the file extension when set.
	Extension string
	// SingleDir generates one flat directory ("abcd") instead of one level
	// per character ("a/b/c/d").
	SingleDir bool
	// Length is the number of hex characters to generate.
	Length int
	// Restrictions bind the target. Nil uses the file's restrictions.
	Restrictions *restrict.Restrictions
}

// CopyToTarget copies the file into a new random subdirectory of
// opts.Directory and returns a handle on the copy.
func (f *File) CopyToTarget(opts TargetOptions) (*File, error) {
	return f.toTarget(opts, false)
}

// MoveToTarget moves the file into a new random subdirectory of
// opts.Directory. The handle follows the file.
func (f *File) MoveToTarget(opts TargetOptions) (*File, error) {
	return f.toTarget(opts, true)
}

func (f *File) toTarget(opts TargetOptions, move bool) (_ *File, err error) {
	op := "copy_to_target"
	if move {
		op = "move_to_target"
	}
	defer f.fs.observe(op, time.Now(), &err)

	if opts.Length <= 0 {
		return nil, errors.Newf(errors.CodeOutOfBounds, "invalid target length %d: must be positive", opts.Length)
	}
	r := opts.Restrictions
	if r == nil {
		r = f.restrictions
	}
	dir, err := f.fs.absolute(opts.Directory, "")
	if err != nil {
		return nil, err
	}
	if move {
		err = f.checkWrite()
	} else {
		err = f.checkRead()
	}
	if err != nil {
		return nil, err
	}
	if err := r.Check(true, dir); err != nil {
		return nil, err
	}
	if info, err := f.stat(); err != nil {
		return nil, actionError(err, op, f.path)
	} else if info.IsDir() {
		return nil, errors.WithContext(errors.Newf(errors.CodeWrongType, "%q is a directory", f.path), "path", f.path)
	}

	sub, err := f.fs.freeTargetDir(dir, opts.Length, opts.SingleDir)
	if err != nil {
		return nil, err
	}
	if err := f.fs.backend.MkdirAll(sub, f.fs.cfg.DirMode); err != nil {
		return nil, actionError(err, "mkdir", sub)
	}

	name := f.Base()
	if opts.Extension != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + strings.TrimPrefix(opts.Extension, ".")
	}
	dst := filepath.Join(sub, name)

	if move {
		if err := f.fs.move(f.path, dst); err != nil {
			return nil, err
		}
		f.path = dst
		f.restrictions = r
		f.target = dst
		f.Invalidate()
		return f, nil
	}

	info, err := f.fs.backend.Stat(f.path)
	if err != nil {
		return nil, actionError(err, "stat", f.path)
	}
	if err := f.fs.copyFile(f.path, dst, info.Mode().Perm()); err != nil {
		return nil, actionError(err, "copy", f.path)
	}
	f.target = dst
	return newFile(newPath(f.fs, dst, core.KindFile, r)), nil
}

// freeTargetDir generates random hex directories below dir until one does
// not exist yet.
func (f *FS) freeTargetDir(dir string, length int, single bool) (string, error) {
	for attempt := 0; attempt < f.cfg.TargetAttempts; attempt++ {
		name, err := randomHex(length)
		if err != nil {
			return "", errors.Wrap(err, errors.CodeInternal, "random source failed")
		}

		sub := name
		if !single {
			sub = strings.Join(strings.Split(name, ""), string(filepath.Separator))
		}
		candidate := filepath.Join(dir, sub)
		if _, err := f.backend.Lstat(candidate); errors.Is(err, core.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", errors.WithContext(
		errors.Newf(errors.CodeActionFailed, "no free target directory after %d attempts", f.cfg.TargetAttempts),
		"path", dir,
	)
}

func randomHex(length int) (string, error) {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:length], nil
}
