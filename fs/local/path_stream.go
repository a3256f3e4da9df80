package local

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
)

var openFlags = map[string]int{
	"r":  os.O_RDONLY,
	"r+": os.O_RDWR,
	"w":  os.O_WRONLY | os.O_CREATE | os.O_TRUNC,
	"w+": os.O_RDWR | os.O_CREATE | os.O_TRUNC,
	"a":  os.O_WRONLY | os.O_CREATE | os.O_APPEND,
	"a+": os.O_RDWR | os.O_CREATE | os.O_APPEND,
	"x":  os.O_WRONLY | os.O_CREATE | os.O_EXCL,
	"x+": os.O_RDWR | os.O_CREATE | os.O_EXCL,
}

// Open opens the stream in one of the fopen(3) modes r, r+, w, w+, a, a+,
// x or x+. Every mode except r requires write restrictions.
func (p *Path) Open(mode string) error {
	flag, ok := openFlags[mode]
	if !ok {
		return errors.Newf(errors.CodeOutOfBounds, "unknown open mode %q", mode)
	}
	if p.stream != nil {
		return errors.WithContext(errors.Newf(errors.CodeFileAlreadyOpen, "%q is already open in mode %q", p.path, p.mode), "path", p.path)
	}
	write := mode != "r"
	if err := p.restrictions.Check(write, p.path); err != nil {
		return err
	}
	if info, err := p.stat(); err == nil && info.IsDir() {
		return errors.WithContext(errors.Newf(errors.CodeWrongType, "cannot open directory %q", p.path), "path", p.path)
	}

	f, err := p.fs.backend.OpenFile(p.path, flag, p.fs.cfg.FileMode)
	if err != nil {
		return actionError(err, "open", p.path)
	}

	p.stream = f
	p.mode = mode
	p.reader = nil
	if write {
		p.Invalidate()
	}
	return nil
}

// IsOpen reports whether the stream is open.
func (p *Path) IsOpen() bool { return p.stream != nil }

// Close closes the stream. Closing a closed handle is a no-op. A locked
// stream is only closed with force, which releases the lock first.
func (p *Path) Close(force bool) error {
	if p.stream == nil {
		return nil
	}
	if p.locked {
		if !force {
			return errors.WithContext(errors.Newf(errors.CodeActionFailed, "%q is locked, close with force", p.path), "path", p.path)
		}
		if err := p.Unlock(); err != nil {
			return err
		}
	}

	err := p.stream.Close()
	p.stream = nil
	p.reader = nil
	p.mode = ""
	p.Invalidate()
	if err != nil {
		return actionError(err, "close", p.path)
	}
	return nil
}

func (p *Path) requireOpen() error {
	if p.stream == nil {
		return errors.WithContext(errors.Newf(errors.CodeFileNotOpen, "%q is not open", p.path), "path", p.path)
	}
	return nil
}

// Lock takes an exclusive advisory lock on the open stream.
func (p *Path) Lock() error {
	if err := p.requireOpen(); err != nil {
		return err
	}
	if err := p.stream.Lock(); err != nil {
		return actionError(err, "lock", p.path)
	}
	p.locked = true
	return nil
}

// Unlock releases the advisory lock.
func (p *Path) Unlock() error {
	if err := p.requireOpen(); err != nil {
		return err
	}
	if !p.locked {
		return nil
	}
	if err := p.stream.Unlock(); err != nil {
		return actionError(err, "unlock", p.path)
	}
	p.locked = false
	return nil
}

func (p *Path) buffered() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.stream)
	}
	return p.reader
}

// Read reads from the open stream. It returns io.EOF at the end.
func (p *Path) Read(b []byte) (int, error) {
	if err := p.requireOpen(); err != nil {
		return 0, err
	}
	n, err := p.buffered().Read(b)
	if err != nil && err != io.EOF {
		return n, actionError(err, "read", p.path)
	}
	return n, err
}

// ReadLine returns the next line without its terminator. Lines longer than
// the configured maximum are truncated and the rest is discarded. It
// returns io.EOF when no data is left.
func (p *Path) ReadLine() (string, error) {
	if err := p.requireOpen(); err != nil {
		return "", err
	}
	line, err := readLine(p.buffered(), p.fs.cfg.MaxLineLength)
	if err != nil && err != io.EOF {
		return "", actionError(err, "read line", p.path)
	}
	return line, err
}

// readLine reads up to and including '\n', keeping at most max bytes.
func readLine(r *bufio.Reader, max int) (string, error) {
	var buf []byte
	read := 0
	for {
		frag, err := r.ReadSlice('\n')
		read += len(frag)
		if room := max - len(buf); room > 0 {
			buf = append(buf, frag[:min(len(frag), room)]...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && (err != io.EOF || read == 0) {
			return "", err
		}
		break
	}
	line := strings.TrimSuffix(string(buf), "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// ReadCSV reads the next line and parses it as one CSV record. A zero
// separator means a comma.
func (p *Path) ReadCSV(separator rune) ([]string, error) {
	line, err := p.ReadLine()
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if separator != 0 {
		r.Comma = separator
	}
	record, err := r.Read()
	if err == io.EOF {
		return []string{}, nil
	}
	if err != nil {
		return nil, actionError(err, "parse csv", p.path)
	}
	return record, nil
}

// ReadCharacter reads the next UTF-8 character.
func (p *Path) ReadCharacter() (rune, error) {
	if err := p.requireOpen(); err != nil {
		return 0, err
	}
	c, _, err := p.buffered().ReadRune()
	if err != nil && err != io.EOF {
		return 0, actionError(err, "read character", p.path)
	}
	return c, err
}

// ReadBytes reads n bytes at offset from a closed handle. It opens and
// closes the file itself and fails with CodeFileAlreadyOpen when the
// stream is open. Fewer bytes are returned near the end of the file.
func (p *Path) ReadBytes(offset int64, n int) ([]byte, error) {
	if offset < 0 || n < 0 {
		return nil, errors.Newf(errors.CodeOutOfBounds, "invalid offset %d or length %d", offset, n)
	}
	if p.stream != nil {
		return nil, errors.WithContext(errors.Newf(errors.CodeFileAlreadyOpen, "%q is open, ReadBytes needs a closed handle", p.path), "path", p.path)
	}
	if err := p.checkRead(); err != nil {
		return nil, err
	}

	f, err := p.fs.backend.Open(p.path)
	if err != nil {
		return nil, actionError(err, "open", p.path)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, actionError(err, "read", p.path)
	}
	return buf[:read], nil
}

// ReadAll returns the rest of the open stream, or the whole file when the
// handle is closed.
func (p *Path) ReadAll() ([]byte, error) {
	if p.stream != nil {
		data, err := io.ReadAll(p.buffered())
		if err != nil {
			return nil, actionError(err, "read", p.path)
		}
		return data, nil
	}
	if err := p.checkRead(); err != nil {
		return nil, err
	}
	data, err := p.fs.backend.ReadFile(p.path)
	if err != nil {
		return nil, actionError(err, "read", p.path)
	}
	return data, nil
}

// Seek moves the stream position.
func (p *Path) Seek(offset int64, whence int) (int64, error) {
	if err := p.requireOpen(); err != nil {
		return 0, err
	}
	if whence == io.SeekCurrent && p.reader != nil {
		offset -= int64(p.reader.Buffered())
	}
	pos, err := p.stream.Seek(offset, whence)
	if err != nil {
		return 0, actionError(err, "seek", p.path)
	}
	p.reader = nil
	return pos, nil
}

// Tell returns the logical stream position.
func (p *Path) Tell() (int64, error) {
	if err := p.requireOpen(); err != nil {
		return 0, err
	}
	pos, err := p.stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, actionError(err, "tell", p.path)
	}
	if p.reader != nil {
		pos -= int64(p.reader.Buffered())
	}
	return pos, nil
}

// Truncate changes the file size. It uses the open stream when there is one.
func (p *Path) Truncate(size int64) error {
	if size < 0 {
		return errors.Newf(errors.CodeOutOfBounds, "invalid size %d", size)
	}
	if err := p.checkWrite(); err != nil {
		return err
	}

	f := p.stream
	if f == nil {
		opened, err := p.fs.backend.OpenFile(p.path, os.O_WRONLY, 0)
		if err != nil {
			return actionError(err, "open", p.path)
		}
		defer opened.Close()
		f = opened
	}

	t, ok := f.(core.Truncater)
	if !ok {
		return errors.Wrap(core.ErrUnsupported, errors.CodeActionFailed, "backend cannot truncate")
	}
	if err := t.Truncate(size); err != nil {
		return actionError(err, "truncate", p.path)
	}
	p.Invalidate()
	return nil
}

// Write writes to the open stream. Data buffered by earlier reads is
// discarded so the write lands at the logical position.
func (p *Path) Write(b []byte) (int, error) {
	if err := p.requireOpen(); err != nil {
		return 0, err
	}
	if p.mode == "r" {
		return 0, errors.WithContext(errors.Newf(errors.CodeActionFailed, "%q is open read-only", p.path), "path", p.path)
	}
	if err := p.checkWrite(); err != nil {
		return 0, err
	}
	if p.reader != nil {
		if _, err := p.Seek(0, io.SeekCurrent); err != nil {
			return 0, err
		}
	}

	n, err := p.stream.Write(b)
	p.Invalidate()
	if err != nil {
		return n, actionError(err, "write", p.path)
	}
	return n, nil
}

// AppendData writes data at the end of the file. A closed handle is opened
// for appending and closed again afterwards.
func (p *Path) AppendData(data []byte) error {
	return p.appending(func() error {
		_, err := p.Write(data)
		return err
	})
}

// appending runs fn with the stream positioned at the end of the file.
func (p *Path) appending(fn func() error) (err error) {
	if err := p.checkWrite(); err != nil {
		return err
	}
	if p.stream == nil {
		if err := p.Open("a"); err != nil {
			return err
		}
		defer func() {
			if cerr := p.Close(false); err == nil {
				err = cerr
			}
		}()
	} else if _, err := p.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return fn()
}

// PutContents replaces the whole content atomically. Data is written to a
// temporary file beside the target, synced and renamed over it. Missing
// parent directories are created and the existing mode is kept.
func (p *Path) PutContents(data []byte) (err error) {
	defer p.fs.observe("put_contents", time.Now(), &err)

	if p.stream != nil {
		return errors.WithContext(errors.Newf(errors.CodeFileAlreadyOpen, "%q is open", p.path), "path", p.path)
	}
	if err := p.checkWrite(); err != nil {
		return err
	}
	if err := p.fs.ensureParent(p.path, p.restrictions); err != nil {
		return err
	}

	perm := p.fs.cfg.FileMode
	if info, err := p.fs.backend.Stat(p.path); err == nil {
		if info.IsDir() {
			return errors.WithContext(errors.Newf(errors.CodeWrongType, "%q is a directory", p.path), "path", p.path)
		}
		perm = info.Mode().Perm()
	}

	tmp := filepath.Join(filepath.Dir(p.path), "."+p.Base()+"."+uuid.NewString()+".tmp")
	defer func() {
		if err != nil {
			_ = p.fs.backend.Remove(tmp)
		}
	}()

	f, err := p.fs.backend.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return actionError(err, "create", tmp)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return actionError(err, "write", tmp)
	}
	if s, ok := f.(core.Syncer); ok {
		if err := s.Sync(); err != nil {
			f.Close()
			return actionError(err, "sync", tmp)
		}
	}
	if err := f.Close(); err != nil {
		return actionError(err, "close", tmp)
	}
	if err := p.fs.backend.Chmod(tmp, perm); err != nil {
		return actionError(err, "chmod", tmp)
	}
	if err := p.fs.backend.Rename(tmp, p.path); err != nil {
		return actionError(err, "rename", tmp)
	}

	p.log().Debug("replaced contents", zap.Int("bytes", len(data)))
	p.Invalidate()
	return nil
}
