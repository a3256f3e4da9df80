package local

import (
	"archive/tar"
	"bufio"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
)

// Compression selects the stream compression of a tar archive.
type Compression int

const (
	// CompressionNone writes a plain tar archive.
	CompressionNone Compression = iota
	// CompressionGzip writes a gzip compressed archive.
	CompressionGzip
	// CompressionZstd writes a zstd compressed archive.
	CompressionZstd
)

// Extension returns the conventional file extension.
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".tar.gz"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Gzip compresses the file to name.gz and removes the original, like gzip(1).
func (f *File) Gzip() (_ *File, err error) {
	defer f.fs.observe("gzip", time.Now(), &err)

	dst := f.path + ".gz"
	if err := f.checkWrite(f.path, dst); err != nil {
		return nil, err
	}
	if err := f.checkNotDirectory(); err != nil {
		return nil, err
	}

	err = f.fs.transform(f.path, dst, func(w io.Writer, r io.Reader) error {
		gz := gzip.NewWriter(w)
		gz.Name = f.Base()
		if _, err := io.Copy(gz, r); err != nil {
			return err
		}
		return gz.Close()
	})
	if err != nil {
		return nil, err
	}
	if err := f.fs.backend.Remove(f.path); err != nil {
		return nil, actionError(err, "remove", f.path)
	}
	f.Invalidate()
	f.target = dst
	return newFile(newPath(f.fs, dst, core.KindFile, f.restrictions)), nil
}

// Gunzip decompresses a .gz file next to it and removes the original.
func (f *File) Gunzip() (_ *File, err error) {
	defer f.fs.observe("gunzip", time.Now(), &err)

	if !strings.HasSuffix(f.path, ".gz") {
		return nil, errors.WithContext(errors.Newf(errors.CodeActionFailed, "%q has no .gz suffix", f.path), "path", f.path)
	}
	dst := strings.TrimSuffix(f.path, ".gz")
	if err := f.checkWrite(f.path, dst); err != nil {
		return nil, err
	}

	err = f.fs.transform(f.path, dst, func(w io.Writer, r io.Reader) error {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return err
		}
		defer gz.Close()
		_, err = io.Copy(w, gz)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := f.fs.backend.Remove(f.path); err != nil {
		return nil, actionError(err, "remove", f.path)
	}
	f.Invalidate()
	f.target = dst
	return newFile(newPath(f.fs, dst, core.KindFile, f.restrictions)), nil
}

// transform streams src through fn into a temporary file renamed to dst
// once fn succeeds.
func (f *FS) transform(src, dst string, fn func(w io.Writer, r io.Reader) error) error {
	in, err := f.backend.Open(src)
	if err != nil {
		return actionError(err, "open", src)
	}
	defer in.Close()

	tmp, err := f.backend.TempFile(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return actionError(err, "create", dst)
	}
	tmpName := tmp.Name()

	werr := fn(tmp, in)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = f.backend.Remove(tmpName)
		return actionError(werr, "convert", src)
	}
	if err := f.backend.Chmod(tmpName, f.cfg.FileMode); err != nil {
		_ = f.backend.Remove(tmpName)
		return actionError(err, "chmod", tmpName)
	}
	if err := f.backend.Rename(tmpName, dst); err != nil {
		_ = f.backend.Remove(tmpName)
		return actionError(err, "rename", tmpName)
	}
	return nil
}

// TarOptions tunes Tar.
type TarOptions struct {
	Compression Compression
	// Target is the archive path. Empty means the path plus the extension
	// of the compression.
	Target string
}

// Tar archives the path, a file or a whole tree, into a new archive whose
// entries start with the base name. The source is kept.
func (p *Path) Tar(opts TarOptions) (_ *File, err error) {
	defer p.fs.observe("tar", time.Now(), &err)

	dst := opts.Target
	if dst == "" {
		dst = p.path + opts.Compression.Extension()
	}
	dst, err = p.fs.absolute(dst, filepath.Dir(p.path))
	if err != nil {
		return nil, err
	}
	if err := p.checkRead(); err != nil {
		return nil, err
	}
	if err := p.checkWrite(dst); err != nil {
		return nil, err
	}
	if _, err := p.fs.backend.Lstat(p.path); err != nil {
		return nil, actionError(err, "tar", p.path)
	}

	out, err := p.fs.backend.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, p.fs.cfg.FileMode)
	if err != nil {
		return nil, actionError(err, "create", dst)
	}
	werr := p.writeTar(out, opts.Compression)
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = p.fs.backend.Remove(dst)
		return nil, actionError(werr, "tar", p.path)
	}

	p.target = dst
	p.log().Debug("archived", zap.String("target", dst))
	return newFile(newPath(p.fs, dst, core.KindFile, p.restrictions)), nil
}

func (p *Path) writeTar(w io.Writer, c Compression) error {
	var closer io.Closer
	switch c {
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		w, closer = gz, gz
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return err
		}
		w, closer = enc, enc
	}

	tw := tar.NewWriter(w)
	base := filepath.Dir(p.path)
	err := p.fs.backend.Walk(p.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = p.fs.backend.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		in, err := p.fs.backend.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// ExtractOptions tunes Untar and Unzip.
type ExtractOptions struct {
	// Target is the directory to extract into. Empty means the directory
	// containing the archive.
	Target string
}

// Untar extracts a plain, gzip or zstd compressed tar archive. The
// compression is detected from the content. Entries escaping the target
// fail the extraction.
func (f *File) Untar(opts ExtractOptions) (_ *Directory, err error) {
	defer f.fs.observe("untar", time.Now(), &err)

	root, err := f.extractRoot(opts)
	if err != nil {
		return nil, err
	}

	in, err := f.fs.backend.Open(f.path)
	if err != nil {
		return nil, actionError(err, "open", f.path)
	}
	defer in.Close()

	br := bufio.NewReader(in)
	magic, _ := br.Peek(len(zstdMagic))
	var r io.Reader = br
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, actionError(err, "untar", f.path)
		}
		defer gz.Close()
		r = gz
	case bytes.HasPrefix(magic, zstdMagic):
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, actionError(err, "untar", f.path)
		}
		defer dec.Close()
		r = dec
	}

	realRoot := resolveExisting(root)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, actionError(err, "untar", f.path)
		}
		if err := f.extractEntry(root, realRoot, hdr, tr); err != nil {
			return nil, err
		}
	}

	f.target = root
	return newDirectory(newPath(f.fs, root, core.KindDirectory, f.restrictions)), nil
}

func (f *File) extractEntry(root, realRoot string, hdr *tar.Header, r io.Reader) error {
	mode := fs.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		full, err := f.extractTarget(root, realRoot, hdr.Name, true)
		if err != nil {
			return err
		}
		if err := f.fs.backend.MkdirAll(full, mode|0o700); err != nil {
			return actionError(err, "mkdir", full)
		}
	case tar.TypeReg:
		full, err := f.extractTarget(root, realRoot, hdr.Name, false)
		if err != nil {
			return err
		}
		if err := f.fs.extractFile(full, mode, r); err != nil {
			return err
		}
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return escapeError(hdr.Name)
		}
		full, err := f.extractTarget(root, realRoot, hdr.Name, false)
		if err != nil {
			return err
		}
		// The link is resolved from where it will really live, so links
		// extracted earlier cannot be chained out of the target.
		dest := resolveExisting(filepath.Join(resolveExisting(filepath.Dir(full)), hdr.Linkname))
		if !within(realRoot, dest) {
			return escapeError(hdr.Name)
		}
		if err := f.fs.backend.MkdirAll(filepath.Dir(full), f.fs.cfg.DirMode); err != nil {
			return actionError(err, "mkdir", filepath.Dir(full))
		}
		if err := f.fs.backend.Symlink(hdr.Linkname, full); err != nil {
			return actionError(err, "symlink", full)
		}
	default:
		f.log().Debug("skipping archive entry", zap.String("entry", hdr.Name), zap.Uint8("type", hdr.Typeflag))
	}
	return nil
}

// extractTarget returns where member is written below root. Existing links
// on the way are resolved: the real location must stay below realRoot and
// be writable. A final link is followed only for directories.
func (f *File) extractTarget(root, realRoot, member string, dir bool) (string, error) {
	full, err := safeJoin(root, member)
	if err != nil {
		return "", err
	}

	var resolved string
	if dir {
		resolved = resolveExisting(full)
	} else {
		resolved = filepath.Join(resolveExisting(filepath.Dir(full)), filepath.Base(full))
	}
	if !within(realRoot, resolved) {
		return "", escapeError(member)
	}
	if err := f.checkWrite(resolved); err != nil {
		return "", err
	}
	return full, nil
}

// Unzip extracts a zip archive. Entries escaping the target fail the
// extraction.
func (f *File) Unzip(opts ExtractOptions) (_ *Directory, err error) {
	defer f.fs.observe("unzip", time.Now(), &err)

	root, err := f.extractRoot(opts)
	if err != nil {
		return nil, err
	}

	info, err := f.fs.backend.Stat(f.path)
	if err != nil {
		return nil, actionError(err, "stat", f.path)
	}
	in, err := f.fs.backend.Open(f.path)
	if err != nil {
		return nil, actionError(err, "open", f.path)
	}
	defer in.Close()

	zr, err := zip.NewReader(in, info.Size())
	if err != nil {
		return nil, actionError(err, "unzip", f.path)
	}
	realRoot := resolveExisting(root)
	for _, entry := range zr.File {
		full, err := f.extractTarget(root, realRoot, entry.Name, entry.FileInfo().IsDir())
		if err != nil {
			return nil, err
		}
		if entry.FileInfo().IsDir() {
			if err := f.fs.backend.MkdirAll(full, entry.Mode().Perm()|0o700); err != nil {
				return nil, actionError(err, "mkdir", full)
			}
			continue
		}
		if !entry.Mode().IsRegular() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, actionError(err, "unzip", entry.Name)
		}
		err = f.fs.extractFile(full, entry.Mode().Perm(), rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}

	f.target = root
	return newDirectory(newPath(f.fs, root, core.KindDirectory, f.restrictions)), nil
}

// extractRoot checks the archive and returns the write-checked target.
func (f *File) extractRoot(opts ExtractOptions) (string, error) {
	root := opts.Target
	if root == "" {
		root = filepath.Dir(f.path)
	}
	root, err := f.fs.absolute(root, filepath.Dir(f.path))
	if err != nil {
		return "", err
	}
	if err := f.checkRead(); err != nil {
		return "", err
	}
	if err := f.checkNotDirectory(); err != nil {
		return "", err
	}
	if err := f.checkWrite(root); err != nil {
		return "", err
	}
	if err := f.fs.backend.MkdirAll(root, f.fs.cfg.DirMode); err != nil {
		return "", actionError(err, "mkdir", root)
	}
	return root, nil
}

func (f *FS) extractFile(path string, mode fs.FileMode, r io.Reader) error {
	if err := f.backend.MkdirAll(filepath.Dir(path), f.cfg.DirMode); err != nil {
		return actionError(err, "mkdir", filepath.Dir(path))
	}
	// An existing link is replaced, never written through.
	if info, err := f.backend.Lstat(path); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := f.backend.Remove(path); err != nil {
			return actionError(err, "remove", path)
		}
	}
	out, err := f.backend.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return actionError(err, "create", path)
	}
	_, werr := io.Copy(out, r)
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return actionError(werr, "extract", path)
	}
	return nil
}

// safeJoin joins member to root and fails when the result leaves root.
func safeJoin(root, member string) (string, error) {
	full := filepath.Join(root, filepath.FromSlash(member))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", escapeError(member)
	}
	return full, nil
}

func escapeError(member string) error {
	return errors.WithContext(
		errors.Newf(errors.CodeActionFailed, "archive entry %q escapes the target directory", member),
		"entry", member,
	)
}
