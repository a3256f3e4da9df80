package local

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/log"
)

// runFile returns the marker location guarding operations on path.
func (f *FS) runFile(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(f.cfg.RunDir, hex.EncodeToString(sum[:16]))
}

// acquireRunFile creates the marker for path. An existing marker means
// another operation on the same path is in progress. The returned release
// removes the marker.
func (f *FS) acquireRunFile(path string) (func(), error) {
	marker := f.runFile(path)
	if err := f.backend.MkdirAll(f.cfg.RunDir, 0o700); err != nil {
		return nil, actionError(err, "mkdir", f.cfg.RunDir)
	}

	file, err := f.backend.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, errors.WithClassification(errors.WithContextMap(
				errors.Newf(errors.CodeActionFailed, "operation on %q already in progress", path),
				map[string]interface{}{"path": path, "run_file": marker},
			), errors.ClassificationRetryable)
		}
		return nil, actionError(err, "create run file", marker)
	}
	_, werr := file.Write([]byte(path + "\n" + uuid.NewString() + "\n"))
	if cerr := file.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = f.backend.Remove(marker)
		return nil, actionError(werr, "write run file", marker)
	}

	return func() {
		if err := f.backend.Remove(marker); err != nil {
			f.logger.Warn("failed to remove run file", log.Path(marker))
		}
	}, nil
}
