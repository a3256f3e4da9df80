package local

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/config"
	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/exec"
	"github.com/Capmega/phoundation-sub014/fs/billy"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
	"github.com/Capmega/phoundation-sub014/log"
	"github.com/Capmega/phoundation-sub014/metrics"
)

// PartitionLister returns the mounted partitions. It has the signature of
// disk.PartitionsWithContext.
type PartitionLister func(ctx context.Context, all bool) ([]disk.PartitionStat, error)

// MountPoint declares a directory that is expected to carry a mount.
// Exists mounts declared points on demand.
type MountPoint struct {
	Path    string
	Source  string
	FSType  string
	Options []string
	// Bind mounts Source onto Path with --bind.
	Bind bool
	Sudo bool
}

// FS creates path handles and holds the collaborators they share.
type FS struct {
	backend    core.Backend
	executor   exec.Executor
	logger     *log.Logger
	metrics    *metrics.Collector
	cfg        config.FSConfig
	systemCfg  config.SystemConfig
	system     *restrict.Restrictions
	partitions PartitionLister
	mounts     []MountPoint
	root       string
}

// New creates an FS. Without options it uses the billy backend rooted at
// "/", a real command executor, a no-op logger and the default configuration.
func New(opts ...Option) *FS {
	defaults := config.Default()
	f := &FS{
		backend:    billy.NewLocal(),
		logger:     log.NewNop(),
		cfg:        defaults.FS,
		systemCfg:  defaults.System,
		partitions: disk.PartitionsWithContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.executor == nil {
		f.executor = exec.New(exec.WithTimeout(f.cfg.ToolTimeout), exec.WithInheritEnv())
	}
	if f.system == nil {
		f.system = restrict.FromConfig(f.systemCfg)
	}
	f.system = f.system.WithMetrics(f.metrics)
	f.logger = f.logger.Named("fs")
	return f
}

// Backend returns the syscall backend.
func (f *FS) Backend() core.Backend { return f.backend }

// Logger returns the logger shared by all handles.
func (f *FS) Logger() *log.Logger { return f.logger }

// Config returns the filesystem configuration.
func (f *FS) Config() config.FSConfig { return f.cfg }

// System returns the process-wide default restrictions.
func (f *FS) System() *restrict.Restrictions { return f.system }

// MountPoints returns the declared mount points.
func (f *FS) MountPoints() []MountPoint {
	return append([]MountPoint(nil), f.mounts...)
}

type pathOptions struct {
	prefix    string
	mustExist bool
}

// PathOption configures handle construction.
type PathOption func(*pathOptions)

// WithAbsolutePrefix resolves a relative path against prefix.
func WithAbsolutePrefix(prefix string) PathOption {
	return func(o *pathOptions) {
		o.prefix = prefix
	}
}

// MustExist fails construction with CodePathNotFound when the path is absent.
func MustExist() PathOption {
	return func(o *pathOptions) {
		o.mustExist = true
	}
}

// Path creates a handle of unknown type. Nil restrictions fall back to System.
func (f *FS) Path(path string, r *restrict.Restrictions, opts ...PathOption) (*Path, error) {
	return f.newPath(path, core.KindPath, r, opts...)
}

// File creates a file handle.
func (f *FS) File(path string, r *restrict.Restrictions, opts ...PathOption) (*File, error) {
	p, err := f.newPath(path, core.KindFile, r, opts...)
	if err != nil {
		return nil, err
	}
	return newFile(p), nil
}

// Directory creates a directory handle.
func (f *FS) Directory(path string, r *restrict.Restrictions, opts ...PathOption) (*Directory, error) {
	p, err := f.newPath(path, core.KindDirectory, r, opts...)
	if err != nil {
		return nil, err
	}
	return newDirectory(p), nil
}

func (f *FS) newPath(raw string, kind core.Kind, r *restrict.Restrictions, opts ...PathOption) (*Path, error) {
	var o pathOptions
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := f.absolute(raw, o.prefix)
	if err != nil {
		return nil, err
	}

	if r == nil {
		r = f.system
	}

	p := newPath(f, abs, kind, r)
	if o.mustExist {
		if _, err := f.backend.Lstat(abs); err != nil {
			return nil, errors.WithContext(
				errors.Wrapf(err, errors.CodePathNotFound, "path %q does not exist", abs),
				"path", abs,
			)
		}
	}
	return p, nil
}

// absolute cleans raw and resolves it against prefix, or the FS root when
// prefix is empty.
func (f *FS) absolute(raw, prefix string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New(errors.CodeOutOfBounds, "empty path")
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw), nil
	}
	if prefix == "" {
		prefix = f.root
	}
	if prefix == "" || !filepath.IsAbs(prefix) {
		return "", errors.WithContext(
			errors.Newf(errors.CodeOutOfBounds, "relative path %q needs an absolute prefix", raw),
			"path", raw,
		)
	}
	return filepath.Join(prefix, raw), nil
}

// run executes a tool collaborator, prefixed with the sudo command when
// sudo is set. Failures are reported as CodeActionFailed.
func (f *FS) run(sudo bool, args ...string) error {
	var x exec.Executor = f.executor
	if sudo {
		x = exec.NewWrapper(f.executor, f.cfg.Sudo...)
	}

	f.logger.Info("running tool", zap.Strings("args", args), zap.Bool("sudo", sudo))
	if _, err := x.Run(args...); err != nil {
		fields := map[string]interface{}{"command": strings.Join(args, " ")}
		var ee *exec.ExecError
		if errors.As(err, &ee) {
			fields["exit_code"] = ee.ExitCode
			fields["stderr"] = strings.TrimSpace(ee.Stderr)
		}
		// Tools such as mount and umount fail on busy devices that free up later.
		return errors.WithClassification(
			errors.WithContextMap(errors.Wrapf(err, errors.CodeActionFailed, "%s failed", args[0]), fields),
			errors.ClassificationRetryable,
		)
	}
	return nil
}
