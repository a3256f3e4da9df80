package local

import (
	"path/filepath"

	"github.com/Capmega/phoundation-sub014/config"
	"github.com/Capmega/phoundation-sub014/exec"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
	"github.com/Capmega/phoundation-sub014/log"
	"github.com/Capmega/phoundation-sub014/metrics"
)

// Option configures an FS.
type Option func(*FS)

// WithBackend replaces the syscall backend.
func WithBackend(b core.Backend) Option {
	return func(f *FS) {
		f.backend = b
	}
}

// WithExecutor replaces the executor used for mount, umount, shred and
// privileged tool invocations.
func WithExecutor(x exec.Executor) Option {
	return func(f *FS) {
		f.executor = x
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *FS) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(f *FS) {
		f.metrics = c
	}
}

// WithConfig applies the filesystem and system sections of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(f *FS) {
		if cfg == nil {
			return
		}
		f.cfg = cfg.FS
		f.systemCfg = cfg.System
	}
}

// WithSystemRestrictions overrides the restrictions built from configuration.
func WithSystemRestrictions(r *restrict.Restrictions) Option {
	return func(f *FS) {
		f.system = r
	}
}

// WithPartitions replaces the mount table source.
func WithPartitions(l PartitionLister) Option {
	return func(f *FS) {
		f.partitions = l
	}
}

// WithMountPoints declares mount points for on-demand mounting.
func WithMountPoints(mounts ...MountPoint) Option {
	return func(f *FS) {
		for _, m := range mounts {
			m.Path = filepath.Clean(m.Path)
			f.mounts = append(f.mounts, m)
		}
	}
}

// WithRoot sets the default prefix for relative paths.
func WithRoot(dir string) Option {
	return func(f *FS) {
		f.root = filepath.Clean(dir)
	}
}
