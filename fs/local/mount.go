package local

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Capmega/phoundation-sub014/errors"
)

// MountState is the result of a mount query.
type MountState int

const (
	// NotMounted means nothing is mounted on the directory.
	NotMounted MountState = iota
	// Mounted means a mount is present and consistent.
	Mounted
	// MountedWithIssues means a mount is present but its source differs
	// from the expected ones, or the not-mounted marker is still visible.
	MountedWithIssues
)

func (s MountState) String() string {
	switch s {
	case Mounted:
		return "mounted"
	case MountedWithIssues:
		return "mounted_with_issues"
	default:
		return "not_mounted"
	}
}

// mountState queries the mount table for dir. It never changes any state.
func (f *FS) mountState(ctx context.Context, dir string, sources []string) (MountState, error) {
	parts, err := f.partitions(ctx, true)
	if err != nil {
		return NotMounted, errors.WithContext(errors.Wrap(err, errors.CodeActionFailed, "failed to list mounts"), "path", dir)
	}

	state := NotMounted
	for _, part := range parts {
		if filepath.Clean(part.Mountpoint) != dir {
			continue
		}
		state = Mounted
		if len(sources) > 0 && !contains(sources, part.Device) {
			state = MountedWithIssues
		}
	}
	if state == Mounted && f.cfg.NotMountedMarker != "" {
		if _, err := f.backend.Lstat(filepath.Join(dir, f.cfg.NotMountedMarker)); err == nil {
			state = MountedWithIssues
		}
	}

	f.metrics.MountCheck(state.String())
	return state, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// autoMount mounts every declared mount point at or above path that is
// not mounted yet.
func (f *FS) autoMount(path string) error {
	for _, mp := range f.mounts {
		if path != mp.Path && !strings.HasPrefix(path, strings.TrimSuffix(mp.Path, "/")+"/") {
			continue
		}
		var sources []string
		if mp.Source != "" {
			sources = []string{mp.Source}
		}
		state, err := f.mountState(context.Background(), mp.Path, sources)
		if err != nil {
			return err
		}
		if state != NotMounted {
			continue
		}
		f.logger.Info("auto mounting", zap.String("mount_point", mp.Path), zap.String("source", mp.Source))
		if err := f.mount(mp); err != nil {
			return err
		}
	}
	return nil
}

func (f *FS) mount(mp MountPoint) error {
	args := []string{"mount"}
	if mp.Bind {
		args = append(args, "--bind")
	} else {
		if mp.FSType != "" {
			args = append(args, "-t", mp.FSType)
		}
		if len(mp.Options) > 0 {
			args = append(args, "-o", strings.Join(mp.Options, ","))
		}
	}
	return f.run(mp.Sudo, append(args, mp.Source, mp.Path)...)
}

// IsMounted queries the mount table. With sources the mounted device must
// be one of them, else the state is MountedWithIssues. The query has no
// side effects and re-reads the mount table on every call.
func (d *Directory) IsMounted(sources ...string) (MountState, error) {
	if err := d.checkRead(); err != nil {
		return NotMounted, err
	}
	return d.fs.mountState(context.Background(), d.path, sources)
}

// CheckMounted fails with CodeNotMounted when nothing is mounted.
func (d *Directory) CheckMounted(sources ...string) error {
	state, err := d.IsMounted(sources...)
	if err != nil {
		return err
	}
	if state == NotMounted {
		return errors.WithContext(errors.Newf(errors.CodeNotMounted, "%q is not mounted", d.path), "path", d.path)
	}
	if state == MountedWithIssues {
		d.log().Warn("mount has issues", zap.Strings("sources", sources))
	}
	return nil
}

// MountOptions describes a mount.
type MountOptions struct {
	Source  string
	FSType  string
	Options []string
	Sudo    bool
}

// EnsureMounted mounts opts.Source unless something is mounted already.
// An inconsistent mount is logged and left alone.
func (d *Directory) EnsureMounted(opts MountOptions) error {
	var sources []string
	if opts.Source != "" {
		sources = []string{opts.Source}
	}
	state, err := d.IsMounted(sources...)
	if err != nil {
		return err
	}
	switch state {
	case Mounted:
		return nil
	case MountedWithIssues:
		d.log().Warn("mount has issues, leaving it", zap.String("source", opts.Source))
		return nil
	}
	return d.Mount(opts)
}

// Mount mounts opts.Source on the directory.
func (d *Directory) Mount(opts MountOptions) (err error) {
	defer d.fs.observe("mount", time.Now(), &err)
	return d.mountWith(MountPoint{Source: opts.Source, FSType: opts.FSType, Options: opts.Options, Sudo: opts.Sudo})
}

// Bind bind-mounts source on the directory.
func (d *Directory) Bind(source string, sudo bool) (err error) {
	defer d.fs.observe("bind", time.Now(), &err)
	return d.mountWith(MountPoint{Source: source, Bind: true, Sudo: sudo})
}

func (d *Directory) mountWith(mp MountPoint) error {
	if mp.Source == "" {
		return errors.New(errors.CodeOutOfBounds, "mount source is empty")
	}
	if err := d.checkWrite(); err != nil {
		return err
	}
	if mp.Bind {
		if err := d.checkRead(mp.Source); err != nil {
			return err
		}
	}
	mp.Path = d.path
	defer d.Reload()
	return d.fs.mount(mp)
}

// Unmount unmounts the directory.
func (d *Directory) Unmount(sudo bool) (err error) {
	defer d.fs.observe("unmount", time.Now(), &err)
	if err := d.checkWrite(); err != nil {
		return err
	}
	defer d.Reload()
	return d.fs.run(sudo, "umount", d.path)
}

// Unbind removes a bind mount from the directory.
func (d *Directory) Unbind(sudo bool) error {
	return d.Unmount(sudo)
}
