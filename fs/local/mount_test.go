package local

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/metrics"
)

func mounted(parts ...disk.PartitionStat) Option {
	return WithPartitions(func(context.Context, bool) ([]disk.PartitionStat, error) {
		return parts, nil
	})
}

func TestMountState_String(t *testing.T) {
	require.Equal(t, "not_mounted", NotMounted.String())
	require.Equal(t, "mounted", Mounted.String())
	require.Equal(t, "mounted_with_issues", MountedWithIssues.String())
}

func TestDirectory_IsMounted(t *testing.T) {
	base := newEnv(t)
	mnt := base.path("mnt")
	writeFile(t, base.path("marked", base.cfg.FS.NotMountedMarker), "")

	env := base.with(mounted(
		disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: mnt, Fstype: "ext4"},
		disk.PartitionStat{Device: "/dev/sdc1", Mountpoint: base.path("marked") + "/"},
	))

	tests := []struct {
		name    string
		dir     string
		sources []string
		want    MountState
	}{
		{"mounted", "mnt", nil, Mounted},
		{"expected source", "mnt", []string{"/dev/sda1", "/dev/sdb1"}, Mounted},
		{"other source", "mnt", []string{"/dev/sda1"}, MountedWithIssues},
		{"marker visible", "marked", nil, MountedWithIssues},
		{"not mounted", "empty", nil, NotMounted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := env.dir(t, tt.dir).IsMounted(tt.sources...)
			require.NoError(t, err)
			require.Equal(t, tt.want, state)
		})
	}
}

func TestDirectory_IsMountedReadOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	base := newEnv(t)
	env := base.with(
		mounted(disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: base.path("mnt")}),
		WithMetrics(collector),
	)
	d := env.dir(t, "mnt")

	for i := 0; i < 100; i++ {
		state, err := d.IsMounted("/dev/sdb1")
		require.NoError(t, err)
		require.Equal(t, Mounted, state)
	}
	require.Empty(t, env.recorder.Calls())

	expected := `
# HELP phofs_mount_checks_total Total number of mount state queries by result
# TYPE phofs_mount_checks_total counter
phofs_mount_checks_total{state="mounted"} 100
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "phofs_mount_checks_total"))
}

func TestDirectory_IsMountedListFailure(t *testing.T) {
	env := newEnv(t).with(WithPartitions(func(context.Context, bool) ([]disk.PartitionStat, error) {
		return nil, fmt.Errorf("proc not available")
	}))

	_, err := env.dir(t, "mnt").IsMounted()
	require.Equal(t, errors.CodeActionFailed, errors.GetCode(err))
}

func TestDirectory_CheckMounted(t *testing.T) {
	base := newEnv(t)
	env := base.with(mounted(disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: base.path("mnt")}))

	err := env.dir(t, "other").CheckMounted()
	require.Equal(t, errors.CodeNotMounted, errors.GetCode(err))

	require.NoError(t, env.dir(t, "mnt").CheckMounted())
	require.NoError(t, env.dir(t, "mnt").CheckMounted("/dev/sdz9"))
	require.Equal(t, 1, env.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("mount has issues").Len())
}

func TestDirectory_EnsureMounted(t *testing.T) {
	base := newEnv(t)
	env := base.with(mounted(disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: base.path("busy")}))

	require.NoError(t, env.dir(t, "busy").EnsureMounted(MountOptions{Source: "/dev/sdb1"}))
	require.NoError(t, env.dir(t, "busy").EnsureMounted(MountOptions{Source: "/dev/sdc1"}))
	require.Empty(t, env.recorder.Calls())

	require.NoError(t, env.dir(t, "data").EnsureMounted(MountOptions{
		Source:  "/dev/sdc1",
		FSType:  "ext4",
		Options: []string{"ro", "noexec"},
		Sudo:    true,
	}))
	require.Equal(t, []string{"sudo mount -t ext4 -o ro,noexec /dev/sdc1 " + env.path("data")}, env.recorder.Cmdlines())
}

func TestDirectory_MountCommands(t *testing.T) {
	env := newEnv(t)
	writeFile(t, env.path("src", "file"), "x")

	require.NoError(t, env.dir(t, "target").Bind(env.path("src"), false))
	require.NoError(t, env.dir(t, "target").Unbind(true))
	require.NoError(t, env.dir(t, "nfs").Mount(MountOptions{Source: "server:/export", FSType: "nfs"}))
	require.NoError(t, env.dir(t, "nfs").Unmount(false))

	require.Equal(t, []string{
		"mount --bind " + env.path("src") + " " + env.path("target"),
		"sudo umount " + env.path("target"),
		"mount -t nfs server:/export " + env.path("nfs"),
		"umount " + env.path("nfs"),
	}, env.recorder.Cmdlines())

	err := env.dir(t, "target").Bind("/etc", false)
	require.Equal(t, errors.CodeRestricted, errors.GetCode(err))

	err = env.dir(t, "target").Mount(MountOptions{})
	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(err))

	env.recorder.FailWith(32, "mount: only root can do that")
	err = env.dir(t, "nfs").Mount(MountOptions{Source: "server:/export"})
	require.Equal(t, errors.CodeActionFailed, errors.GetCode(err))
}

func TestPath_ExistsAutoMounts(t *testing.T) {
	base := newEnv(t)
	env := base.with(WithMountPoints(MountPoint{
		Path:   base.path("mnt") + "/",
		Source: "/dev/sdc1",
		FSType: "xfs",
		Sudo:   true,
	}))

	p, err := env.fs.Path(env.path("mnt", "data", "file"), nil)
	require.NoError(t, err)

	_, err = p.Exists(ExistsOptions{NoAutoMount: true})
	require.NoError(t, err)
	require.Empty(t, env.recorder.Calls())

	_, err = p.Exists(ExistsOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"sudo mount -t xfs /dev/sdc1 " + env.path("mnt")}, env.recorder.Cmdlines())

	other, err := env.fs.Path(env.path("mntx"), nil)
	require.NoError(t, err)
	_, err = other.Exists(ExistsOptions{})
	require.NoError(t, err)
	require.Len(t, env.recorder.Calls(), 1)
	require.Len(t, env.fs.MountPoints(), 1)
}
