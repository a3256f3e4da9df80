package restrict

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Capmega/phoundation-sub014/config"
	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/metrics"
)

func TestCheck(t *testing.T) {
	r := NewFromEntries("web",
		Entry{Path: "/srv/www"},
		Entry{Path: "/srv/www/uploads/", Write: true},
	)

	tests := []struct {
		name  string
		path  string
		write bool
		code  errors.ErrorCode
	}{
		{"read root entry", "/srv/www", false, ""},
		{"read inside", "/srv/www/index.html", false, ""},
		{"read sibling prefix", "/srv/wwwdata/x", false, errors.CodeRestricted},
		{"write read-only", "/srv/www/index.html", true, errors.CodeRestricted},
		{"write writable", "/srv/www/uploads/a.png", true, ""},
		{"write writable root", "/srv/www/uploads", true, ""},
		{"dotdot escape", "/srv/www/uploads/../../etc/passwd", false, errors.CodeRestricted},
		{"dotdot inside", "/srv/www/uploads/../index.html", false, ""},
		{"outside", "/etc/passwd", false, errors.CodeRestricted},
		{"relative", "srv/www", false, errors.CodeOutOfBounds},
		{"glob inside", "/srv/www/uploads/*.png", true, ""},
		{"glob base outside", "/srv/*/uploads", false, errors.CodeRestricted},
		{"doublestar inside", "/srv/www/**/*.html", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Check(tt.write, tt.path)
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestCheck_NeverTruncatesPathSet(t *testing.T) {
	r := New("docs", true, "/srv/docs")
	err := r.Check(false, "/srv/docs/a", "/srv/docs/b", "/srv/other/c")
	require.True(t, errors.HasCode(err, errors.CodeRestricted))

	var fe errors.FsError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "/srv/other/c", fe.Context()["path"])
	require.Equal(t, "docs", fe.Context()["label"])
}

// Every path outside the allowed directories is rejected for both access modes,
// and every path inside a writable directory passes a write check.
func TestCheck_EnforcementProperty(t *testing.T) {
	allowed := []string{"/srv/a", "/var/lib/app", "/home/u/data"}
	r := New("prop", true, allowed...)

	outside := []string{"/", "/srv", "/srv/ab", "/var/lib", "/var/lib/application", "/home/u", "/tmp/x"}
	for _, p := range outside {
		for _, write := range []bool{false, true} {
			require.True(t, errors.HasCode(r.Check(write, p), errors.CodeRestricted), "%s write=%v", p, write)
		}
	}

	for _, dir := range allowed {
		for i := 0; i < 5; i++ {
			p := fmt.Sprintf("%s/sub%d/file%d.txt", dir, i, i)
			require.NoError(t, r.Check(true, p))
			require.NoError(t, r.Check(false, p))
		}
	}
}

func TestNilAndEmpty(t *testing.T) {
	var r *Restrictions
	require.True(t, errors.HasCode(r.Check(false, "/a"), errors.CodeRestricted))
	require.False(t, r.Allows("/a", false))
	require.Equal(t, "<none>", r.String())

	empty := New("empty", true)
	require.True(t, errors.HasCode(empty.Check(false, "/a"), errors.CodeRestricted))
	require.Empty(t, New("blank", true, "", "  ").Entries())
}

func TestRootEntry(t *testing.T) {
	r := New("all", false, "/")
	require.NoError(t, r.Check(false, "/etc/passwd"))
	require.Equal(t, "/", r.Entries()[0].Path)
}

func TestParent(t *testing.T) {
	r := New("file", true, "/srv/www/uploads/a.png")

	p, err := r.Parent(1)
	require.NoError(t, err)
	require.Equal(t, []string{"/srv/www/uploads"}, p.Dirs())
	require.True(t, p.Entries()[0].Write)

	p, err = r.Parent(2)
	require.NoError(t, err)
	require.Equal(t, []string{"/srv/www"}, p.Dirs())

	p, err = r.Parent(10)
	require.NoError(t, err)
	require.Equal(t, []string{"/"}, p.Dirs())

	_, err = r.Parent(0)
	require.Equal(t, errors.CodeOutOfBounds, errors.GetCode(err))

	// Original untouched.
	require.Equal(t, []string{"/srv/www/uploads/a.png"}, r.Dirs())
}

func TestChild(t *testing.T) {
	r := NewFromEntries("base", Entry{Path: "/srv/a"}, Entry{Path: "/srv/b", Write: true})

	c := r.Child([]string{"x", "/y/z/", "../../etc"}, Inherit)
	require.Equal(t, []Entry{
		{Path: "/srv/a/x/", Write: false},
		{Path: "/srv/a/y/z/", Write: false},
		{Path: "/srv/a/etc/", Write: false},
		{Path: "/srv/b/x/", Write: true},
		{Path: "/srv/b/y/z/", Write: true},
		{Path: "/srv/b/etc/", Write: true},
	}, c.Entries())

	require.True(t, r.Child([]string{"x"}, Writable).Allows("/srv/a/x/f", true))
	require.False(t, r.Child([]string{"x"}, ReadOnly).Allows("/srv/b/x/f", true))
	require.Equal(t, "base", c.Label())
}

func TestWritableReadOnlyWith(t *testing.T) {
	r := New("ro", false, "/srv/a")
	require.False(t, r.Allows("/srv/a/f", true))

	w := r.Writable()
	require.True(t, w.Allows("/srv/a/f", true))
	require.False(t, r.Allows("/srv/a/f", true))

	require.False(t, w.ReadOnly().Allows("/srv/a/f", true))

	extended := r.With("/tmp/work", true)
	require.True(t, extended.Allows("/tmp/work/x", true))
	require.Len(t, r.Entries(), 1)
	require.Equal(t, "ro[/srv/a/ (ro), /tmp/work/ (rw)]", extended.String())
}

func TestEnsure(t *testing.T) {
	existing := New("existing", false, "/a")
	require.Same(t, existing, Ensure(existing, []string{"/b"}, true, "raw"))

	built := Ensure(nil, []string{"/b", "/c"}, true, "raw")
	require.Equal(t, "raw", built.Label())
	require.True(t, built.Allows("/c/d", true))
}

func TestFromConfig(t *testing.T) {
	r := FromConfig(config.SystemConfig{
		Label:     "system",
		ReadDirs:  []string{"/usr/share/app"},
		WriteDirs: []string{"/var/lib/app", ""},
	})
	require.Equal(t, "system", r.Label())
	require.Len(t, r.Entries(), 2)
	require.True(t, r.Allows("/usr/share/app/x", false))
	require.False(t, r.Allows("/usr/share/app/x", true))
	require.True(t, r.Allows("/var/lib/app/x", true))
}

func TestWithMetrics(t *testing.T) {
	c, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	r := New("counted", false, "/srv").WithMetrics(c)
	require.Error(t, r.Check(true, "/srv/x"))
	require.Error(t, r.Check(false, "/etc"))
	require.NoError(t, r.Check(false, "/srv/x"))

	require.Equal(t, 2, testutil.CollectAndCount(c, "phofs_restriction_denials_total"))
}
