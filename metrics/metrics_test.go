package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RestrictionDenied("uploads", true)
	c.RestrictionDenied("uploads", true)
	c.RestrictionDenied("uploads", false)
	c.Operation("delete", time.Now(), nil)
	c.Operation("delete", time.Now(), errors.New("boom"))
	c.WalkEntries("tree_size", 12)
	c.WalkEntries("tree_size", 0)
	c.MountCheck("mounted")

	require.Equal(t, 2.0, testutil.ToFloat64(c.restrictionDenials.WithLabelValues("uploads", "write")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.restrictionDenials.WithLabelValues("uploads", "read")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("delete", StatusSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("delete", StatusError)))
	require.Equal(t, 12.0, testutil.ToFloat64(c.walkEntries.WithLabelValues("tree_size")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.mountChecks.WithLabelValues("mounted")))

	n, err := testutil.GatherAndCount(reg, "phofs_restriction_denials_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestCollector_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	require.Error(t, err)
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.RestrictionDenied("x", true)
		c.Operation("x", time.Now(), nil)
		c.WalkEntries("x", 3)
		c.MountCheck("mounted")
	})
}
