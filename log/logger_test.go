package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
}

func TestNew_WritesJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	l, err := New(Config{Level: "info", OutputPaths: []string{out}})
	require.NoError(t, err)

	l.Info("deleted", Path("/srv/a"), Label("uploads"))
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"deleted"`)
	require.Contains(t, string(data), `"path":"/srv/a"`)
	require.NotContains(t, string(data), "hidden")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, lvl)
}

func TestWrap_Observer(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core)).Named("fs").With(Op("chmod"))

	l.Warn("skipped")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "fs", entries[0].LoggerName)
	require.Equal(t, "chmod", entries[0].ContextMap()["op"])
}

func TestWrap_Nil(t *testing.T) {
	require.NotNil(t, Wrap(nil).Logger)
	require.NotNil(t, NewNop().Logger)
	require.NotNil(t, NewDefault())
	require.NotNil(t, NewDevelopment())
}
