// Package fstest provides a conformance suite for core.Backend implementations.
//
// Backends are exercised on absolute paths below a fresh root directory that
// the caller supplies for every group, so groups never see each other's files.
//
// Example usage:
//
//	func TestLocalFS(t *testing.T) {
//	    fstest.TestSuite(t, func(t *testing.T) (core.Backend, string) {
//	        return billy.NewLocal(), t.TempDir()
//	    })
//	}
package fstest

import (
	"path/filepath"
	"testing"

	"github.com/Capmega/phoundation-sub014/fs/core"
)

// NewFunc returns a backend and an existing, empty, absolute root directory.
type NewFunc func(t *testing.T) (core.Backend, string)

// Config tunes the suite to a backend.
type Config struct {
	// SkipTests lists group or "Group/SubTest" names to skip.
	SkipTests []string
}

// TestSuite runs every group against the backend.
func TestSuite(t *testing.T, newFS NewFunc) {
	TestSuiteWithConfig(t, newFS, Config{})
}

// TestSuiteWithConfig runs every group not listed in config.SkipTests.
func TestSuiteWithConfig(t *testing.T, newFS NewFunc, config Config) {
	groups := []struct {
		name string
		run  func(t *testing.T, b core.Backend, root string, config Config)
	}{
		{"ReadFS", testReadFS},
		{"WriteFS", testWriteFS},
		{"ManageFS", testManageFS},
		{"WalkFS", testWalkFS},
		{"MetadataFS", testMetadataFS},
		{"SymlinkFS", testSymlinkFS},
		{"TempFS", testTempFS},
		{"File", testFile},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if config.skip(g.name) {
				t.Skip("Skipped by provider configuration")
			}
			b, root := newFS(t)
			g.run(t, b, root, config)
		})
	}
}

func (c Config) skip(name string) bool {
	for _, s := range c.SkipTests {
		if s == name {
			return true
		}
	}
	return false
}

// run runs a subtest unless "group/name" is skipped.
func run(t *testing.T, config Config, group, name string, fn func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		if config.skip(group + "/" + name) {
			t.Skip("Skipped by provider configuration")
		}
		fn(t)
	})
}

// mustWrite creates parents and writes data, failing the test on error.
func mustWrite(t *testing.T, b core.Backend, name string, data []byte) {
	t.Helper()
	if err := b.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): setup failed: %v", filepath.Dir(name), err)
	}
	if err := b.WriteFile(name, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): setup failed: %v", name, err)
	}
}
