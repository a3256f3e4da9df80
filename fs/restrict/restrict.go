package restrict

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Capmega/phoundation-sub014/config"
	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/metrics"
)

// Entry is one allowed directory.
type Entry struct {
	// Path is the cleaned absolute directory with a trailing slash.
	Path  string
	Write bool
}

// WriteMode selects the write flag of derived entries.
type WriteMode int

const (
	// Inherit keeps the write flag of the entry a child is derived from.
	Inherit WriteMode = iota
	// ReadOnly clears the write flag.
	ReadOnly
	// Writable sets the write flag.
	Writable
)

// Restrictions is an immutable directory allow-list.
type Restrictions struct {
	label   string
	entries []Entry
	metrics *metrics.Collector
}

// New creates restrictions named label covering dirs with the same write flag.
func New(label string, write bool, dirs ...string) *Restrictions {
	entries := make([]Entry, 0, len(dirs))
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		entries = append(entries, Entry{Path: normalizeDir(d), Write: write})
	}
	return &Restrictions{label: label, entries: entries}
}

// NewFromEntries creates restrictions from explicit entries.
func NewFromEntries(label string, entries ...Entry) *Restrictions {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Path: normalizeDir(e.Path), Write: e.Write})
	}
	return &Restrictions{label: label, entries: out}
}

// Ensure returns r when it is set, or restrictions built from the raw
// dirs, write and label otherwise.
func Ensure(r *Restrictions, dirs []string, write bool, label string) *Restrictions {
	if r != nil {
		return r
	}
	return New(label, write, dirs...)
}

// FromConfig builds the process-wide default restrictions. Directories in
// WriteDirs are writable, ReadDirs are read-only.
func FromConfig(cfg config.SystemConfig) *Restrictions {
	entries := make([]Entry, 0, len(cfg.ReadDirs)+len(cfg.WriteDirs))
	for _, d := range cfg.ReadDirs {
		if strings.TrimSpace(d) != "" {
			entries = append(entries, Entry{Path: d})
		}
	}
	for _, d := range cfg.WriteDirs {
		if strings.TrimSpace(d) != "" {
			entries = append(entries, Entry{Path: d, Write: true})
		}
	}
	return NewFromEntries(cfg.Label, entries...)
}

func normalizeDir(dir string) string {
	dir = filepath.Clean(dir)
	if dir == string(filepath.Separator) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// WithMetrics returns a copy that reports denials to c.
func (r *Restrictions) WithMetrics(c *metrics.Collector) *Restrictions {
	cp := r.clone()
	cp.metrics = c
	return cp
}

func (r *Restrictions) clone() *Restrictions {
	if r == nil {
		return &Restrictions{}
	}
	return &Restrictions{
		label:   r.label,
		entries: append([]Entry(nil), r.entries...),
		metrics: r.metrics,
	}
}

// Label returns the name used in errors and logs.
func (r *Restrictions) Label() string {
	if r == nil {
		return ""
	}
	return r.label
}

// Entries returns a copy of the entries.
func (r *Restrictions) Entries() []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries...)
}

// Dirs returns the entry directories without their trailing slash.
func (r *Restrictions) Dirs() []string {
	if r == nil {
		return nil
	}
	dirs := make([]string, len(r.entries))
	for i, e := range r.entries {
		dirs[i] = filepath.Clean(e.Path)
	}
	return dirs
}

// With returns a copy with one more entry.
func (r *Restrictions) With(dir string, write bool) *Restrictions {
	cp := r.clone()
	cp.entries = append(cp.entries, Entry{Path: normalizeDir(dir), Write: write})
	return cp
}

// Allows reports whether path is covered with the requested access.
// Relative paths are never allowed.
func (r *Restrictions) Allows(path string, write bool) bool {
	if r == nil || !filepath.IsAbs(path) {
		return false
	}
	candidate := normalizeDir(path)
	for _, e := range r.entries {
		if write && !e.Write {
			continue
		}
		if strings.HasPrefix(candidate, e.Path) {
			return true
		}
	}
	return false
}

// Check fails with CodeRestricted unless every path is covered with the
// requested access. Glob patterns are checked by their static base directory.
// Relative paths fail with CodeOutOfBounds.
func (r *Restrictions) Check(write bool, pathsOrPatterns ...string) error {
	for _, p := range pathsOrPatterns {
		candidate := p
		if hasMeta(p) {
			candidate, _ = doublestar.SplitPattern(filepath.ToSlash(p))
			candidate = filepath.FromSlash(candidate)
		}

		if !filepath.IsAbs(candidate) {
			return errors.WithContextMap(
				errors.Newf(errors.CodeOutOfBounds, "path %q is not absolute", p),
				map[string]interface{}{"path": p, "label": r.Label()},
			)
		}

		if !r.Allows(candidate, write) {
			if r != nil {
				r.metrics.RestrictionDenied(r.label, write)
			}
			return errors.WithContextMap(
				errors.Newf(errors.CodeRestricted, "%s access to %q denied by restrictions %s", access(write), p, r),
				map[string]interface{}{"path": p, "label": r.Label(), "access": access(write)},
			)
		}
	}
	return nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func access(write bool) string {
	if write {
		return "write"
	}
	return "read"
}

// Parent returns restrictions whose entries are the levels-th ancestors of
// the current entries.
func (r *Restrictions) Parent(levels int) (*Restrictions, error) {
	if levels < 1 {
		return nil, errors.Newf(errors.CodeOutOfBounds, "invalid parent levels %d: must be at least 1", levels)
	}
	cp := r.clone()
	for i, e := range cp.entries {
		dir := filepath.Clean(e.Path)
		for l := 0; l < levels; l++ {
			dir = filepath.Dir(dir)
		}
		cp.entries[i].Path = normalizeDir(dir)
	}
	return cp, nil
}

// Child returns restrictions with every child dir appended to every entry.
// The write flag of the new entries follows mode.
func (r *Restrictions) Child(dirs []string, mode WriteMode) *Restrictions {
	cp := r.clone()
	cp.entries = make([]Entry, 0, len(r.entries)*len(dirs))
	for _, e := range r.entries {
		for _, d := range dirs {
			child := strings.Trim(filepath.Clean("/"+d), string(filepath.Separator))
			entry := Entry{Path: normalizeDir(filepath.Join(e.Path, child)), Write: e.Write}
			switch mode {
			case ReadOnly:
				entry.Write = false
			case Writable:
				entry.Write = true
			}
			cp.entries = append(cp.entries, entry)
		}
	}
	return cp
}

// Writable returns a copy where every entry is writable.
func (r *Restrictions) Writable() *Restrictions {
	cp := r.clone()
	for i := range cp.entries {
		cp.entries[i].Write = true
	}
	return cp
}

// ReadOnly returns a copy where no entry is writable.
func (r *Restrictions) ReadOnly() *Restrictions {
	cp := r.clone()
	for i := range cp.entries {
		cp.entries[i].Write = false
	}
	return cp
}

// String renders the label and entries, e.g. uploads[/srv/www/ (ro), /srv/www/uploads/ (rw)].
func (r *Restrictions) String() string {
	if r == nil {
		return "<none>"
	}
	parts := make([]string, len(r.entries))
	for i, e := range r.entries {
		mode := "ro"
		if e.Write {
			mode = "rw"
		}
		parts[i] = fmt.Sprintf("%s (%s)", e.Path, mode)
	}
	return fmt.Sprintf("%s[%s]", r.label, strings.Join(parts, ", "))
}
