package main

import (
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/local"
	"github.com/Capmega/phoundation-sub014/fs/restrict"
)

// restrictionSet is one named allow-list in the configuration file.
type restrictionSet struct {
	Read  []string `mapstructure:"read"`
	Write []string `mapstructure:"write"`
}

type mountSpec struct {
	Path    string   `mapstructure:"path"`
	Source  string   `mapstructure:"source"`
	FSType  string   `mapstructure:"fstype"`
	Options []string `mapstructure:"options"`
	Bind    bool     `mapstructure:"bind"`
	Sudo    bool     `mapstructure:"sudo"`
}

// fileConfig is the optional YAML file:
//
//	restrictions:
//	  uploads:
//	    read: [/srv/www]
//	    write: [/srv/www/uploads]
//	mounts:
//	  - path: /mnt/backup
//	    source: /dev/sdb1
//	    fstype: ext4
//
// Set names are case-insensitive.
type fileConfig struct {
	Restrictions map[string]restrictionSet `mapstructure:"restrictions"`
	Mounts       []mountSpec               `mapstructure:"mounts"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithContext(errors.Wrapf(err, errors.CodeActionFailed, "failed to read config file %q", path), "path", path)
	}
	if err := v.Unmarshal(fc); err != nil {
		return nil, errors.WithContext(errors.Wrapf(err, errors.CodeOutOfBounds, "invalid config file %q", path), "path", path)
	}
	return fc, nil
}

// restrictions builds the named set. Write directories are readable too.
func (fc *fileConfig) restrictions(name string) (*restrict.Restrictions, error) {
	set, ok := fc.Restrictions[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(fc.Restrictions))
		for n := range fc.Restrictions {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, errors.WithContextMap(
			errors.Newf(errors.CodeOutOfBounds, "unknown restriction set %q", name),
			map[string]interface{}{"name": name, "known": names},
		)
	}

	entries := make([]restrict.Entry, 0, len(set.Read)+len(set.Write))
	for _, d := range set.Read {
		entries = append(entries, restrict.Entry{Path: d})
	}
	for _, d := range set.Write {
		entries = append(entries, restrict.Entry{Path: d, Write: true})
	}
	return restrict.NewFromEntries(name, entries...), nil
}

func (fc *fileConfig) mountPoints() []local.MountPoint {
	out := make([]local.MountPoint, 0, len(fc.Mounts))
	for _, m := range fc.Mounts {
		out = append(out, local.MountPoint{
			Path:    m.Path,
			Source:  m.Source,
			FSType:  m.FSType,
			Options: m.Options,
			Bind:    m.Bind,
			Sudo:    m.Sudo,
		})
	}
	return out
}
