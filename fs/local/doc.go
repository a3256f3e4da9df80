// Package local implements restriction-checked path handles over the local
// filesystem.
//
// Every handle is created through an FS, which bundles the syscall backend,
// the tool executor used for mount and privileged operations, the logger,
// the metrics collector and the process configuration:
//
//	fsys := local.New(local.WithConfig(cfg))
//	uploads := restrict.New("uploads", true, "/srv/www/uploads")
//
//	dir, err := fsys.Directory("/srv/www/uploads/2024", uploads)
//	if err != nil {
//	    return err
//	}
//	if err := dir.Ensure(local.EnsureOptions{}); err != nil {
//	    return err
//	}
//
// Handles come in three kinds: Path, File and Directory. File and Directory
// embed *Path and add content and tree operations respectively. Each
// operation first checks the bound restrictions, then touches the
// filesystem, and finally invalidates the handle's cached stat data when it
// mutated anything.
//
// Handles are not safe for concurrent use. A handle owns at most one open
// stream, and callers must Close it explicitly.
package local
