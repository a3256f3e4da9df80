// Package core defines the contracts shared by the filesystem packages.
//
// Backend is the syscall surface the restricted path layer runs on. It is
// split into capability interfaces (ReadFS, WriteFS, ManageFS, WalkFS,
// MetadataFS, SymlinkFS, TempFS) so tests and alternative backends can be
// checked piece by piece. All Backend paths are absolute and already cleaned.
//
// The second half of the package describes path handles by capability rather
// than by type hierarchy. A handle has a Kind (path, file or directory) and
// exposes some of:
//
//   - Stater: existence and stat information
//   - StreamReader: reading through an open stream
//   - StreamWriter: writing through an open stream or whole-content replacement
//   - TreeWalker: recursive size, count and listing of a directory tree
//
// Info is the stat record a Stater returns. Its TypeCode and TypeName follow
// ls(1): "-" regular, "d" directory, "l" symlink, "p" fifo, "c" character
// device, "b" block device, "s" socket.
package core
