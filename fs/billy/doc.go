// Package billy implements core.Backend on top of go-billy's osfs.
//
// The backend is rooted at "/" and takes absolute paths. Data operations
// (open, create, rename, remove, mkdir, symlink, temp files, locks) go
// through billy. Ownership, permission and time changes are not part of
// billy's chroot helper and go straight to the os package.
//
// Usage:
//
//	b := billy.NewLocal()
//	if err := b.MkdirAll("/srv/uploads/2024", 0o750); err != nil {
//		return err
//	}
//	f, err := b.OpenFile("/srv/uploads/2024/a.txt", os.O_CREATE|os.O_WRONLY, 0o640)
//
// # Thread Safety
//
// LocalFS is safe for concurrent use. File handles are not.
package billy
