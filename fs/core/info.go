package core

import (
	"io/fs"
	"time"
)

// Info is the stat record of a path.
type Info struct {
	Path       string
	TypeCode   string
	TypeName   string
	Size       int64
	UID        int
	GID        int
	Mode       fs.FileMode
	ModeString string
	ModTime    time.Time
}

// TypeCode returns the single character ls(1) type code of m.
func TypeCode(m fs.FileMode) string {
	switch {
	case m&fs.ModeDir != 0:
		return "d"
	case m&fs.ModeSymlink != 0:
		return "l"
	case m&fs.ModeNamedPipe != 0:
		return "p"
	case m&fs.ModeSocket != 0:
		return "s"
	case m&fs.ModeCharDevice != 0:
		return "c"
	case m&fs.ModeDevice != 0:
		return "b"
	case m.IsRegular():
		return "-"
	default:
		return "?"
	}
}

// TypeName returns the human-readable type name of m.
func TypeName(m fs.FileMode) string {
	switch TypeCode(m) {
	case "d":
		return "directory"
	case "l":
		return "symlink"
	case "p":
		return "fifo"
	case "s":
		return "socket"
	case "c":
		return "character device"
	case "b":
		return "block device"
	case "-":
		return "regular file"
	default:
		return "unknown"
	}
}

// ModeString returns the permission bits of m as "rwxrwxrwx", with setuid,
// setgid and sticky rendered in the execute columns like ls(1).
func ModeString(m fs.FileMode) string {
	const rwx = "rwxrwxrwx"
	buf := []byte("---------")
	perm := m.Perm()
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			buf[i] = rwx[i]
		}
	}
	special := func(i int, set bool, lower, upper byte) {
		if !set {
			return
		}
		if buf[i] == 'x' {
			buf[i] = lower
		} else {
			buf[i] = upper
		}
	}
	special(2, m&fs.ModeSetuid != 0, 's', 'S')
	special(5, m&fs.ModeSetgid != 0, 's', 'S')
	special(8, m&fs.ModeSticky != 0, 't', 'T')
	return string(buf)
}
