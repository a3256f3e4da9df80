package errors

// ErrorCode identifies the kind of a filesystem failure.
// Codes are strings so they read well in logs and JSON.
type ErrorCode string

const (
	// Access scope errors.

	// CodeRestricted indicates the target path lies outside the allowed
	// (or writable) directories of the bound restrictions.
	CodeRestricted ErrorCode = "RESTRICTED"

	// CodeNotReadable indicates the OS denies read access to an existing path.
	CodeNotReadable ErrorCode = "NOT_READABLE"

	// CodeNotWritable indicates the OS denies write access to a path.
	CodeNotWritable ErrorCode = "NOT_WRITABLE"

	// Existence errors.

	// CodeFileNotExist indicates a path that was required to exist is absent.
	CodeFileNotExist ErrorCode = "FILE_NOT_EXIST"

	// CodePathNotFound indicates a path could not be resolved to a real path.
	CodePathNotFound ErrorCode = "PATH_NOT_FOUND"

	// CodeNotMounted indicates a directory expected to be a mount point is not mounted.
	CodeNotMounted ErrorCode = "NOT_MOUNTED"

	// Stream errors.

	// CodeFileNotOpen indicates a stream operation on a path without an open stream.
	CodeFileNotOpen ErrorCode = "FILE_NOT_OPEN"

	// CodeFileAlreadyOpen indicates an attempt to open a path that already owns a stream.
	CodeFileAlreadyOpen ErrorCode = "FILE_ALREADY_OPEN"

	// Operation errors.

	// CodeActionFailed indicates an underlying OS call or subprocess failed.
	CodeActionFailed ErrorCode = "FILE_ACTION_FAILED"

	// CodeSha256Mismatch indicates a content integrity check failed.
	CodeSha256Mismatch ErrorCode = "FILE_SHA256_MISMATCH"

	// CodeWrongType indicates the path exists but has the wrong type
	// (for example a content operation on a directory).
	CodeWrongType ErrorCode = "WRONG_TYPE"

	// Parameter errors.

	// CodeOutOfBounds indicates a caller supplied parameter violates a precondition.
	CodeOutOfBounds ErrorCode = "OUT_OF_BOUNDS"

	// System errors.

	// CodeInternal indicates an internal error.
	CodeInternal ErrorCode = "INTERNAL"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)
