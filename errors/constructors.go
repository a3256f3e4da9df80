package errors

import "fmt"

// New creates an FsError with the given code and message.
//
// Example:
//
//	err := errors.New(errors.CodeFileNotOpen, "file is not open")
func New(code ErrorCode, message string) FsError {
	return &fsError{code: code, message: message}
}

// Newf creates an FsError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeOutOfBounds, "invalid size %d", size)
func Newf(code ErrorCode, format string, args ...interface{}) FsError {
	return &fsError{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. The wrapped error stays reachable
// through Unwrap and its classification is kept. Returns nil if err is nil.
//
// Example:
//
//	if err := backend.Rename(from, to); err != nil {
//	    return errors.Wrap(err, errors.CodeActionFailed, "rename failed")
//	}
func Wrap(err error, code ErrorCode, message string) FsError {
	if err == nil {
		return nil
	}
	e := &fsError{code: code, message: message, cause: err}
	// A wrapped FsError keeps its classification.
	var inner FsError
	if As(err, &inner) {
		e.classification = inner.Classification()
	}
	return e
}

// Wrapf wraps err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) FsError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}
