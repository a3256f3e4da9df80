// Package errors provides the coded error taxonomy of the filesystem core.
//
// Every failure raised by the fs packages carries an ErrorCode so callers can
// branch on the kind of failure without string matching. Errors stay fully
// compatible with the standard library (errors.Is, errors.As, errors.Unwrap).
//
// # Error Codes
//
//   - Access scope: CodeRestricted, CodeNotReadable, CodeNotWritable
//   - Existence: CodeFileNotExist, CodePathNotFound, CodeNotMounted
//   - Streams: CodeFileNotOpen, CodeFileAlreadyOpen
//   - Operations: CodeActionFailed, CodeSha256Mismatch, CodeWrongType
//   - Parameters: CodeOutOfBounds
//   - System: CodeInternal, CodeUnknown
//
// # Creating errors
//
//	err := errors.Newf(errors.CodeFileNotExist, "file %s does not exist", path)
//	err = errors.WithContext(err, "label", restrictions.Label())
//
// # Chaining
//
// Permission checks accept a previous error so an I/O failure further down
// can be explained in terms of an upstream access problem:
//
//	if err := f.CheckReadable(local.CheckOptions{Previous: readErr}); err != nil {
//	    // err has CodeNotReadable and still answers HasCode(err, CodeFileNotExist)
//	}
//
// HasCode walks the entire chain, GetCode only reports the outermost code.
package errors
