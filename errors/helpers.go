package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode returns the code of the outermost FsError in err's chain.
// Returns CodeUnknown if err is nil or carries no FsError.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	var fe FsError
	if stderrors.As(err, &fe) {
		return fe.Code()
	}
	return CodeUnknown
}

// GetClassification returns the classification of the outermost FsError in
// err's chain. Errors without one are permanent.
func GetClassification(err error) ErrorClassification {
	var fe FsError
	if err != nil && stderrors.As(err, &fe) {
		return fe.Classification()
	}
	return ClassificationPermanent
}

// IsRetryable reports whether retrying the failed operation may help.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// HasCode reports whether any FsError in err's chain carries code.
//
// Unlike GetCode it keeps unwrapping past the outermost FsError, so an
// error raised by CheckReadable with a previous FILE_NOT_EXIST error
// answers true for both codes.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if fe, ok := err.(FsError); ok && fe.Code() == code {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				if HasCode(e, code) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return false
		}
	}
	return false
}
