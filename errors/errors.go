package errors

import "fmt"

// FsError extends the error interface with a code, a message and optional
// context metadata. It remains compatible with errors.Is, errors.As and
// errors.Unwrap.
type FsError interface {
	error

	// Code returns the error code identifying the kind of failure.
	Code() ErrorCode

	// Classification tells whether retrying may help.
	Classification() ErrorClassification

	// Message returns the human-readable message without the cause.
	Message() string

	// Context returns a copy of the attached metadata, or nil.
	Context() map[string]interface{}

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}

// fsError is the concrete FsError. Construction goes through package functions.
type fsError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error formats as "[CODE] message" or "[CODE] message: cause".
func (e *fsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *fsError) Code() ErrorCode { return e.code }

func (e *fsError) Classification() ErrorClassification {
	if e.classification == "" {
		return defaultClassification(e.code)
	}
	return e.classification
}

func (e *fsError) Message() string { return e.message }

func (e *fsError) Context() map[string]interface{} {
	if e.context == nil {
		return nil
	}
	ctx := make(map[string]interface{}, len(e.context))
	for k, v := range e.context {
		ctx[k] = v
	}
	return ctx
}

func (e *fsError) Unwrap() error { return e.cause }
