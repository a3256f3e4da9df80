package errors

import stderrors "errors"

// WithContext returns a copy of err with one context field added.
// Existing fields are preserved. A non-FsError is converted with CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "path", "/var/www/uploads")
func WithContext(err error, key string, value interface{}) FsError {
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap returns a copy of err with the given fields merged into its
// context. New fields override existing ones with the same key.
// Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]interface{}) FsError {
	if err == nil {
		return nil
	}

	var fe FsError
	if !stderrors.As(err, &fe) {
		fe = &fsError{code: CodeUnknown, message: err.Error(), cause: err}
	}

	merged := make(map[string]interface{}, len(ctx))
	for k, v := range fe.Context() {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &fsError{
		code:           fe.Code(),
		classification: fe.Classification(),
		message:        fe.Message(),
		context:        merged,
		cause:          fe.Unwrap(),
	}
}

// WithClassification returns a copy of err with the given classification.
// A non-FsError is converted with CodeUnknown. Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithClassification(err, errors.ClassificationRetryable)
func WithClassification(err error, classification ErrorClassification) FsError {
	if err == nil {
		return nil
	}

	var fe FsError
	if !stderrors.As(err, &fe) {
		fe = &fsError{code: CodeUnknown, message: err.Error(), cause: err}
	}
	return &fsError{
		code:           fe.Code(),
		classification: classification,
		message:        fe.Message(),
		context:        fe.Context(),
		cause:          fe.Unwrap(),
	}
}
