package errors

// ErrorClassification tells callers whether retrying the operation may help.
type ErrorClassification string

const (
	// ClassificationRetryable marks failures that may pass on a later try,
	// such as a tool that timed out or a path another operation holds.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that repeat until something
	// changes, such as restriction denials and missing paths.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable reports whether the classification is ClassificationRetryable.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

// Every code is permanent by default. Operations that fail transiently mark
// their errors with WithClassification.
var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeRestricted:      ClassificationPermanent,
	CodeNotReadable:     ClassificationPermanent,
	CodeNotWritable:     ClassificationPermanent,
	CodeFileNotExist:    ClassificationPermanent,
	CodePathNotFound:    ClassificationPermanent,
	CodeNotMounted:      ClassificationPermanent,
	CodeFileNotOpen:     ClassificationPermanent,
	CodeFileAlreadyOpen: ClassificationPermanent,
	CodeActionFailed:    ClassificationPermanent,
	CodeSha256Mismatch:  ClassificationPermanent,
	CodeWrongType:       ClassificationPermanent,
	CodeOutOfBounds:     ClassificationPermanent,
	CodeInternal:        ClassificationPermanent,
	CodeUnknown:         ClassificationPermanent,
}

func defaultClassification(code ErrorCode) ErrorClassification {
	if c, ok := defaultClassifications[code]; ok {
		return c
	}
	return ClassificationPermanent
}
