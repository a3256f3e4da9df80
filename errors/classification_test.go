package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorClassification_IsRetryable(t *testing.T) {
	require.True(t, ClassificationRetryable.IsRetryable())
	require.False(t, ClassificationPermanent.IsRetryable())
	require.False(t, ErrorClassification("OTHER").IsRetryable())
}

func TestDefaultClassification(t *testing.T) {
	for code := range defaultClassifications {
		require.Equal(t, ClassificationPermanent, New(code, "x").Classification(), code)
	}
	require.Equal(t, ClassificationPermanent, New(ErrorCode("CUSTOM"), "x").Classification())
}

func TestWithClassification(t *testing.T) {
	base := WithContext(New(CodeActionFailed, "mount failed"), "command", "mount /dev/sdb1 /mnt")
	retry := WithClassification(base, ClassificationRetryable)

	require.True(t, IsRetryable(retry))
	require.False(t, IsRetryable(base))
	require.Equal(t, CodeActionFailed, retry.Code())
	require.Equal(t, "mount /dev/sdb1 /mnt", retry.Context()["command"])

	// Wrapping and adding context keep the classification.
	require.True(t, IsRetryable(Wrap(retry, CodeNotMounted, "ensure mounted")))
	require.True(t, IsRetryable(WithContext(retry, "path", "/mnt")))

	plain := WithClassification(stderrors.New("plain"), ClassificationRetryable)
	require.Equal(t, CodeUnknown, plain.Code())
	require.True(t, IsRetryable(plain))

	require.Nil(t, WithClassification(nil, ClassificationRetryable))
	require.False(t, IsRetryable(nil))
	require.False(t, IsRetryable(stderrors.New("plain")))
	require.Equal(t, ClassificationPermanent, GetClassification(stderrors.New("plain")))
}
