package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	sentinel := New(CodeFileNotExist, "missing")
	wrapped := Wrap(sentinel, CodeNotReadable, "cannot read")

	require.True(t, Is(wrapped, sentinel))

	other := New(CodeOutOfBounds, "bad size")
	require.False(t, Is(wrapped, other))
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeRestricted, "denied"))

	var fe FsError
	require.True(t, As(err, &fe))
	require.Equal(t, CodeRestricted, fe.Code())
	require.True(t, stderrors.As(err, &fe))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "fs error",
			err:  New(CodeFileNotOpen, "not open"),
			want: CodeFileNotOpen,
		},
		{
			name: "wrapped fs error",
			err:  Wrap(New(CodeFileNotExist, "missing"), CodeNotReadable, "unreadable"),
			want: CodeNotReadable,
		},
		{
			name: "standard error",
			err:  stderrors.New("plain"),
			want: CodeUnknown,
		},
		{
			name: "nil error",
			err:  nil,
			want: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	inner := New(CodeFileNotExist, "missing")
	outer := Wrap(inner, CodeNotReadable, "unreadable")
	std := fmt.Errorf("context: %w", outer)
	joined := stderrors.Join(stderrors.New("first"), New(CodeSha256Mismatch, "bad digest"))

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"outer code", outer, CodeNotReadable, true},
		{"inner code", outer, CodeFileNotExist, true},
		{"through std wrap", std, CodeFileNotExist, true},
		{"absent code", outer, CodeRestricted, false},
		{"joined", joined, CodeSha256Mismatch, true},
		{"nil", nil, CodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}
