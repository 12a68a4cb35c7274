//nolint:err113,testpackage // Test errors can be dynamic, internal testing requires access to private functions
package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *AssembleError
		expected string
	}{
		{
			name:     "error without cause",
			err:      &AssembleError{Kind: Config, Message: "invalid input"},
			expected: "config: invalid input",
		},
		{
			name: "error with cause",
			err: &AssembleError{
				Kind:    IO,
				Message: "failed to read file",
				Cause:   errors.New("permission denied"),
			},
			expected: "io: failed to read file (permission denied)",
		},
		{
			name: "error with operation",
			err: &AssembleError{
				Kind:      Tool,
				Message:   "exited non-zero",
				Operation: "strip",
			},
			expected: "tool: strip: exited non-zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAssembleError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &AssembleError{Kind: Tool, Message: "failed", Cause: cause}

	assert.Equal(t, cause, err.Unwrap())
}

func TestAssembleError_Is(t *testing.T) {
	t.Parallel()

	err1 := &AssembleError{Kind: Config, Message: "test"}
	err2 := &AssembleError{Kind: Config, Message: "different"}
	err3 := &AssembleError{Kind: IO, Message: "test"}

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(errors.New("regular error")))
}

func TestAssembleError_WithOperation(t *testing.T) {
	t.Parallel()

	err := New(Config, "test error")
	_ = err.WithOperation("resolve")

	assert.Equal(t, "resolve", err.Operation)
}

func TestNew(t *testing.T) {
	t.Parallel()

	err := New(Config, "test message")

	assert.Equal(t, Config, err.Kind)
	assert.Equal(t, "test message", err.Message)
	require.NoError(t, err.Cause)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("original error")
	err := Wrap(cause, IO, "wrapped message")

	assert.Equal(t, IO, err.Kind)
	assert.Equal(t, "wrapped message", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFatal(Config))
	assert.True(t, IsFatal(IO))
	assert.True(t, IsFatal(Tool))
	assert.True(t, IsFatal(Format))
	assert.False(t, IsFatal(Warn))
}
