package qat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NewQueueError("enqueue_burst", 3, 1, CodeBusy, "ring full")
	require.True(t, errors.Is(err, NewError("", CodeBusy, "")))
	require.False(t, errors.Is(err, NewError("", CodeInvalid, "")))
}

func TestWrapErrorPreservesInnerFields(t *testing.T) {
	base := NewQueueError("build_sgl", 1, 2, CodeInvalid, "chain too short")
	wrapped := WrapError("enqueue_burst", base)

	require.Equal(t, "enqueue_burst", wrapped.Op)
	require.Equal(t, CodeInvalid, wrapped.Code)
	require.Equal(t, uint32(1), wrapped.DevID)
	require.Equal(t, 2, wrapped.Queue)
}

func TestWrapErrorNilIsNil(t *testing.T) {
	require.Nil(t, WrapError("op", nil))
}

func TestUnwrapReturnsInner(t *testing.T) {
	inner := errors.New("translation fault")
	err := &Error{Op: "dma_translate", Code: CodeFault, Inner: inner}
	require.ErrorIs(t, err, err)
	require.Equal(t, inner, errors.Unwrap(err))
}
