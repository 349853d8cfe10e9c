package wodrterrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeErrorIsMatchesKind(t *testing.T) {
	err := StaleMetric("updateMetric", "root.1.2", errors.New("span closed"))

	require.True(t, errors.Is(err, KindStaleMetric))
	require.False(t, errors.Is(err, KindCompileError))
}

func TestRuntimeErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("no strategy matched")
	err := CompileError("compile", "root.3", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestRuntimeErrorMessageIncludesBlockKey(t *testing.T) {
	err := StackOverflow("push", "root.1.1.1", errors.New("max depth 64 exceeded"))
	require.Contains(t, err.Error(), "root.1.1.1")
	require.Contains(t, err.Error(), "stack overflow")
}

func TestProviderErrorHasNoBlockKey(t *testing.T) {
	err := ProviderError("getEntries", errors.New("connection refused"))
	require.NotContains(t, err.Error(), " : ")
	require.True(t, errors.Is(err, KindProviderError))
}
