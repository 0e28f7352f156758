package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyWrappedErrors(t *testing.T) {
	nf := fmt.Errorf("read: %w", NotFoundError{Path: "bucket/a"})
	require.True(t, IsNotFound(nf))
	require.False(t, IsAccess(nf))
	require.False(t, IsConfig(nf))

	acc := fmt.Errorf("write: %w", AccessError{Path: "bucket/a", Op: "write", Reason: "anonymous"})
	require.True(t, IsAccess(acc))
	require.Contains(t, acc.Error(), "write bucket/a denied")

	cfg := ConfigError{Option: "compression level", Reason: "10 is outside [0,9]"}
	require.True(t, IsConfig(cfg))
	require.Equal(t, "invalid compression level: 10 is outside [0,9]", cfg.Error())
}

func TestSkippedErrorUnwrapsCause(t *testing.T) {
	skipped := SkippedError{Node: "write/0", Cause: NotFoundError{Path: "bucket/a"}}
	require.True(t, IsSkipped(skipped))
	require.True(t, IsNotFound(skipped))
	require.True(t, IsLineage(fmt.Errorf("x: %w", LineageError{Name: "a_b"})))
}
