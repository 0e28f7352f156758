package util

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-sif/incbench"
	"github.com/stretchr/testify/require"
)

func TestSafeTransformRecoversPanics(t *testing.T) {
	boom := SafeTransform(incbench.TransformFunc(func(data []byte) ([]byte, error) {
		panic(fmt.Errorf("corrupt voxel"))
	}))
	_, err := boom.Apply([]byte{1, 2, 3})
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Transform Panic: corrupt voxel")
	require.Contains(t, err.Error(), "Payload: 3 bytes")

	str := SafeTransform(incbench.TransformFunc(func(data []byte) ([]byte, error) {
		panic("bad")
	}))
	_, err = str.Apply(nil)
	require.Contains(t, err.Error(), "Transform Panic: bad")
}

func TestSafeTransformPassesThrough(t *testing.T) {
	double := SafeTransform(incbench.TransformFunc(func(data []byte) ([]byte, error) {
		return append(data, data...), nil
	}))
	out, err := double.Apply([]byte{7})
	require.Nil(t, err)
	require.Equal(t, []byte{7, 7}, out)
}

func TestSafeRun(t *testing.T) {
	err := SafeRun("Launch", func() error { panic("nope") })
	require.True(t, strings.HasPrefix(err.Error(), "Launch Panic: nope"))
	require.Nil(t, SafeRun("Launch", func() error { return nil }))
}

func TestFormatMultiError(t *testing.T) {
	msg := FormatMultiError([]error{fmt.Errorf("a"), fmt.Errorf("b")})
	require.Equal(t, "a\nb\n", msg)
}
