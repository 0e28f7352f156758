package memory

import (
	"context"
	"io"
	"testing"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
	"github.com/stretchr/testify/require"
)

func TestAccessRules(t *testing.T) {
	ctx := context.Background()
	s := New(&Config{Authenticated: false})
	s.Put("b/public", []byte("p"), true)
	s.Put("b/private", []byte("q"), false)

	rc, err := s.Open(ctx, "b/public", incbench.OpenOptions{Anonymous: true})
	require.Nil(t, err)
	data, err := io.ReadAll(rc)
	require.Nil(t, err)
	require.Equal(t, "p", string(data))

	_, err = s.Open(ctx, "b/private", incbench.OpenOptions{Anonymous: true})
	require.True(t, errors.IsAccess(err))
	_, err = s.Open(ctx, "b/public", incbench.OpenOptions{})
	require.True(t, errors.IsAccess(err))
	_, err = s.Create(ctx, "b/new", incbench.OpenOptions{})
	require.True(t, errors.IsAccess(err))

	auth := New(nil)
	_, err = auth.Create(ctx, "b/new", incbench.OpenOptions{Anonymous: true})
	require.True(t, errors.IsAccess(err))
	_, err = auth.Open(ctx, "b/missing", incbench.OpenOptions{})
	require.True(t, errors.IsNotFound(err))
}

func TestCreateCommitsOnClose(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	w, err := s.Create(ctx, "b/out", incbench.OpenOptions{})
	require.Nil(t, err)
	_, err = w.Write([]byte("hello"))
	require.Nil(t, err)
	ok, _ := s.Exists(ctx, "b/out")
	require.False(t, ok)
	require.Nil(t, w.Close())
	data, ok := s.Get("b/out")
	require.True(t, ok)
	require.Equal(t, "hello", string(data))
	require.Equal(t, int64(1), s.Creates())
}

func TestGlobListDelete(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	s.Put("ds/sub-01/a_dwi.nii.gz", nil, true)
	s.Put("ds/sub-02/b_dwi.nii.gz", nil, false)
	s.Put("ds/sub-02/b_T1w.nii.gz", nil, true)

	matches, err := s.Glob(ctx, "ds/*/*_dwi.nii.gz", incbench.OpenOptions{})
	require.Nil(t, err)
	require.Equal(t, []string{"ds/sub-01/a_dwi.nii.gz", "ds/sub-02/b_dwi.nii.gz"}, matches)
	matches, err = s.Glob(ctx, "ds/*/*_dwi.nii.gz", incbench.OpenOptions{Anonymous: true})
	require.Nil(t, err)
	require.Equal(t, []string{"ds/sub-01/a_dwi.nii.gz"}, matches)
	_, err = s.Glob(ctx, "[", incbench.OpenOptions{})
	require.NotNil(t, err)

	listed, err := s.List(ctx, "ds/sub-02/")
	require.Nil(t, err)
	require.Len(t, listed, 2)
	require.Nil(t, s.Delete(ctx, listed...))
	listed, err = s.List(ctx, "ds/")
	require.Nil(t, err)
	require.Equal(t, []string{"ds/sub-01/a_dwi.nii.gz"}, listed)
}
