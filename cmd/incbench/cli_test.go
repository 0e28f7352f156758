package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sif/incbench/errors"
	"github.com/go-sif/incbench/storage/local"
	"github.com/go-sif/incbench/storage/memory"
	"github.com/go-sif/incbench/transform/nifti"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCmdOnLocalFiles(t *testing.T) {
	dir := t.TempDir()
	img := nifti.Build(binary.LittleEndian, []int{4}, nifti.DTUint8, []byte{1, 2, 3, 4})
	require.Nil(t, os.WriteFile(filepath.Join(dir, "sub-01_dwi.nii"), img, 0644))
	bench := filepath.Join(dir, "bench.csv")

	out, err := execute(t, "run", "file://"+dir+"/*.nii", "file://"+dir+"/out",
		"--it", "2", "--bench-file", bench, "--store", "local", "--log-level", "error")
	require.Nil(t, err)
	require.Contains(t, out, "file://"+dir+"/out/inc_1_sub-01_dwi.nii")

	data, err := os.ReadFile(filepath.Join(dir, "out", "inc_1_sub-01_dwi.nii"))
	require.Nil(t, err)
	h, err := nifti.ParseHeader(data)
	require.Nil(t, err)
	require.Equal(t, []byte{3, 4, 5, 6}, data[h.VoxOffset:])

	makespan, err := os.ReadFile(filepath.Join(dir, "makespan.csv"))
	require.Nil(t, err)
	require.True(t, strings.HasPrefix(string(makespan), "bench.csv,"))
}

func TestRunCmdRejectsBadCompressionLevel(t *testing.T) {
	dir := t.TempDir()
	bench := filepath.Join(dir, "bench.csv")
	_, err := execute(t, "run", "file://"+dir+"/*.nii", "file://"+dir+"/out",
		"--compression-level", "10", "--bench-file", bench, "--store", "local", "--log-level", "error")
	require.True(t, errors.IsConfig(err))
	_, statErr := os.Stat(bench)
	require.True(t, os.IsNotExist(statErr))
	runLevel = 6
}

func TestRunCmdRejectsUnknownStrategy(t *testing.T) {
	_, err := execute(t, "run", "a", "b", "--strategy", "parallel", "--store", "memory")
	require.NotNil(t, err)
	runStrategy = "immediate"
}

func TestCreateRouter(t *testing.T) {
	defer func() { storeKind = "s3" }()
	storeKind = "memory"
	r, err := createRouter()
	require.Nil(t, err)
	require.IsType(t, &memory.Store{}, r.Remote)
	storeKind = "local"
	r, err = createRouter()
	require.Nil(t, err)
	require.IsType(t, &local.Store{}, r.Remote)
	storeKind = "ftp"
	_, err = createRouter()
	require.NotNil(t, err)
}
