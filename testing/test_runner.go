// Package testing provides helpers for running benchmarks against in-memory storage
package testing

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/driver"
	"github.com/go-sif/incbench/storage"
	"github.com/go-sif/incbench/storage/local"
	"github.com/go-sif/incbench/storage/memory"
	"github.com/go-sif/incbench/transform/nifti"
	"github.com/spf13/afero"
)

// SeedImages stores n gzipped NIfTI images named <prefix>sub-<i>_dwi.nii.gz. Image i is a 3x3x3
// uint16 volume whose voxel v holds i*100+v. It returns the stored keys in order.
func SeedImages(store *memory.Store, prefix string, n int, public bool) ([]string, error) {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		voxels := make([]byte, 2*27)
		for v := 0; v < 27; v++ {
			binary.LittleEndian.PutUint16(voxels[2*v:], uint16(i*100+v))
		}
		img := nifti.Build(binary.LittleEndian, []int{3, 3, 3}, nifti.DTUint16, voxels)
		gz, err := codec.Gzip{}.Compress(img, codec.DefaultLevel)
		if err != nil {
			return nil, err
		}
		keys[i] = fmt.Sprintf("%ssub-%02d_dwi.nii.gz", prefix, i)
		store.Put(keys[i], gz, public)
	}
	return keys, nil
}

// LocalRun runs a benchmark against remote, with an in-memory cache filesystem, the NIfTI
// increment and discarded artifact output unless opts says otherwise
func LocalRun(ctx context.Context, remote *memory.Store, opts *driver.Options) (summary *driver.Summary, err error) {
	// handle panics
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = anErr
			} else {
				panic(r)
			}
		}
	}()

	if opts.CacheFs == nil {
		opts.CacheFs = afero.NewMemMapFs()
	}
	if opts.Router == nil {
		opts.Router = &storage.Router{Remote: remote, Local: local.New(opts.CacheFs)}
	}
	if opts.Transform == nil {
		opts.Transform = nifti.Transform{}
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	return driver.Run(ctx, opts)
}
