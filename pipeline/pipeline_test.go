package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/errors"
	"github.com/go-sif/incbench/instrument"
	"github.com/go-sif/incbench/objectio"
	"github.com/go-sif/incbench/storage"
	"github.com/go-sif/incbench/storage/local"
	"github.com/go-sif/incbench/storage/memory"
	"github.com/go-sif/incbench/transform/nifti"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fixture struct {
	remote *memory.Store
	log    string
	engine *Engine
}

func createFixture(t *testing.T, conf *Config) *fixture {
	return createFixtureWithTransform(t, conf, nifti.Transform{})
}

func createFixtureWithTransform(t *testing.T, conf *Config, tr incbench.Transform) *fixture {
	logPath := filepath.Join(t.TempDir(), "bench.csv")
	remote := memory.New(nil)
	fs := afero.NewMemMapFs()
	rec := instrument.SetupLog(&instrument.Config{Path: logPath})
	oio := objectio.New(&objectio.Config{
		Router:   &storage.Router{Remote: remote, Local: local.New(fs)},
		Recorder: rec,
		CacheFs:  fs,
	})
	e, err := NewEngine(conf, &Dependencies{IO: oio, Transform: tr, Recorder: rec})
	require.Nil(t, err)
	return &fixture{remote: remote, log: logPath, engine: e}
}

func image(t *testing.T, seed byte, compressed bool) []byte {
	voxels := make([]byte, 8)
	for i := range voxels {
		voxels[i] = seed + byte(i)
	}
	img := nifti.Build(binary.LittleEndian, []int{2, 4}, nifti.DTUint8, voxels)
	if !compressed {
		return img
	}
	gz, err := codec.Gzip{}.Compress(img, codec.DefaultLevel)
	require.Nil(t, err)
	return gz
}

func (f *fixture) seed(t *testing.T, n int) []incbench.ObjectRef {
	refs := make([]incbench.ObjectRef, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("data/sub-%02d_dwi.nii.gz", i)
		f.remote.Put(key, image(t, byte(i*10), true), true)
		refs[i] = incbench.ParseObjectRef("s3://" + key)
	}
	return refs
}

func (f *fixture) events(t *testing.T) []instrument.TimingEvent {
	file, err := os.Open(f.log)
	require.Nil(t, err)
	defer file.Close()
	events, err := instrument.ReadLog(file)
	require.Nil(t, err)
	return events
}

func voxel(t *testing.T, data []byte, compressed bool, i int) byte {
	if compressed {
		var err error
		data, err = codec.Gzip{}.Decompress(data)
		require.Nil(t, err)
	}
	h, err := nifti.ParseHeader(data)
	require.Nil(t, err)
	return data[h.VoxOffset+i]
}

func TestNamingAcrossIterations(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 2, CompressionLevel: 6})
	f.remote.Put("data/file_dwi.nii.gz", image(t, 0, true), false)
	res := f.engine.Run(context.Background(), []incbench.ObjectRef{incbench.ParseObjectRef("s3://data/file_dwi.nii.gz")})
	require.Nil(t, res.Err)
	require.Len(t, res.Artifacts, 1)
	require.Equal(t, "s3://out/inc_1_file_dwi.nii.gz", res.Artifacts[0].Path)
	_, ok := f.remote.Get("out/inc_0_file_dwi.nii.gz")
	require.True(t, ok)
	final, ok := f.remote.Get("out/inc_1_file_dwi.nii.gz")
	require.True(t, ok)
	require.Equal(t, byte(2), voxel(t, final, true, 0))
}

func TestImmediateEventOrder(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 2, CompressionLevel: 6})
	src := f.seed(t, 1)
	res := f.engine.Run(context.Background(), src)
	require.Nil(t, res.Err)

	in0 := src[0].Path
	out0 := "s3://out/inc_0_sub-00_dwi.nii.gz"
	out1 := "s3://out/inc_1_sub-00_dwi.nii.gz"
	iteration := func(in, out string) []string {
		return []string{
			"read_start " + in, "fetch_start " + in, "fetch_end " + in,
			"decompress_start " + in, "decompress_end " + in, "read_end " + in,
			"transform_start " + in, "transform_end " + in,
			"write_start " + in, "compress_start " + in, "compress_end " + in,
			"store_start " + out, "store_end " + out, "write_end " + in,
		}
	}
	expected := append(iteration(in0, out0), iteration(out0, out1)...)
	actual := []string{}
	for _, ev := range f.events(t) {
		actual = append(actual, ev.Action()+" "+ev.Subject)
	}
	require.Equal(t, expected, actual)
}

func TestUncompressedInputSkipsCodecStages(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 1})
	f.remote.Put("data/brain.nii", image(t, 0, false), false)
	res := f.engine.Run(context.Background(), []incbench.ObjectRef{incbench.ParseObjectRef("s3://data/brain.nii")})
	require.Nil(t, res.Err)
	out, ok := f.remote.Get("out/inc_0_brain.nii")
	require.True(t, ok)
	require.Equal(t, byte(1), voxel(t, out, false, 0))
	for _, ev := range f.events(t) {
		require.NotEqual(t, incbench.DecompressStage, ev.Stage)
		require.NotEqual(t, incbench.CompressStage, ev.Stage)
	}
}

func TestStrategiesProduceIdenticalArtifacts(t *testing.T) {
	defer goleak.VerifyNone(t)
	outputs := make(map[incbench.Strategy]map[string][]byte)
	for _, s := range []incbench.Strategy{incbench.Immediate, incbench.Deferred} {
		f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 3, CompressionLevel: 6, Strategy: s, Workers: 2})
		src := f.seed(t, 4)
		res := f.engine.Run(context.Background(), src)
		require.Nil(t, res.Err)
		require.Len(t, res.Artifacts, 4)
		outputs[s] = make(map[string][]byte)
		for i, a := range res.Artifacts {
			require.Equal(t, fmt.Sprintf("s3://out/inc_2_sub-%02d_dwi.nii.gz", i), a.Path)
			data, ok := f.remote.Get(a.Key())
			require.True(t, ok)
			outputs[s][a.Path] = data
			require.Equal(t, byte(i*10+3), voxel(t, data, true, 0))
		}
	}
	require.Equal(t, outputs[incbench.Immediate], outputs[incbench.Deferred])
}

func TestDeferredPreservesPerChainOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 2, Strategy: incbench.Deferred, Workers: 3})
	src := f.seed(t, 3)
	res := f.engine.Run(context.Background(), src)
	require.Nil(t, res.Err)

	// group top-level events by chain, following the subject from one iteration to the next
	chainOf := make(map[string]int)
	for i, s := range src {
		chainOf[s.Path] = i
		chainOf[fmt.Sprintf("s3://out/inc_0_sub-%02d_dwi.nii.gz", i)] = i
	}
	perChain := make([][]string, len(src))
	for _, ev := range f.events(t) {
		switch ev.Stage {
		case incbench.ReadStage, incbench.TransformStage, incbench.WriteStage:
			i, ok := chainOf[ev.Subject]
			require.True(t, ok, ev.Subject)
			perChain[i] = append(perChain[i], ev.Action())
		}
	}
	once := []string{"read_start", "read_end", "transform_start", "transform_end", "write_start", "write_end"}
	for _, actions := range perChain {
		require.Equal(t, append(append([]string{}, once...), once...), actions)
	}
}

func TestMissingObjectFailsOnlyItsChain(t *testing.T) {
	for _, s := range []incbench.Strategy{incbench.Immediate, incbench.Deferred} {
		t.Run(s.String(), func(t *testing.T) {
			defer goleak.VerifyNone(t)
			f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 2, Strategy: s})
			src := f.seed(t, 2)
			missing := incbench.ParseObjectRef("s3://data/missing_dwi.nii.gz")
			res := f.engine.Run(context.Background(), []incbench.ObjectRef{src[0], missing, src[1]})

			require.NotNil(t, res.Err)
			require.True(t, errors.IsNotFound(res.Err))
			require.Len(t, res.Artifacts, 2)
			require.Equal(t, 2, res.Completed())
			failed := res.Failed()
			require.Len(t, failed, 1)
			require.Equal(t, missing.Path, failed[0].Source().Path)
			require.Equal(t, incbench.Reading, failed[0].FailedAt())
			require.Equal(t, 0, failed[0].Iteration())
			_, ok := f.remote.Get("out/inc_0_missing_dwi.nii.gz")
			require.False(t, ok)
		})
	}
}

func TestFailureMidChainStopsLaterIterations(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 3, Strategy: incbench.Deferred})
	src := f.seed(t, 1)
	f.remote.FailNext("out/inc_1_sub-00_dwi.nii.gz", fmt.Errorf("connection reset"))
	res := f.engine.Run(context.Background(), src)
	require.NotNil(t, res.Err)
	require.Empty(t, res.Artifacts)
	c := res.Chains[0]
	require.Equal(t, incbench.Failed, c.State())
	require.Equal(t, 1, c.Iteration())
	require.Equal(t, incbench.Writing, c.FailedAt())
	require.Contains(t, res.Err.Error(), "connection reset")
	_, ok := f.remote.Get("out/inc_2_sub-00_dwi.nii.gz")
	require.False(t, ok)
}

func TestZeroIterationsDoesNothing(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 0})
	src := f.seed(t, 2)
	res := f.engine.Run(context.Background(), src)
	require.Nil(t, res.Err)
	require.Empty(t, res.Artifacts)
	require.Empty(t, f.events(t))
	require.Equal(t, int64(0), f.remote.Opens())
	require.Equal(t, int64(0), f.remote.Creates())
}

func TestAnonymousAppliesToFirstReadOnly(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 2, Anonymous: true})
	src := f.seed(t, 1)
	res := f.engine.Run(context.Background(), src)
	require.Nil(t, res.Err)
	require.Len(t, res.Artifacts, 1)
	require.False(t, res.Artifacts[0].Anonymous)

	f.remote.Put("data/private_dwi.nii.gz", image(t, 0, true), false)
	res = f.engine.Run(context.Background(), []incbench.ObjectRef{incbench.ParseObjectRef("s3://data/private_dwi.nii.gz")})
	require.True(t, errors.IsAccess(res.Err))
}

func TestCachedRunServesRepeatedReads(t *testing.T) {
	f := createFixture(t, &Config{
		Bucket:     "s3://out",
		Iterations: 2,
		Cache:      incbench.CachePolicy{Enabled: true, StorageDir: "/cache", Compress: true},
	})
	src := f.seed(t, 1)
	res := f.engine.Run(context.Background(), src)
	require.Nil(t, res.Err)
	// the second iteration reads the first iteration's output from the cache
	require.Equal(t, int64(1), f.remote.Opens())
	require.Equal(t, int64(2), f.remote.Creates())
}

func TestInvalidConfig(t *testing.T) {
	oio := objectio.New(&objectio.Config{Router: &storage.Router{}})
	deps := &Dependencies{IO: oio, Transform: nifti.Transform{}}
	for _, conf := range []*Config{
		{Bucket: "s3://out", Iterations: 1, CompressionLevel: 10},
		{Bucket: "s3://out", Iterations: -1},
		{Bucket: "", Iterations: 1},
		{Bucket: "s3://out", Iterations: 1, Strategy: incbench.Strategy(7)},
	} {
		_, err := NewEngine(conf, deps)
		require.True(t, errors.IsConfig(err), "%+v", conf)
	}
}

func TestDefaults(t *testing.T) {
	f := createFixture(t, &Config{Bucket: "s3://out", Iterations: 1, Cache: incbench.CachePolicy{Enabled: true}})
	c := f.engine.Config()
	require.Greater(t, c.Workers, 0)
	require.Equal(t, incbench.DefaultCacheDir, c.Cache.StorageDir)
}

// trackedTransform allocates a fresh payload per call and counts how many earlier payloads the
// garbage collector has reclaimed by the time of the last call
type trackedTransform struct {
	calls         int
	last          int
	released      int32
	releasedAtEnd int32
}

func (tr *trackedTransform) Apply(data []byte) ([]byte, error) {
	tr.calls++
	if tr.calls == tr.last {
		deadline := time.Now().Add(2 * time.Second)
		for atomic.LoadInt32(&tr.released) < int32(tr.calls-1) && time.Now().Before(deadline) {
			runtime.GC()
			time.Sleep(5 * time.Millisecond)
		}
		tr.releasedAtEnd = atomic.LoadInt32(&tr.released)
	}
	out := make([]byte, 1<<20)
	copy(out, data)
	runtime.SetFinalizer(&out[0], func(*byte) { atomic.AddInt32(&tr.released, 1) })
	return out, nil
}

func TestPayloadsReleasedBetweenStages(t *testing.T) {
	const iterations = 8
	for _, s := range []incbench.Strategy{incbench.Immediate, incbench.Deferred} {
		tr := &trackedTransform{last: iterations}
		f := createFixtureWithTransform(t, &Config{Bucket: "s3://out", Iterations: iterations, Strategy: s, Workers: 1}, tr)
		f.remote.Put("data/brain.nii", image(t, 0, false), false)
		res := f.engine.Run(context.Background(), []incbench.ObjectRef{incbench.ParseObjectRef("s3://data/brain.nii")})
		require.Nil(t, res.Err, s.String())
		require.Equal(t, iterations, tr.calls)
		require.Equal(t, int32(iterations-1), tr.releasedAtEnd, s.String())
	}
}
