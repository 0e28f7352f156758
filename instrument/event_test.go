package instrument

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sif/incbench"
	"github.com/stretchr/testify/require"
)

func TestParseEventWithCommaInSubject(t *testing.T) {
	ev, err := ParseEvent("fetch_end,bucket/a,b.nii,1000,42,1.5")
	require.Nil(t, err)
	require.Equal(t, incbench.FetchStage, ev.Stage)
	require.True(t, ev.End)
	require.Equal(t, "bucket/a,b.nii", ev.Subject)
	require.Equal(t, int64(1000), ev.Timestamp)
	require.Equal(t, 42, ev.PID)
	require.Equal(t, 1500*time.Millisecond, ev.Duration)
}

func TestParseEventRejectsMalformedLines(t *testing.T) {
	_, err := ParseEvent("read_start,a,1")
	require.NotNil(t, err)
	_, err = ParseEvent("read_middle,a,1,2,")
	require.NotNil(t, err)
	_, err = ParseEvent("read_start,a,1,2,0.5")
	require.NotNil(t, err)
}

func TestReadLogSkipsHeader(t *testing.T) {
	log := Header + "\nread_start,a,1,2,\nread_end,a,3,2,0.000000002\n"
	events, err := ReadLog(strings.NewReader(log))
	require.Nil(t, err)
	require.Len(t, events, 2)
}

func TestAppendMakespan(t *testing.T) {
	dir := t.TempDir()
	start := time.Unix(1, 0)
	end := start.Add(1500 * time.Millisecond)
	require.Nil(t, AppendMakespan(dir, "benchmark_1i_1f_nocache_ds", start, end))
	require.Nil(t, AppendMakespan(dir, "benchmark_2i_1f_cache_ds", start, end))
	data, err := os.ReadFile(filepath.Join(dir, MakespanFile))
	require.Nil(t, err)
	require.Equal(t, "benchmark_1i_1f_nocache_ds,1000000000,2500000000,1.5\nbenchmark_2i_1f_cache_ds,1000000000,2500000000,1.5\n", string(data))
}
