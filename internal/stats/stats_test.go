package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/instrument"
	"github.com/stretchr/testify/require"
)

func end(stage incbench.StageName, d time.Duration) instrument.TimingEvent {
	return instrument.TimingEvent{Stage: stage, End: true, Subject: "s3://data/a.nii", Duration: d}
}

func TestObserveAggregatesEndEvents(t *testing.T) {
	rs := &RunStatistics{}
	rs.Observe(instrument.TimingEvent{Stage: incbench.ReadStage})
	require.Equal(t, int64(0), rs.GetStageCount(incbench.ReadStage))

	rs.Observe(end(incbench.ReadStage, 2*time.Second))
	rs.Observe(end(incbench.ReadStage, 4*time.Second))
	rs.Observe(end(incbench.WriteStage, time.Second))

	require.Equal(t, int64(2), rs.GetStageCount(incbench.ReadStage))
	require.Equal(t, 6*time.Second, rs.GetStageTotal(incbench.ReadStage))
	require.Equal(t, 3*time.Second, rs.GetStageMean(incbench.ReadStage))
	min, max := rs.GetStageBounds(incbench.ReadStage)
	require.Equal(t, 2*time.Second, min)
	require.Equal(t, 4*time.Second, max)
	require.Equal(t, 3*time.Second, rs.GetRecentStageTime(incbench.ReadStage))
	require.Equal(t, int64(1), rs.GetStageCount(incbench.WriteStage))
	require.Equal(t, time.Duration(0), rs.GetStageMean(incbench.FetchStage))
}

func TestRecentStageTimeIsRolling(t *testing.T) {
	rs := &RunStatistics{}
	for i := 0; i < statisticRollingWindows; i++ {
		rs.Observe(end(incbench.TransformStage, time.Hour))
	}
	for i := 0; i < statisticRollingWindows; i++ {
		rs.Observe(end(incbench.TransformStage, time.Second))
	}
	require.Equal(t, time.Second, rs.GetRecentStageTime(incbench.TransformStage))
}

func TestChainsAndRuntime(t *testing.T) {
	rs := &RunStatistics{}
	require.Equal(t, time.Duration(0), rs.GetRuntime())
	rs.Start()
	rs.EndChain(true)
	rs.EndChain(true)
	rs.EndChain(false)
	rs.Finish()
	require.Equal(t, int64(2), rs.GetNumChainsCompleted())
	require.Equal(t, int64(1), rs.GetNumChainsFailed())
	first := rs.GetRuntime()
	time.Sleep(time.Millisecond)
	require.Equal(t, first, rs.GetRuntime())
	require.False(t, rs.GetStartTime().IsZero())
}

func TestConcurrentObserve(t *testing.T) {
	rs := &RunStatistics{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rs.Observe(end(incbench.StoreStage, time.Millisecond))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(800), rs.GetStageCount(incbench.StoreStage))
}
