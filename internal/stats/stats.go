package stats

import (
	"sync"
	"time"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/instrument"
)

const statisticRollingWindows = 5

type stageStatistics struct {
	count              int64
	total              int64
	min                int64
	max                int64
	recentRuntimes     []int64 // for rolling average of recent stage durations
	recentRuntimesLen  int
	recentRuntimesHead int
}

// RunStatistics contains statistics about a running benchmark. It is fed by a Recorder
// through Observe and is safe for concurrent use.
type RunStatistics struct {
	lock            sync.RWMutex
	started         bool
	finished        bool
	startTime       time.Time
	totalRuntime    int64
	stages          map[incbench.StageName]*stageStatistics
	chainsCompleted int64
	chainsFailed    int64
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *RunStatistics) Start() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		rs.started = true
		rs.startTime = time.Now()
		rs.stages = make(map[incbench.StageName]*stageStatistics)
	}
}

// Finish completes statistics tracking
func (rs *RunStatistics) Finish() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.totalRuntime = time.Since(rs.startTime).Nanoseconds()
	rs.finished = true
}

// Observe accumulates the duration of an end event. Start events are ignored.
func (rs *RunStatistics) Observe(ev instrument.TimingEvent) {
	if !ev.End {
		return
	}
	rs.Start()
	rs.lock.Lock()
	defer rs.lock.Unlock()
	s, ok := rs.stages[ev.Stage]
	if !ok {
		s = &stageStatistics{recentRuntimes: make([]int64, statisticRollingWindows)}
		rs.stages[ev.Stage] = s
	}
	d := ev.Duration.Nanoseconds()
	if s.count == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.count++
	s.total += d
	s.recentRuntimes[s.recentRuntimesHead] = d
	s.recentRuntimesHead = (s.recentRuntimesHead + 1) % len(s.recentRuntimes)
	if s.recentRuntimesLen < len(s.recentRuntimes) {
		s.recentRuntimesLen++
	}
}

// EndChain tracks a chain reaching a terminal state
func (rs *RunStatistics) EndChain(completed bool) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if completed {
		rs.chainsCompleted++
	} else {
		rs.chainsFailed++
	}
}

func (rs *RunStatistics) stage(stage incbench.StageName) *stageStatistics {
	if rs.stages == nil {
		return nil
	}
	return rs.stages[stage]
}

// GetStartTime returns the start time of the benchmark
func (rs *RunStatistics) GetStartTime() time.Time {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	return rs.startTime
}

// GetRuntime returns the running time of the benchmark
func (rs *RunStatistics) GetRuntime() time.Duration {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	if !rs.started {
		return 0
	}
	if rs.finished {
		return time.Duration(rs.totalRuntime)
	}
	return time.Since(rs.startTime)
}

// GetStageCount returns the number of completed occurrences of a stage
func (rs *RunStatistics) GetStageCount(stage incbench.StageName) int64 {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	if s := rs.stage(stage); s != nil {
		return s.count
	}
	return 0
}

// GetStageTotal returns the summed duration of a stage
func (rs *RunStatistics) GetStageTotal(stage incbench.StageName) time.Duration {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	if s := rs.stage(stage); s != nil {
		return time.Duration(s.total)
	}
	return 0
}

// GetStageMean returns the mean duration of a stage
func (rs *RunStatistics) GetStageMean(stage incbench.StageName) time.Duration {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	if s := rs.stage(stage); s != nil && s.count > 0 {
		return time.Duration(s.total / s.count)
	}
	return 0
}

// GetStageBounds returns the shortest and longest durations of a stage
func (rs *RunStatistics) GetStageBounds(stage incbench.StageName) (time.Duration, time.Duration) {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	if s := rs.stage(stage); s != nil {
		return time.Duration(s.min), time.Duration(s.max)
	}
	return 0, 0
}

// GetRecentStageTime returns a rolling average of the most recent durations of a stage
func (rs *RunStatistics) GetRecentStageTime(stage incbench.StageName) time.Duration {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	s := rs.stage(stage)
	if s == nil || s.recentRuntimesLen == 0 {
		return 0
	}
	var total int64
	for _, d := range s.recentRuntimes {
		total += d
	}
	return time.Duration(total / int64(s.recentRuntimesLen))
}

// GetNumChainsCompleted returns the number of chains which reached Done
func (rs *RunStatistics) GetNumChainsCompleted() int64 {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	return rs.chainsCompleted
}

// GetNumChainsFailed returns the number of chains which reached Failed
func (rs *RunStatistics) GetNumChainsFailed() int64 {
	rs.lock.RLock()
	defer rs.lock.RUnlock()
	return rs.chainsFailed
}

var _ incbench.RuntimeStatistics = &RunStatistics{}
