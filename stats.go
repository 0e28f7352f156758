package incbench

import "time"

// RuntimeStatistics facilitates the retrieval of statistics about a running benchmark
type RuntimeStatistics interface {
	// GetStartTime returns the start time of the benchmark
	GetStartTime() time.Time
	// GetRuntime returns the running time of the benchmark
	GetRuntime() time.Duration
	// GetStageCount returns the number of completed occurrences of a stage
	GetStageCount(stage StageName) int64
	// GetStageTotal returns the summed duration of every completed occurrence of a stage
	GetStageTotal(stage StageName) time.Duration
	// GetStageMean returns the mean duration of a stage
	GetStageMean(stage StageName) time.Duration
	// GetStageBounds returns the shortest and longest durations of a stage
	GetStageBounds(stage StageName) (min time.Duration, max time.Duration)
	// GetRecentStageTime returns a rolling average of the most recent durations of a stage
	GetRecentStageTime(stage StageName) time.Duration
	// GetNumChainsCompleted returns the number of chains which reached Done
	GetNumChainsCompleted() int64
	// GetNumChainsFailed returns the number of chains which reached Failed
	GetNumChainsFailed() int64
}
