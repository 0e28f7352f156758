package incbench

import "fmt"

// StageName names an instrumented stage, used as the prefix of timing log actions
type StageName string

const (
	// ReadStage fetches (and if necessary decompresses) an iteration's input
	ReadStage StageName = "read"
	// TransformStage applies the Transform to freshly read bytes
	TransformStage StageName = "transform"
	// WriteStage compresses (if necessary) and stores an iteration's output
	WriteStage StageName = "write"
	// FetchStage is the raw object transfer nested within ReadStage
	FetchStage StageName = "fetch"
	// StoreStage is the raw object transfer nested within WriteStage
	StoreStage StageName = "store"
	// DecompressStage is codec work nested within ReadStage
	DecompressStage StageName = "decompress"
	// CompressStage is codec work nested within WriteStage
	CompressStage StageName = "compress"
)

// Strategy governs when stage work actually runs
type Strategy int

const (
	// Immediate runs every stage as soon as it is called, sequentially
	Immediate Strategy = iota
	// Deferred builds a task graph and runs it when the batch is evaluated
	Deferred
)

// String returns a textual representation of this Strategy
func (s Strategy) String() string {
	switch s {
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy translates a strategy name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "immediate", "":
		return Immediate, nil
	case "deferred", "dask":
		return Deferred, nil
	default:
		return Immediate, fmt.Errorf("%s is an unknown strategy", name)
	}
}

// ChainState is the state of a StageChain
type ChainState int

const (
	// Pending chains are waiting to start their next iteration
	Pending ChainState = iota
	// Reading chains are fetching an iteration's input
	Reading
	// Transforming chains are applying the Transform
	Transforming
	// Writing chains are storing an iteration's output
	Writing
	// Done chains completed every iteration
	Done
	// Failed chains aborted; their remaining iterations never run
	Failed
)

var chainStateNames = [...]string{"pending", "reading", "transforming", "writing", "done", "failed"}

// String returns a textual representation of this ChainState
func (s ChainState) String() string {
	if int(s) < 0 || int(s) >= len(chainStateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return chainStateNames[s]
}

// Terminal returns true iff no further transitions are possible from this state
func (s ChainState) Terminal() bool {
	return s == Done || s == Failed
}
