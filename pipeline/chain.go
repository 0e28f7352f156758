package pipeline

import (
	"fmt"

	"github.com/go-sif/incbench"
)

// Transition is one recorded state change of a Chain
type Transition struct {
	Iteration int
	From      incbench.ChainState
	To        incbench.ChainState
}

// Chain is the sequence of read, transform and write iterations applied to one source object.
// Iteration i reads the output of iteration i-1; iteration 0 reads the source. A Chain is only
// ever advanced by one goroutine at a time.
type Chain struct {
	index      int
	source     incbench.ObjectRef
	iterations int
	bucket     string
	state      incbench.ChainState
	iteration  int
	current    incbench.ObjectRef
	history    []Transition
	err        error
	failedAt   incbench.ChainState
}

// NewChain creates a Pending chain. A chain with zero iterations starts Done.
func NewChain(index int, source incbench.ObjectRef, iterations int, bucket string) *Chain {
	c := &Chain{
		index:      index,
		source:     source,
		iterations: iterations,
		bucket:     bucket,
		state:      incbench.Pending,
		current:    source,
	}
	if iterations <= 0 {
		c.state = incbench.Done
	}
	return c
}

// Index returns the chain's position in its batch
func (c *Chain) Index() int {
	return c.index
}

// Source returns the chain's source object
func (c *Chain) Source() incbench.ObjectRef {
	return c.source
}

// Iterations returns the number of iterations the chain was built for
func (c *Chain) Iterations() int {
	return c.iterations
}

// Bucket returns the output location of the chain
func (c *Chain) Bucket() string {
	return c.bucket
}

// State returns the current state
func (c *Chain) State() incbench.ChainState {
	return c.state
}

// Iteration returns the index of the current (or, once Done, one past the last) iteration
func (c *Chain) Iteration() int {
	return c.iteration
}

// Input returns the input of the current iteration
func (c *Chain) Input() incbench.ObjectRef {
	return c.current
}

// Output returns the final artifact of a Done chain which ran at least one iteration
func (c *Chain) Output() (incbench.ObjectRef, bool) {
	if c.state != incbench.Done || c.iterations <= 0 {
		return incbench.ObjectRef{}, false
	}
	return c.current, true
}

// Err returns the failure which aborted the chain, if any
func (c *Chain) Err() error {
	return c.err
}

// FailedAt returns the state the chain was in when it failed
func (c *Chain) FailedAt() incbench.ChainState {
	return c.failedAt
}

// History returns every transition so far
func (c *Chain) History() []Transition {
	return append([]Transition(nil), c.history...)
}

func validTransition(from, to incbench.ChainState) bool {
	if to == incbench.Failed {
		return !from.Terminal()
	}
	switch from {
	case incbench.Pending:
		return to == incbench.Reading
	case incbench.Reading:
		return to == incbench.Transforming
	case incbench.Transforming:
		return to == incbench.Writing
	case incbench.Writing:
		return to == incbench.Pending || to == incbench.Done
	default:
		return false
	}
}

func (c *Chain) transition(to incbench.ChainState) error {
	if !validTransition(c.state, to) {
		return fmt.Errorf("chain %s: illegal transition %s -> %s", c.source.Path, c.state, to)
	}
	c.history = append(c.history, Transition{Iteration: c.iteration, From: c.state, To: to})
	c.state = to
	return nil
}

// fail moves the chain to Failed, remembering where and why
func (c *Chain) fail(err error) {
	if c.state.Terminal() {
		return
	}
	c.failedAt = c.state
	c.err = err
	_ = c.transition(incbench.Failed)
}

// advance completes the current iteration with its output
func (c *Chain) advance(out incbench.ObjectRef) error {
	next := incbench.Pending
	if c.iteration+1 >= c.iterations {
		next = incbench.Done
	}
	if err := c.transition(next); err != nil {
		return err
	}
	c.current = out
	c.iteration++
	return nil
}
