package pipeline

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/go-sif/incbench/errors"
	"golang.org/x/sync/semaphore"
	"go.uber.org/zap"
)

type future struct {
	once  sync.Once
	value interface{}
	err   error
}

// Evaluator resolves the terminal nodes of a Graph. Every node runs at most once and only
// after all of its dependencies succeeded. At most workers chains run at the same time.
type Evaluator struct {
	engine  *Engine
	workers int64
	logger  *zap.Logger
}

// NewEvaluator creates an Evaluator. workers below 1 is treated as 1.
func NewEvaluator(e *Engine, workers int) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{engine: e, workers: int64(workers), logger: e.logger}
}

// Evaluate runs g and blocks until every chain has finished or failed
func (ev *Evaluator) Evaluate(ctx context.Context, g *Graph) {
	futures := make(map[Node]*future, len(g.nodes))
	for _, n := range g.nodes {
		futures[n] = &future{}
	}
	sem := semaphore.NewWeighted(ev.workers)
	var wg sync.WaitGroup
	for _, term := range g.terminals {
		if term == nil {
			continue
		}
		wg.Add(1)
		go func(term Node) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				term.Chain().fail(err)
				return
			}
			defer sem.Release(1)
			if _, err := ev.resolve(ctx, term, futures); err != nil {
				ev.logger.Debug("terminal node failed", zap.String("node", term.ID()), zap.Error(err))
			}
		}(term)
	}
	wg.Wait()
}

func (ev *Evaluator) resolve(ctx context.Context, n Node, futures map[Node]*future) (interface{}, error) {
	f := futures[n]
	f.once.Do(func() {
		deps := n.Deps()
		inputs := make([]interface{}, len(deps))
		for i, d := range deps {
			v, err := ev.resolve(ctx, d, futures)
			if err != nil {
				f.err = errors.SkippedError{Node: n.ID(), Cause: rootCause(err)}
				return
			}
			inputs[i] = v
			release(d, futures[d])
		}
		f.value, f.err = n.run(ctx, ev.engine, inputs)
	})
	return f.value, f.err
}

// release drops the payload of a consumed read or transform. Every such node has exactly one
// dependant, so nothing reads the value again. Write results are small refs and are kept.
func release(n Node, f *future) {
	if _, ok := n.(*WriteNode); ok {
		return
	}
	f.value = nil
}

// rootCause unwraps skip markers down to the failure which started the cascade
func rootCause(err error) error {
	var skipped errors.SkippedError
	if stderrors.As(err, &skipped) {
		return skipped.Cause
	}
	return err
}
