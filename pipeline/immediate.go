package pipeline

import (
	"context"

	"github.com/go-sif/incbench"
)

// runImmediate executes each chain to completion, one stage after another, in input order
func (e *Engine) runImmediate(ctx context.Context, chains []*Chain) {
	for _, c := range chains {
		for !c.State().Terminal() {
			if err := e.runIteration(ctx, c); err != nil {
				break
			}
		}
	}
}

// runIteration drives c through one read, transform and write
func (e *Engine) runIteration(ctx context.Context, c *Chain) error {
	if err := ctx.Err(); err != nil {
		c.fail(err)
		return err
	}
	in := c.Input()
	if err := c.transition(incbench.Reading); err != nil {
		c.fail(err)
		return err
	}
	data, err := e.read(ctx, in)
	if err != nil {
		c.fail(err)
		return err
	}
	if err := c.transition(incbench.Transforming); err != nil {
		c.fail(err)
		return err
	}
	data, err = e.apply(in, data)
	if err != nil {
		c.fail(err)
		return err
	}
	if err := c.transition(incbench.Writing); err != nil {
		c.fail(err)
		return err
	}
	out, err := e.write(ctx, in, c.Iteration(), data)
	if err != nil {
		c.fail(err)
		return err
	}
	return c.advance(out)
}
