package pipeline

import (
	"fmt"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/internal/util"
	"github.com/hashicorp/go-multierror"
)

// Result summarizes a batch
type Result struct {
	Artifacts []incbench.ObjectRef // final output of every completed chain, in input order
	Chains    []*Chain
	Err       error // *multierror.Error of chain failures, or nil
}

func newResult(chains []*Chain) *Result {
	res := &Result{Chains: chains, Artifacts: []incbench.ObjectRef{}}
	var merr *multierror.Error
	for _, c := range chains {
		if out, ok := c.Output(); ok {
			res.Artifacts = append(res.Artifacts, out)
		}
		if c.State() == incbench.Failed {
			merr = multierror.Append(merr, fmt.Errorf("chain %s failed while %s at iteration %d: %w",
				c.Source().Path, c.FailedAt(), c.Iteration(), c.Err()))
		}
	}
	if merr != nil {
		merr.ErrorFormat = util.FormatMultiError
	}
	res.Err = merr.ErrorOrNil()
	return res
}

// Failed returns the chains which did not complete
func (r *Result) Failed() []*Chain {
	failed := []*Chain{}
	for _, c := range r.Chains {
		if c.State() == incbench.Failed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Completed returns the number of chains which reached Done
func (r *Result) Completed() int {
	n := 0
	for _, c := range r.Chains {
		if c.State() == incbench.Done {
			n++
		}
	}
	return n
}
