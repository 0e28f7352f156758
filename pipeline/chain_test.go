package pipeline

import (
	"fmt"
	"testing"

	"github.com/go-sif/incbench"
	"github.com/stretchr/testify/require"
)

func TestChainLifecycle(t *testing.T) {
	src := incbench.ParseObjectRef("s3://data/a_dwi.nii")
	c := NewChain(0, src, 2, "s3://out")
	require.Equal(t, incbench.Pending, c.State())
	for i := 0; i < 2; i++ {
		require.Nil(t, c.transition(incbench.Reading))
		require.Nil(t, c.transition(incbench.Transforming))
		require.Nil(t, c.transition(incbench.Writing))
		require.Nil(t, c.advance(incbench.ParseObjectRef(fmt.Sprintf("s3://out/inc_%d_a_dwi.nii", i))))
	}
	require.Equal(t, incbench.Done, c.State())
	out, ok := c.Output()
	require.True(t, ok)
	require.Equal(t, "s3://out/inc_1_a_dwi.nii", out.Path)
	require.Len(t, c.History(), 8)
}

func TestChainRejectsIllegalTransitions(t *testing.T) {
	c := NewChain(0, incbench.ParseObjectRef("s3://data/a_dwi.nii"), 1, "s3://out")
	require.NotNil(t, c.transition(incbench.Writing))
	require.Nil(t, c.transition(incbench.Reading))
	require.NotNil(t, c.transition(incbench.Pending))
	c.fail(fmt.Errorf("boom"))
	require.Equal(t, incbench.Failed, c.State())
	require.Equal(t, incbench.Reading, c.FailedAt())
	require.NotNil(t, c.transition(incbench.Reading))
	// a second failure does not overwrite the first
	c.fail(fmt.Errorf("later"))
	require.EqualError(t, c.Err(), "boom")
}

func TestZeroIterationChainHasNoOutput(t *testing.T) {
	c := NewChain(0, incbench.ParseObjectRef("s3://data/a_dwi.nii"), 0, "s3://out")
	require.Equal(t, incbench.Done, c.State())
	_, ok := c.Output()
	require.False(t, ok)
}

func TestDeferBuildsLinkedNodes(t *testing.T) {
	e := &Engine{conf: &Config{}}
	chains := []*Chain{
		NewChain(0, incbench.ParseObjectRef("s3://data/a_dwi.nii"), 2, "s3://out"),
		NewChain(1, incbench.ParseObjectRef("s3://data/b_dwi.nii"), 0, "s3://out"),
	}
	g := e.Defer(chains)
	require.Len(t, g.Nodes(), 6)
	require.Nil(t, g.Terminals()[1])
	term := g.Terminals()[0]
	require.Equal(t, incbench.WriteStage, term.Stage())
	require.Equal(t, 1, term.Iteration())
	// walk back to the first read
	n := term
	depth := 0
	for len(n.Deps()) > 0 {
		n = n.Deps()[0]
		depth++
	}
	require.Equal(t, 5, depth)
	require.Equal(t, "read[0]#0", n.ID())
	// nothing ran
	require.Equal(t, incbench.Pending, chains[0].State())
}
