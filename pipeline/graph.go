package pipeline

import (
	"context"
	"fmt"

	"github.com/go-sif/incbench"
)

// Node is a deferred unit of work in a Graph. Running a node requires the values of its
// dependencies, in order.
type Node interface {
	ID() string
	Stage() incbench.StageName
	Chain() *Chain
	Iteration() int
	Deps() []Node
	run(ctx context.Context, e *Engine, inputs []interface{}) (interface{}, error)
}

type nodeBase struct {
	chain     *Chain
	iteration int
	stage     incbench.StageName
}

func (n *nodeBase) ID() string {
	return fmt.Sprintf("%s[%d]#%d", n.stage, n.chain.Index(), n.iteration)
}

func (n *nodeBase) Stage() incbench.StageName {
	return n.stage
}

func (n *nodeBase) Chain() *Chain {
	return n.chain
}

func (n *nodeBase) Iteration() int {
	return n.iteration
}

// ReadNode yields the decompressed payload of its chain's current input. Its input is the
// artifact of the upstream WriteNode, or the chain source when there is none.
type ReadNode struct {
	nodeBase
	upstream *WriteNode
}

// Deps returns the upstream write, if any
func (n *ReadNode) Deps() []Node {
	if n.upstream == nil {
		return nil
	}
	return []Node{n.upstream}
}

func (n *ReadNode) run(ctx context.Context, e *Engine, inputs []interface{}) (interface{}, error) {
	c := n.chain
	in := c.Source()
	if n.upstream != nil {
		in = inputs[0].(incbench.ObjectRef)
	}
	if err := ctx.Err(); err != nil {
		c.fail(err)
		return nil, err
	}
	if err := c.transition(incbench.Reading); err != nil {
		c.fail(err)
		return nil, err
	}
	data, err := e.read(ctx, in)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	return data, nil
}

// TransformNode yields the transformed payload of its ReadNode
type TransformNode struct {
	nodeBase
	input *ReadNode
}

// Deps returns the read this transform consumes
func (n *TransformNode) Deps() []Node {
	return []Node{n.input}
}

func (n *TransformNode) run(ctx context.Context, e *Engine, inputs []interface{}) (interface{}, error) {
	c := n.chain
	if err := c.transition(incbench.Transforming); err != nil {
		c.fail(err)
		return nil, err
	}
	out, err := e.apply(c.Input(), inputs[0].([]byte))
	if err != nil {
		c.fail(err)
		return nil, err
	}
	return out, nil
}

// WriteNode stores the payload of its TransformNode and yields the new artifact
type WriteNode struct {
	nodeBase
	input *TransformNode
}

// Deps returns the transform this write consumes
func (n *WriteNode) Deps() []Node {
	return []Node{n.input}
}

func (n *WriteNode) run(ctx context.Context, e *Engine, inputs []interface{}) (interface{}, error) {
	c := n.chain
	if err := c.transition(incbench.Writing); err != nil {
		c.fail(err)
		return nil, err
	}
	out, err := e.write(ctx, c.Input(), n.iteration, inputs[0].([]byte))
	if err != nil {
		c.fail(err)
		return nil, err
	}
	if err := c.advance(out); err != nil {
		c.fail(err)
		return nil, err
	}
	return out, nil
}

// Graph is the lazily built plan for a batch. Nothing executes until it is evaluated.
type Graph struct {
	chains    []*Chain
	terminals []Node // last write of each chain, nil for chains without iterations
	nodes     []Node
}

// Chains returns the chains planned by g
func (g *Graph) Chains() []*Chain {
	return g.chains
}

// Terminals returns the final node of every chain, nil where a chain has no iterations
func (g *Graph) Terminals() []Node {
	return g.terminals
}

// Nodes returns every node in construction order
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Defer builds the node graph for chains without running anything
func (e *Engine) Defer(chains []*Chain) *Graph {
	g := &Graph{chains: chains, terminals: make([]Node, len(chains))}
	for ci, c := range chains {
		var upstream *WriteNode
		for i := 0; i < c.Iterations(); i++ {
			r := &ReadNode{nodeBase: nodeBase{chain: c, iteration: i, stage: incbench.ReadStage}, upstream: upstream}
			t := &TransformNode{nodeBase: nodeBase{chain: c, iteration: i, stage: incbench.TransformStage}, input: r}
			w := &WriteNode{nodeBase: nodeBase{chain: c, iteration: i, stage: incbench.WriteStage}, input: t}
			g.nodes = append(g.nodes, r, t, w)
			upstream = w
		}
		if upstream != nil {
			g.terminals[ci] = upstream
		}
	}
	return g
}
