package flamegraph

import (
	"context"
	"io"

	"github.com/dump-analysis/pkg/model"
)

// GeneratorOptions holds configuration options for the flame graph generator.
type GeneratorOptions struct {
	// MinPercent is the minimum percentage for a node to be included.
	MinPercent float64

	// States restricts the merged threads to these states. Empty means all.
	States []model.ThreadState
}

// DefaultGeneratorOptions returns default generator options.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		MinPercent: 0,
	}
}

// Generator merges the thread stacks of snapshots into a flame graph.
type Generator struct {
	opts   *GeneratorOptions
	states map[model.ThreadState]bool
}

// NewGenerator creates a new flame graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	g := &Generator{opts: opts}
	if len(opts.States) > 0 {
		g.states = make(map[model.ThreadState]bool, len(opts.States))
		for _, s := range opts.States {
			g.states[s] = true
		}
	}
	return g
}

// Generate builds a flame graph in which every thread stack counts once.
func (g *Generator) Generate(ctx context.Context, snapshots []*model.Snapshot) (*FlameGraph, error) {
	fg := NewFlameGraph()

	for _, snap := range snapshots {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, t := range snap.Threads {
			if g.states != nil && !g.states[t.State] {
				continue
			}
			g.appendStack(fg, t.Frames)
		}
	}

	fg.TotalSamples = fg.Root.Value
	fg.Cleanup(g.opts.MinPercent)
	fg.CalculateMaxDepth()

	return fg, nil
}

// appendStack merges frames root first; jstack prints them most recent first.
func (g *Generator) appendStack(fg *FlameGraph, frames []model.StackFrame) {
	if len(frames) == 0 {
		return
	}

	node := fg.Root
	node.Value++

	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		child := node.GetChild(f.Class, f.Method)
		if child == nil {
			child = NewNode(f.Class, f.Method, 0)
			node.AddChild(child)
		}
		child.Value++
		node = child
	}
}

// Writer defines the interface for writing flame graph output.
type Writer interface {
	Write(fg *FlameGraph, w io.Writer) error
}
