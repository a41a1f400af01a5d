package flamegraph

import (
	"fmt"
	"io"
	"os"

	"github.com/google/pprof/profile"
)

// ToProfile converts the flame graph into a pprof profile with one sample per
// distinct stack, so it can be explored with `go tool pprof`.
func ToProfile(fg *FlameGraph) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "stacks", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "stacks", Unit: "count"},
		Period:     1,
	}
	if fg == nil || fg.Root == nil {
		return p
	}

	b := &profileBuilder{
		p:         p,
		locations: make(map[string]*profile.Location),
	}
	for _, child := range fg.Root.Children {
		b.walk(child, nil)
	}
	return p
}

type profileBuilder struct {
	p         *profile.Profile
	locations map[string]*profile.Location
}

// walk emits a sample for every node with stacks ending at it.
// pprof expects locations leaf first.
func (b *profileBuilder) walk(node *Node, parents []*profile.Location) {
	loc := b.location(node)
	path := make([]*profile.Location, 0, len(parents)+1)
	path = append(path, loc)
	path = append(path, parents...)

	if self := node.SelfValue(); self > 0 {
		b.p.Sample = append(b.p.Sample, &profile.Sample{
			Location: path,
			Value:    []int64{self},
		})
	}
	for _, child := range node.Children {
		b.walk(child, path)
	}
}

func (b *profileBuilder) location(node *Node) *profile.Location {
	name := node.Name()
	if loc, ok := b.locations[name]; ok {
		return loc
	}

	fn := &profile.Function{
		ID:         uint64(len(b.p.Function) + 1),
		Name:       name,
		SystemName: name,
	}
	b.p.Function = append(b.p.Function, fn)

	loc := &profile.Location{
		ID:   uint64(len(b.p.Location) + 1),
		Line: []profile.Line{{Function: fn}},
	}
	b.p.Location = append(b.p.Location, loc)
	b.locations[name] = loc
	return loc
}

// WriteProfile writes the flame graph as a gzipped pprof profile.
func WriteProfile(fg *FlameGraph, w io.Writer) error {
	p := ToProfile(fg)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return p.Write(w)
}

// WriteProfileToFile writes the flame graph as a gzipped pprof profile file.
func WriteProfileToFile(fg *FlameGraph, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return WriteProfile(fg, file)
}
