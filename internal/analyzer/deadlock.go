package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dump-analysis/pkg/model"
)

// DeadlockName is the report header of the deadlock analyzer.
const DeadlockName = "Deadlock"

// deadlockExitCode is the severity of a confirmed deadlock.
const deadlockExitCode = 2

// Cycle is one deadlock: every thread waits for the next, the last for the first.
// Threads start at the lowest id.
type Cycle struct {
	Threads []*model.ThreadRecord
}

// key identifies the cycle by its canonical id sequence.
func (c Cycle) key() string {
	ids := make([]string, len(c.Threads))
	for i, t := range c.Threads {
		ids[i] = t.ID.String()
	}
	return strings.Join(ids, ",")
}

// DeadlockAnalyzer finds cycles in the wait-for graph of the first snapshot.
type DeadlockAnalyzer struct {
	*BaseAnalyzer
}

// NewDeadlockAnalyzer creates a new deadlock analyzer.
func NewDeadlockAnalyzer(config *BaseAnalyzerConfig) *DeadlockAnalyzer {
	return &DeadlockAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(DeadlockName, model.DumpsOne, config),
	}
}

// Analyze implements Analyzer.
func (a *DeadlockAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	snap, ok := primary(dumps)
	if !ok {
		return model.EmptyResult(), nil
	}

	cycles := FindCycles(snap)
	a.Logger().Debug("%d deadlock cycles in %d threads", len(cycles), len(snap.Threads))
	if len(cycles) == 0 {
		return model.EmptyResult(), nil
	}

	var sb strings.Builder
	if len(cycles) == 1 {
		sb.WriteString("Found 1 deadlock.\n")
	} else {
		fmt.Fprintf(&sb, "Found %d deadlocks.\n", len(cycles))
	}
	for i, c := range cycles {
		fmt.Fprintf(&sb, "\nDeadlock %d (%d threads):\n", i+1, len(c.Threads))
		for j, t := range c.Threads {
			next := c.Threads[(j+1)%len(c.Threads)]
			line := "  " + threadLabel(t) + " (" + t.State.String() + ")"
			if t.WaitingOn != nil {
				line += " waiting on " + t.WaitingOn.String()
			}
			sb.WriteString(line + " held by " + threadLabel(next) + "\n")
			if top, ok := t.TopFrame(); ok {
				sb.WriteString("      at " + top.String() + "\n")
			}
		}
	}
	return model.NewResult(sb.String(), true, deadlockExitCode), nil
}

// FindCycles returns every distinct wait-for cycle of the snapshot, ordered
// by their lowest thread id. Rotations of the same cycle are reported once.
func FindCycles(snap *model.Snapshot) []Cycle {
	byID := make(map[model.ThreadID]*model.ThreadRecord, len(snap.Threads))
	edges := make(map[model.ThreadID]model.ThreadID)
	for _, t := range snap.Threads {
		if _, dup := byID[t.ID]; dup {
			continue
		}
		byID[t.ID] = t
		if owner, ok := waitsFor(snap, t); ok {
			edges[t.ID] = owner.ID
		}
	}

	starts := make([]model.ThreadID, 0, len(edges))
	for id := range edges {
		starts = append(starts, id)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	cycles := make([]Cycle, 0)
	seen := make(map[string]bool)
	done := make(map[model.ThreadID]bool)
	for _, start := range starts {
		if done[start] {
			continue
		}

		path := make([]model.ThreadID, 0)
		onPath := make(map[model.ThreadID]int)
		cur, ok := start, true
		for ok && !done[cur] {
			if idx, loop := onPath[cur]; loop {
				c := canonicalCycle(path[idx:], byID)
				if k := c.key(); !seen[k] {
					seen[k] = true
					cycles = append(cycles, c)
				}
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)
			cur, ok = edges[cur]
		}
		for _, id := range path {
			done[id] = true
		}
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Threads[0].ID < cycles[j].Threads[0].ID
	})
	return cycles
}

// canonicalCycle rotates ids so the lowest comes first.
func canonicalCycle(ids []model.ThreadID, byID map[model.ThreadID]*model.ThreadRecord) Cycle {
	minIdx := 0
	for i, id := range ids {
		if id < ids[minIdx] {
			minIdx = i
		}
	}
	threads := make([]*model.ThreadRecord, len(ids))
	for i := range ids {
		threads[i] = byID[ids[(minIdx+i)%len(ids)]]
	}
	return Cycle{Threads: threads}
}
