// Package statistics aggregates thread records across snapshots.
package statistics

import (
	"sort"

	"github.com/dump-analysis/pkg/model"
)

// TopFramesCalculator ranks stack frames of RUNNABLE threads by how often they
// appear across snapshots. Interval sampling only approximates where CPU time goes.
type TopFramesCalculator struct {
	topN        int
	granularity string
	stackDepth  int
}

// TopFramesOption configures the TopFramesCalculator.
type TopFramesOption func(*TopFramesCalculator)

// WithTopN sets the number of top frames to return. Zero or less returns all.
func WithTopN(n int) TopFramesOption {
	return func(c *TopFramesCalculator) {
		c.topN = n
	}
}

// WithGranularity sets the frame key granularity (class, method or line).
func WithGranularity(g string) TopFramesOption {
	return func(c *TopFramesCalculator) {
		c.granularity = g
	}
}

// WithStackDepth sets how many frames from the top of each stack are counted.
// Zero counts the whole stack.
func WithStackDepth(depth int) TopFramesOption {
	return func(c *TopFramesCalculator) {
		c.stackDepth = depth
	}
}

// NewTopFramesCalculator creates a new TopFramesCalculator.
func NewTopFramesCalculator(opts ...TopFramesOption) *TopFramesCalculator {
	c := &TopFramesCalculator{
		topN:        10,
		granularity: model.GranularityLine,
		stackDepth:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopFrameEntry represents a frame key with its statistics.
type TopFrameEntry struct {
	Key     string
	Samples int64
	Percent float64
}

// TopFramesResult holds the calculation result.
type TopFramesResult struct {
	TopFrames []TopFrameEntry
	// TotalSamples is the number of RUNNABLE stacks seen.
	TotalSamples int64
}

// Calculate ranks frames over the RUNNABLE threads of the given snapshots.
// Ties are broken by key so the ranking is deterministic.
func (c *TopFramesCalculator) Calculate(snapshots []*model.Snapshot) *TopFramesResult {
	result := &TopFramesResult{
		TopFrames: make([]TopFrameEntry, 0),
	}

	counts := make(map[string]int64)
	for _, snap := range snapshots {
		for _, t := range snap.Threads {
			if t.State != model.StateRunnable || len(t.Frames) == 0 {
				continue
			}
			result.TotalSamples++

			depth := len(t.Frames)
			if c.stackDepth > 0 && c.stackDepth < depth {
				depth = c.stackDepth
			}

			seen := make(map[string]bool, depth)
			for _, f := range t.Frames[:depth] {
				key := f.Key(c.granularity)
				if seen[key] {
					continue
				}
				seen[key] = true
				counts[key]++
			}
		}
	}

	entries := make([]TopFrameEntry, 0, len(counts))
	for key, n := range counts {
		pct := 0.0
		if result.TotalSamples > 0 {
			pct = float64(n) / float64(result.TotalSamples) * 100
		}
		entries = append(entries, TopFrameEntry{Key: key, Samples: n, Percent: pct})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Samples != entries[j].Samples {
			return entries[i].Samples > entries[j].Samples
		}
		return entries[i].Key < entries[j].Key
	})

	if c.topN > 0 && c.topN < len(entries) {
		entries = entries[:c.topN]
	}
	result.TopFrames = entries
	return result
}
