package statistics

import (
	"sort"

	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/profiling"
)

// ThreadStatsCalculator counts threads per state and per thread group in one snapshot.
type ThreadStatsCalculator struct {
	maxGroups     int
	includeDaemon bool
}

// ThreadStatsOption configures the ThreadStatsCalculator.
type ThreadStatsOption func(*ThreadStatsCalculator)

// WithMaxGroups sets the maximum number of thread groups to return.
func WithMaxGroups(n int) ThreadStatsOption {
	return func(c *ThreadStatsCalculator) {
		c.maxGroups = n
	}
}

// WithDaemon controls whether daemon threads are counted.
func WithDaemon(include bool) ThreadStatsOption {
	return func(c *ThreadStatsCalculator) {
		c.includeDaemon = include
	}
}

// NewThreadStatsCalculator creates a new ThreadStatsCalculator.
func NewThreadStatsCalculator(opts ...ThreadStatsOption) *ThreadStatsCalculator {
	c := &ThreadStatsCalculator{
		maxGroups:     0, // 0 means no limit
		includeDaemon: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GroupEntry is a thread group with its size and state breakdown.
type GroupEntry struct {
	Name    string                    `json:"name"`
	Count   int                       `json:"count"`
	ByState map[model.ThreadState]int `json:"by_state"`
}

// ThreadStatsResult holds the calculation result.
type ThreadStatsResult struct {
	Total   int                       `json:"total"`
	Daemon  int                       `json:"daemon"`
	ByState map[model.ThreadState]int `json:"by_state"`
	Groups  []GroupEntry              `json:"groups"`
	Threads []*model.ThreadRecord     `json:"-"`
}

// Calculate calculates thread statistics for the snapshot.
func (c *ThreadStatsCalculator) Calculate(snap *model.Snapshot) *ThreadStatsResult {
	result := &ThreadStatsResult{
		ByState: make(map[model.ThreadState]int),
		Groups:  make([]GroupEntry, 0),
		Threads: make([]*model.ThreadRecord, 0),
	}
	if snap == nil {
		return result
	}

	groups := make(map[string]*GroupEntry)
	for _, t := range snap.Threads {
		if t.Daemon && !c.includeDaemon {
			continue
		}
		result.Total++
		if t.Daemon {
			result.Daemon++
		}
		result.ByState[t.State]++
		result.Threads = append(result.Threads, t)

		name := profiling.ExtractThreadGroup(t.Name)
		g, ok := groups[name]
		if !ok {
			g = &GroupEntry{Name: name, ByState: make(map[model.ThreadState]int)}
			groups[name] = g
		}
		g.Count++
		g.ByState[t.State]++
	}

	for _, g := range groups {
		result.Groups = append(result.Groups, *g)
	}
	sort.Slice(result.Groups, func(i, j int) bool {
		if result.Groups[i].Count != result.Groups[j].Count {
			return result.Groups[i].Count > result.Groups[j].Count
		}
		return result.Groups[i].Name < result.Groups[j].Name
	})
	if c.maxGroups > 0 && len(result.Groups) > c.maxGroups {
		result.Groups = result.Groups[:c.maxGroups]
	}

	sort.SliceStable(result.Threads, func(i, j int) bool {
		return result.Threads[i].ID < result.Threads[j].ID
	})
	return result
}

// Waiting returns the number of WAITING and TIMED_WAITING threads.
func (r *ThreadStatsResult) Waiting() int {
	return r.ByState[model.StateWaiting] + r.ByState[model.StateTimedWaiting]
}
