package statistics

import (
	"sort"

	"github.com/dump-analysis/pkg/model"
)

// StickyThread is a thread seen RUNNABLE in several snapshots.
type StickyThread struct {
	Key      model.ThreadKey
	Runnable int
	Seen     int
	// TopFrames holds the distinct top frames observed while RUNNABLE, in capture order.
	TopFrames []string
}

// StickyThreads correlates threads across snapshots by (id, name) and returns
// those RUNNABLE in at least minRunnable snapshots, most persistent first.
// Ids alone are not trusted because the JVM may reuse them.
func StickyThreads(snapshots []*model.Snapshot, minRunnable int, granularity string) []StickyThread {
	byKey := make(map[model.ThreadKey]*StickyThread)
	order := make([]model.ThreadKey, 0)

	for _, snap := range snapshots {
		for _, t := range snap.Threads {
			key := t.Key()
			st, ok := byKey[key]
			if !ok {
				st = &StickyThread{Key: key}
				byKey[key] = st
				order = append(order, key)
			}
			st.Seen++
			if t.State != model.StateRunnable {
				continue
			}
			st.Runnable++
			if top, ok := t.TopFrame(); ok {
				st.TopFrames = appendUnique(st.TopFrames, top.Key(granularity))
			}
		}
	}

	result := make([]StickyThread, 0)
	for _, key := range order {
		st := byKey[key]
		if st.Runnable >= minRunnable && st.Runnable > 0 {
			result = append(result, *st)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Runnable != result[j].Runnable {
			return result[i].Runnable > result[j].Runnable
		}
		if result[i].Key.Name != result[j].Key.Name {
			return result[i].Key.Name < result[j].Key.Name
		}
		return result[i].Key.ID < result[j].Key.ID
	})
	return result
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
