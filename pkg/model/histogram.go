package model

import "sort"

// ClassHistogramEntry is one row of a class histogram.
type ClassHistogramEntry struct {
	// Rank is reported by the source tool and never recomputed.
	Rank      int    `json:"rank"`
	Instances int64  `json:"instances"`
	Bytes     int64  `json:"bytes"`
	ClassName string `json:"class_name"`
	// Module is nil when the source line carries no module.
	Module *string `json:"module,omitempty"`
}

// ModuleName returns the module or an empty string when absent.
func (e ClassHistogramEntry) ModuleName() string {
	if e.Module == nil {
		return ""
	}
	return *e.Module
}

// ClassHistogram is an ordered set of histogram entries.
type ClassHistogram struct {
	Entries []ClassHistogramEntry `json:"entries"`
}

// NewClassHistogram creates a histogram from entries in source order.
func NewClassHistogram(entries []ClassHistogramEntry) *ClassHistogram {
	if entries == nil {
		entries = make([]ClassHistogramEntry, 0)
	}
	return &ClassHistogram{Entries: entries}
}

// Len returns the number of entries.
func (h *ClassHistogram) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Entries)
}

// TotalBytes returns the sum of bytes across all entries.
func (h *ClassHistogram) TotalBytes() int64 {
	if h == nil {
		return 0
	}
	var total int64
	for _, e := range h.Entries {
		total += e.Bytes
	}
	return total
}

// TotalInstances returns the sum of instances across all entries.
func (h *ClassHistogram) TotalInstances() int64 {
	if h == nil {
		return 0
	}
	var total int64
	for _, e := range h.Entries {
		total += e.Instances
	}
	return total
}

// TopByBytes returns at most n entries ordered by bytes descending.
// Ties keep their original order.
func (h *ClassHistogram) TopByBytes(n int) []ClassHistogramEntry {
	if h == nil || n <= 0 {
		return []ClassHistogramEntry{}
	}

	sorted := make([]ClassHistogramEntry, len(h.Entries))
	copy(sorted, h.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bytes > sorted[j].Bytes
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
