package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dump-analysis/pkg/filter"
	"github.com/dump-analysis/pkg/model"
)

// HeapName is the report header of the heap analyzer.
const HeapName = "Heap"

// HeapAnalyzer summarizes the class histogram of the first snapshot.
type HeapAnalyzer struct {
	*BaseAnalyzer
	classes *filter.ClassFilter
}

// NewHeapAnalyzer creates a new heap analyzer.
func NewHeapAnalyzer(config *BaseAnalyzerConfig) *HeapAnalyzer {
	if config == nil {
		config = DefaultBaseAnalyzerConfig()
	}
	classes := filter.NewClassFilter()
	classes.AddBusinessPrefixes(config.BusinessPackages)
	return &HeapAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(HeapName, model.DumpsOne, config,
			OptionTop, OptionHeapThreshold),
		classes: classes,
	}
}

// CategoryTotal is the histogram share of one class category.
type CategoryTotal struct {
	Category  filter.ClassCategory
	Classes   int
	Instances int64
	Bytes     int64
}

// Categorize sums histogram entries per class category, in category display order.
// Categories without entries are left out.
func (a *HeapAnalyzer) Categorize(h *model.ClassHistogram) []CategoryTotal {
	sums := make(map[filter.ClassCategory]*CategoryTotal)
	if h != nil {
		for _, e := range h.Entries {
			cat := a.classes.Classify(e.ClassName)
			if strings.HasPrefix(e.ModuleName(), "java.") || strings.HasPrefix(e.ModuleName(), "jdk.") {
				if cat == filter.CategoryApplication {
					cat = filter.CategoryJDK
				}
			}
			ct, ok := sums[cat]
			if !ok {
				ct = &CategoryTotal{Category: cat}
				sums[cat] = ct
			}
			ct.Classes++
			ct.Instances += e.Instances
			ct.Bytes += e.Bytes
		}
	}

	out := make([]CategoryTotal, 0, len(sums))
	for _, cat := range filter.AllCategories() {
		if ct, ok := sums[cat]; ok {
			out = append(out, *ct)
		}
	}
	return out
}

// Analyze implements Analyzer.
func (a *HeapAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	snap, ok := primary(dumps)
	if !ok || snap.Histogram == nil {
		return model.EmptyResult(), nil
	}

	h := snap.Histogram
	total := h.TotalBytes()
	a.Logger().Debug("histogram with %d classes, %d bytes", h.Len(), total)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d classes, %s instances, %s\n",
		snap.Label(), h.Len(), humanize.Comma(h.TotalInstances()), humanize.IBytes(uint64(total)))

	top := opts.Top
	if top == 0 {
		top = h.Len()
	}
	entries := h.TopByBytes(top)
	if len(entries) > 0 {
		tbl := newTable("#", "Class", "Instances", "Bytes", "Share", "Module")
		for _, e := range entries {
			tbl.AppendRow([]interface{}{
				e.Rank,
				filter.NormalizeClassName(e.ClassName),
				humanize.Comma(e.Instances),
				humanize.IBytes(uint64(e.Bytes)),
				share(e.Bytes, total),
				e.ModuleName(),
			})
		}
		sb.WriteString(tbl.Render())
		sb.WriteString("\n")

		sb.WriteString("\nBy category:\n")
		cats := newTable("Category", "Classes", "Instances", "Bytes", "Share")
		for _, ct := range a.Categorize(h) {
			cats.AppendRow([]interface{}{
				ct.Category,
				ct.Classes,
				humanize.Comma(ct.Instances),
				humanize.IBytes(uint64(ct.Bytes)),
				share(ct.Bytes, total),
			})
		}
		sb.WriteString(cats.Render())
		sb.WriteString("\n")
	}

	exitCode := 0
	if opts.HeapThreshold > 0 && total >= opts.HeapThreshold {
		exitCode = 1
		fmt.Fprintf(&sb, "\nHistogram total %s is at or above the threshold of %s\n",
			humanize.IBytes(uint64(total)), humanize.IBytes(uint64(opts.HeapThreshold)))
	}
	return model.NewResult(sb.String(), true, exitCode), nil
}

func share(part, total int64) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
