package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dump-analysis/internal/statistics"
	"github.com/dump-analysis/pkg/model"
)

// MostWorkName is the report header of the most work analyzer.
const MostWorkName = "Most Work"

// stickyMinRunnable is how many snapshots a thread must be RUNNABLE in to be listed.
const stickyMinRunnable = 2

// MostWorkAnalyzer ranks the frames found on top of RUNNABLE stacks across
// snapshots. Each snapshot is one sample per thread, so the ranking is only as
// precise as the collection interval allows.
type MostWorkAnalyzer struct {
	*BaseAnalyzer
}

// NewMostWorkAnalyzer creates a new most work analyzer.
func NewMostWorkAnalyzer(config *BaseAnalyzerConfig) *MostWorkAnalyzer {
	return &MostWorkAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(MostWorkName, model.DumpsMany, config,
			OptionTop, OptionGranularity, OptionStackDepth, OptionConcentration),
	}
}

// Analyze implements Analyzer.
func (a *MostWorkAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	granularity := opts.Granularity
	if granularity == "" {
		granularity = model.GranularityLine
	}

	calc := statistics.NewTopFramesCalculator(
		statistics.WithTopN(opts.Top),
		statistics.WithGranularity(granularity),
		statistics.WithStackDepth(opts.StackDepth),
	)
	result := calc.Calculate(dumps)
	a.Logger().Debug("%d RUNNABLE samples, %d ranked frames", result.TotalSamples, len(result.TopFrames))
	if result.TotalSamples == 0 {
		return model.EmptyResult(), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d RUNNABLE stacks sampled across %d dumps (%s granularity)\n",
		result.TotalSamples, len(dumps), granularity)

	tbl := newTable("#", "Samples", "Share", "Frame")
	for i, e := range result.TopFrames {
		tbl.AppendRow([]interface{}{i + 1, e.Samples, fmt.Sprintf("%.1f%%", e.Percent), e.Key})
	}
	sb.WriteString(tbl.Render())
	sb.WriteString("\n")

	sticky := statistics.StickyThreads(dumps, stickyMinRunnable, granularity)
	if opts.Top > 0 && len(sticky) > opts.Top {
		sticky = sticky[:opts.Top]
	}
	if len(sticky) > 0 {
		sb.WriteString("\nThreads RUNNABLE in several dumps:\n")
		st := newTable("Thread", "ID", "Runnable", "Top frames")
		for _, s := range sticky {
			st.AppendRow([]interface{}{
				s.Key.Name,
				s.Key.ID,
				fmt.Sprintf("%d/%d", s.Runnable, len(dumps)),
				strings.Join(s.TopFrames, ", "),
			})
		}
		sb.WriteString(st.Render())
		sb.WriteString("\n")
	}

	exitCode := 0
	if opts.Concentration > 0 && len(result.TopFrames) > 0 {
		top := result.TopFrames[0]
		if top.Percent >= opts.Concentration {
			exitCode = 1
			fmt.Fprintf(&sb, "\n%s is on %.1f%% of RUNNABLE stacks, at or above %.1f%%\n",
				top.Key, top.Percent, opts.Concentration)
		}
	}
	return model.NewResult(sb.String(), true, exitCode), nil
}
