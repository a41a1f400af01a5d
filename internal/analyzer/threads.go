package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dump-analysis/internal/statistics"
	"github.com/dump-analysis/pkg/model"
)

// ThreadsName is the report header of the threads analyzer.
const ThreadsName = "Threads"

// ThreadsAnalyzer lists the threads of every snapshot and the size of each thread pool.
// It is informational and never fails.
type ThreadsAnalyzer struct {
	*BaseAnalyzer
}

// NewThreadsAnalyzer creates a new threads analyzer.
func NewThreadsAnalyzer(config *BaseAnalyzerConfig) *ThreadsAnalyzer {
	return &ThreadsAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(ThreadsName, model.DumpsAny, config,
			OptionTop, OptionExcludeDaemon),
	}
}

// Analyze implements Analyzer.
func (a *ThreadsAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(dumps) == 0 {
		return model.NewResult("No dumps.", true, 0), nil
	}

	calc := statistics.NewThreadStatsCalculator(
		statistics.WithMaxGroups(opts.Top),
		statistics.WithDaemon(!opts.ExcludeDaemon),
	)

	sections := make([]string, 0, len(dumps))
	for _, snap := range dumps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats := calc.Calculate(snap)

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s: %d threads\n", snap.Label(), stats.Total)
		if stats.Total > 0 {
			tbl := newTable("Name", "ID", "State", "Top frame")
			for _, t := range stats.Threads {
				top := ""
				if f, ok := t.TopFrame(); ok {
					top = f.String()
				}
				tbl.AppendRow([]interface{}{t.Name, t.ID, t.State, top})
			}
			sb.WriteString(tbl.Render())
			sb.WriteString("\n\n")

			groups := newTable("Group", "Threads", "Runnable", "Blocked", "Waiting")
			for _, g := range stats.Groups {
				groups.AppendRow([]interface{}{
					g.Name,
					g.Count,
					g.ByState[model.StateRunnable],
					g.ByState[model.StateBlocked],
					g.ByState[model.StateWaiting] + g.ByState[model.StateTimedWaiting],
				})
			}
			sb.WriteString(groups.Render())
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}
	return model.NewResult(strings.Join(sections, "\n\n"), true, 0), nil
}
