package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dump-analysis/internal/statistics"
	"github.com/dump-analysis/pkg/model"
)

// StatusName is the report header of the status analyzer.
const StatusName = "Status"

// StatusAnalyzer summarizes thread states of the first snapshot and lists
// the BLOCKED threads with the lock they wait on.
type StatusAnalyzer struct {
	*BaseAnalyzer
}

// NewStatusAnalyzer creates a new status analyzer.
func NewStatusAnalyzer(config *BaseAnalyzerConfig) *StatusAnalyzer {
	return &StatusAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(StatusName, model.DumpsOne, config,
			OptionBlockedThreshold, OptionExcludeDaemon),
	}
}

// Analyze implements Analyzer.
func (a *StatusAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	snap, ok := primary(dumps)
	if !ok {
		return model.EmptyResult(), nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	stats := statistics.NewThreadStatsCalculator(statistics.WithDaemon(!opts.ExcludeDaemon)).Calculate(snap)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d threads (%d daemon)\n", snap.Label(), stats.Total, stats.Daemon)
	if stats.Total > 0 {
		tbl := newTable("State", "Threads")
		for _, state := range model.AllThreadStates() {
			if n := stats.ByState[state]; n > 0 {
				tbl.AppendRow([]interface{}{state, n})
			}
		}
		sb.WriteString(tbl.Render())
		sb.WriteString("\n")
	}

	blocked := make([]*model.ThreadRecord, 0)
	for _, t := range stats.Threads {
		if t.State == model.StateBlocked {
			blocked = append(blocked, t)
		}
	}
	if len(blocked) > 0 {
		fmt.Fprintf(&sb, "\nBlocked threads (%d):\n", len(blocked))
		for _, t := range blocked {
			sb.WriteString("  " + describeWait(snap, t) + "\n")
		}
	}
	if waiting := stats.Waiting(); waiting > 0 {
		fmt.Fprintf(&sb, "\nWaiting threads: %d\n", waiting)
	}

	exitCode := 0
	if opts.BlockedThreshold > 0 && len(blocked) >= opts.BlockedThreshold {
		exitCode = 1
		fmt.Fprintf(&sb, "\n%d blocked threads reached the threshold of %d\n", len(blocked), opts.BlockedThreshold)
	}

	a.Logger().Debug("%d threads, %d blocked", stats.Total, len(blocked))
	return model.NewResult(sb.String(), true, exitCode), nil
}

// describeWait renders `"name" #id waiting on <lock> held by "owner" #id`.
func describeWait(snap *model.Snapshot, t *model.ThreadRecord) string {
	line := threadLabel(t)
	if t.WaitingOn == nil {
		return line
	}
	line += " waiting on " + t.WaitingOn.String()
	if owner, ok := lockHolder(snap, t); ok {
		line += " held by " + threadLabel(owner)
	}
	return line
}
