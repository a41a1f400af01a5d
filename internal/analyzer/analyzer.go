// Package analyzer defines the analyzer contract, the concrete analyzers and
// the runner that combines their output into one report.
package analyzer

import (
	"context"

	"github.com/dump-analysis/pkg/model"
)

// Analyzer is one unit of analysis over a sequence of snapshots.
type Analyzer interface {
	// Name returns the report section header.
	Name() string

	// DumpRequirement declares how many snapshots the analyzer needs.
	DumpRequirement() model.DumpRequirement

	// SupportedOptions returns the option keys the analyzer consumes.
	// The runner hides every other option from it.
	SupportedOptions() []OptionKey

	// Analyze runs the analysis. It must not modify the snapshots.
	// Errors are reserved for semantic option problems.
	Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error)
}
