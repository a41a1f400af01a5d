package analyzer

import (
	"context"
	"strings"

	"github.com/dump-analysis/internal/flamegraph"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
)

// FlameName is the report header of the flame analyzer.
const FlameName = "Flame"

// FlameAnalyzer merges every stack of every snapshot into one call tree.
type FlameAnalyzer struct {
	*BaseAnalyzer
}

// NewFlameAnalyzer creates a new flame analyzer.
func NewFlameAnalyzer(config *BaseAnalyzerConfig) *FlameAnalyzer {
	return &FlameAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(FlameName, model.DumpsAny, config,
			OptionMinPercent, OptionFlameFormat),
	}
}

// Analyze implements Analyzer.
func (a *FlameAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fg, err := BuildFlameGraph(ctx, dumps, opts.MinPercent)
	if err != nil {
		return nil, err
	}
	a.Logger().Debug("flame tree: %d stacks, depth %d", fg.TotalSamples, fg.MaxDepth)
	if fg.IsEmpty() {
		return model.EmptyResult(), nil
	}

	var w flamegraph.Writer = flamegraph.NewTreeWriter()
	if opts.FlameFormat == FlameFormatFolded {
		w = flamegraph.NewFoldedWriter()
	}
	var sb strings.Builder
	if err := w.Write(fg, &sb); err != nil {
		return nil, errors.Wrap(errors.CodeAnalysisError, "failed to render flame tree", err)
	}
	return model.NewResult(sb.String(), true, 0), nil
}

// BuildFlameGraph merges all thread stacks of dumps, pruning nodes below minPercent.
func BuildFlameGraph(ctx context.Context, dumps []*model.Snapshot, minPercent float64) (*flamegraph.FlameGraph, error) {
	gen := flamegraph.NewGenerator(&flamegraph.GeneratorOptions{MinPercent: minPercent})
	fg, err := gen.Generate(ctx, dumps)
	if err != nil {
		return nil, errors.Wrap(errors.CodeAnalysisError, "flame tree generation canceled", err)
	}
	return fg, nil
}
