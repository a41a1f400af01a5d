package analyzer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/telemetry"
	"github.com/dump-analysis/pkg/utils"
)

// SectionResult is the outcome of one analyzer within a run.
type SectionResult struct {
	Name      string                `json:"name"`
	Result    *model.AnalyzerResult `json:"result"`
	Displayed bool                  `json:"displayed"`
	Dumps     int                   `json:"dumps"`
	Duration  time.Duration         `json:"duration_ns"`
}

// Report is the combined output of a run.
type Report struct {
	Text     string          `json:"text"`
	ExitCode int             `json:"exit_code"`
	Results  []SectionResult `json:"results"`
}

// Runner runs analyzers one after another against a shared snapshot sequence.
type Runner struct {
	logger utils.Logger
	tracer trace.Tracer
	clock  utils.Clock
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger utils.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = utils.OrNull(logger)
	}
}

// WithTracer sets the tracer used for per-analyzer spans.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithClock sets the clock used to time analyzers.
func WithClock(clock utils.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = clock
	}
}

// NewRunner creates a new Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: &utils.NullLogger{},
		tracer: telemetry.Tracer("analyzer"),
		clock:  utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the analyzers in order and combines their output.
// Each analyzer sees only its declared options and the snapshots its
// requirement selects. The report exit code is the highest analyzer exit code.
// Any error aborts the run and no report is returned.
func (r *Runner) Run(ctx context.Context, analyzers []Analyzer, dumps []*model.Snapshot, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	report := &Report{Results: make([]SectionResult, 0, len(analyzers))}
	sections := make([]string, 0, len(analyzers))

	for _, a := range analyzers {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.CodeAnalysisError, "analysis canceled", err)
		}

		section, err := r.runOne(ctx, a, dumps, opts)
		if err != nil {
			return nil, err
		}

		res := section.Result
		if res.ShouldDisplay && strings.TrimSpace(res.Output) != "" {
			section.Displayed = true
			sections = append(sections, "=== "+a.Name()+" ===\n"+strings.TrimRight(res.Output, " \t\r\n"))
		}
		if res.ExitCode > report.ExitCode {
			report.ExitCode = res.ExitCode
		}
		report.Results = append(report.Results, section)
	}

	report.Text = strings.TrimSpace(strings.Join(sections, "\n\n"))
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, a Analyzer, dumps []*model.Snapshot, opts Options) (SectionResult, error) {
	name := a.Name()
	ctx, span := r.tracer.Start(ctx, "analyzer.run", trace.WithAttributes(
		attribute.String("analyzer.name", name),
		attribute.String("analyzer.requirement", a.DumpRequirement().String()),
	))
	defer span.End()

	selected, err := SelectDumps(a, dumps)
	if err != nil {
		telemetry.RecordError(span, err)
		return SectionResult{}, err
	}

	start := r.clock.Now()
	result, err := a.Analyze(ctx, selected, opts.Project(a.SupportedOptions()))
	if err != nil {
		err = wrapAnalyzerError(name, err)
		telemetry.RecordError(span, err)
		return SectionResult{}, err
	}
	if result == nil {
		result = model.EmptyResult()
	}
	if result.ExitCode < 0 {
		err := errors.Newf(errors.CodeAnalysisError, "analyzer %s returned negative exit code %d", name, result.ExitCode)
		telemetry.RecordError(span, err)
		return SectionResult{}, err
	}

	elapsed := r.clock.Now().Sub(start)
	span.SetAttributes(
		attribute.Int("analyzer.exit_code", result.ExitCode),
		attribute.Int("analyzer.dumps", len(selected)),
	)
	r.logger.WithFields(map[string]interface{}{
		"analyzer":  name,
		"dumps":     len(selected),
		"exit_code": result.ExitCode,
	}).Debug("analyzer finished in %s", elapsed)

	return SectionResult{
		Name:     name,
		Result:   result,
		Dumps:    len(selected),
		Duration: elapsed,
	}, nil
}

// SelectDumps returns the snapshots an analyzer receives under its requirement.
func SelectDumps(a Analyzer, dumps []*model.Snapshot) ([]*model.Snapshot, error) {
	switch a.DumpRequirement() {
	case model.DumpsOne:
		if len(dumps) == 0 {
			return []*model.Snapshot{}, nil
		}
		return dumps[:1], nil
	case model.DumpsMany:
		if len(dumps) < 2 {
			return nil, requirementError(a.Name(), len(dumps))
		}
		return dumps, nil
	default:
		if dumps == nil {
			return []*model.Snapshot{}, nil
		}
		return dumps, nil
	}
}
