package provider

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dump-analysis/internal/parser"
	"github.com/dump-analysis/internal/parser/histogram"
	"github.com/dump-analysis/internal/parser/threaddump"
	"github.com/dump-analysis/internal/storage"
	"github.com/dump-analysis/pkg/config"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/telemetry"
	"github.com/dump-analysis/pkg/utils"
)

// LiveConfig describes one collection run against a running JVM.
type LiveConfig struct {
	PID       int
	Count     int
	Interval  time.Duration
	Tool      string // jstack or jcmd
	Histogram bool
	// Timeout bounds each external command. Zero means no limit.
	Timeout time.Duration
}

// LiveConfigFrom builds a LiveConfig for pid from the collection section.
func LiveConfigFrom(pid int, cfg config.CollectionConfig) LiveConfig {
	return LiveConfig{
		PID:       pid,
		Count:     cfg.Count,
		Interval:  cfg.Interval,
		Tool:      cfg.Tool,
		Histogram: cfg.Histogram,
		Timeout:   cfg.Timeout,
	}
}

// Validate checks the collection parameters.
func (c LiveConfig) Validate() error {
	switch {
	case c.PID <= 0:
		return errors.Newf(errors.CodeConfigError, "pid must be positive, got %d", c.PID)
	case c.Count < 1:
		return errors.Newf(errors.CodeConfigError, "dump count must be at least 1, got %d", c.Count)
	case c.Interval < 0:
		return errors.Newf(errors.CodeConfigError, "interval must not be negative, got %s", c.Interval)
	case c.Tool != config.ToolJstack && c.Tool != config.ToolJcmd:
		return errors.Newf(errors.CodeConfigError, "unsupported collection tool: %s", c.Tool)
	}
	return nil
}

// threadDumpCommand returns the command line that prints a thread dump with lock details.
func (c LiveConfig) threadDumpCommand() (string, []string) {
	pid := strconv.Itoa(c.PID)
	if c.Tool == config.ToolJcmd {
		return "jcmd", []string{pid, "Thread.print", "-l"}
	}
	return "jstack", []string{"-l", pid}
}

// histogramCommand prints the class histogram. jstack has no histogram mode, so this is always jcmd.
func (c LiveConfig) histogramCommand() (string, []string) {
	return "jcmd", []string{strconv.Itoa(c.PID), "GC.class_histogram"}
}

// LiveProvider samples a running JVM Count times, Interval apart.
type LiveProvider struct {
	cfg      LiveConfig
	runner   CommandRunner
	clock    utils.Clock
	logger   utils.Logger
	tracer   trace.Tracer
	store    storage.Storage
	prefix   string
	required bool
	archived []string
}

// LiveOption configures a LiveProvider.
type LiveOption func(*LiveProvider)

// WithRunner replaces the command runner.
func WithRunner(runner CommandRunner) LiveOption {
	return func(p *LiveProvider) {
		p.runner = runner
	}
}

// WithClock replaces the clock used for timestamps and the wait between dumps.
func WithClock(clock utils.Clock) LiveOption {
	return func(p *LiveProvider) {
		p.clock = clock
	}
}

// WithLiveLogger sets the collector logger.
func WithLiveLogger(logger utils.Logger) LiveOption {
	return func(p *LiveProvider) {
		p.logger = utils.OrNull(logger)
	}
}

// WithTracer sets the tracer used for per-collection spans.
func WithTracer(tracer trace.Tracer) LiveOption {
	return func(p *LiveProvider) {
		p.tracer = tracer
	}
}

// WithArchive persists the raw text of every collected snapshot under prefix.
func WithArchive(store storage.Storage, prefix string) LiveOption {
	return func(p *LiveProvider) {
		p.store = store
		p.prefix = prefix
	}
}

// WithRequiredArchive makes a failed archive write abort the collection with
// a STORAGE_ERROR instead of being logged. It has no effect without WithArchive.
func WithRequiredArchive() LiveOption {
	return func(p *LiveProvider) {
		p.required = true
	}
}

// NewLiveProvider creates a collector for cfg.
func NewLiveProvider(cfg LiveConfig, opts ...LiveOption) *LiveProvider {
	p := &LiveProvider{
		cfg:    cfg,
		runner: ExecRunner{},
		clock:  utils.NewRealClock(),
		logger: &utils.NullLogger{},
		tracer: telemetry.Tracer("provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Archived returns the storage keys written by the last Snapshots call.
func (p *LiveProvider) Archived() []string {
	out := make([]string, len(p.archived))
	copy(out, p.archived)
	return out
}

// Snapshots collects Count thread dumps. Cancellation or a failed command aborts the
// whole collection with a COLLECTION_ERROR; no partial result is returned.
func (p *LiveProvider) Snapshots(ctx context.Context) ([]*model.Snapshot, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	p.archived = p.archived[:0]

	logger := p.logger.WithField("pid", p.cfg.PID)
	logger.Info("collecting %d dumps with %s, %s apart", p.cfg.Count, p.cfg.Tool, p.cfg.Interval)

	snapshots := make([]*model.Snapshot, 0, p.cfg.Count)
	for i := 0; i < p.cfg.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(errors.CodeCollectionError, "collection interrupted", ctx.Err())
			case <-p.clock.After(p.cfg.Interval):
			}
		}

		snap, err := p.collect(ctx, i, logger)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return reindex(snapshots), nil
}

func (p *LiveProvider) collect(ctx context.Context, index int, logger utils.Logger) (snap *model.Snapshot, err error) {
	ctx, span := p.tracer.Start(ctx, "provider.collect", trace.WithAttributes(
		attribute.Int("jvm.pid", p.cfg.PID),
		attribute.Int("dump.index", index),
		attribute.String("dump.tool", p.cfg.Tool),
	))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	capturedAt := p.clock.Now()
	name, args := p.cfg.threadDumpCommand()
	raw, err := p.run(ctx, name, args)
	if err != nil {
		return nil, err
	}

	opts := &parser.ParseOptions{Logger: logger}
	snap, err = threaddump.NewParser(opts).Parse(ctx, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(errors.CodeCollectionError, "failed to read "+name+" output", err)
	}
	if len(snap.Threads) == 0 {
		return nil, errors.Newf(errors.CodeCollectionError, "%s output for pid %d contains no threads", name, p.cfg.PID)
	}
	snap.CapturedAt = capturedAt
	snap.Source = "pid " + strconv.Itoa(p.cfg.PID)
	if err := p.archive(ctx, capturedAt, storage.KindThreads, index, raw, logger); err != nil {
		return nil, err
	}

	if p.cfg.Histogram && index == 0 {
		name, args := p.cfg.histogramCommand()
		rawHisto, err := p.run(ctx, name, args)
		if err != nil {
			return nil, err
		}
		h, err := histogram.NewParser(opts).Parse(ctx, bytes.NewReader(rawHisto))
		if err != nil {
			return nil, errors.Wrap(errors.CodeCollectionError, "failed to read class histogram", err)
		}
		snap.Histogram = h
		if err := p.archive(ctx, capturedAt, storage.KindHistogram, index, rawHisto, logger); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("dump.threads", len(snap.Threads)))
	logger.Debug("dump %d: %d threads", index+1, len(snap.Threads))
	return snap, nil
}

func (p *LiveProvider) run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmdCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	out, err := p.runner.Run(cmdCtx, name, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(errors.CodeCollectionError, "collection interrupted", ctxErr)
		}
		return nil, errors.Wrap(errors.CodeCollectionError, name+" failed for pid "+strconv.Itoa(p.cfg.PID), err)
	}
	return out, nil
}

// archive stores raw output. Unless the archive is required, failures are
// logged and nil is returned: the snapshots are still usable for the analysis at hand.
func (p *LiveProvider) archive(ctx context.Context, ts time.Time, kind storage.SnapshotKind, index int, raw []byte, logger utils.Logger) error {
	if p.store == nil {
		return nil
	}
	key := storage.SnapshotKey(p.prefix, ts, kind, index+1)
	if err := p.store.Put(ctx, key, bytes.NewReader(raw)); err != nil {
		if p.required {
			return errors.Wrap(errors.CodeStorageError, "failed to archive "+key, err)
		}
		logger.Warn("failed to archive %s: %v", key, err)
		return nil
	}
	p.archived = append(p.archived, key)
	logger.Debug("archived %s to %s", kind, p.store.URL(key))
	return nil
}
