package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/dump-analysis/internal/parser"
	"github.com/dump-analysis/internal/parser/histogram"
	"github.com/dump-analysis/internal/parser/threaddump"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/parallel"
	"github.com/dump-analysis/pkg/utils"
)

// FileProvider loads thread dumps from files, in the order given.
// An optional class histogram file is attached to the first snapshot.
type FileProvider struct {
	paths         []string
	histogramPath string
	logger        utils.Logger
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithHistogramFile attaches the class histogram in path to the first snapshot.
func WithHistogramFile(path string) FileOption {
	return func(p *FileProvider) {
		p.histogramPath = path
	}
}

// WithFileLogger sets the logger that receives parser statistics.
func WithFileLogger(logger utils.Logger) FileOption {
	return func(p *FileProvider) {
		p.logger = utils.OrNull(logger)
	}
}

// NewFileProvider creates a provider over the given dump files.
func NewFileProvider(paths []string, opts ...FileOption) *FileProvider {
	p := &FileProvider{
		paths:  paths,
		logger: &utils.NullLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshots parses every file concurrently, keeping argument order. Parsing is
// tolerant, so only missing or unreadable files fail.
func (p *FileProvider) Snapshots(ctx context.Context) ([]*model.Snapshot, error) {
	if len(p.paths) == 0 {
		return nil, errors.New(errors.CodeConfigError, "no dump files given")
	}

	opts := &parser.ParseOptions{Logger: p.logger}
	dumpParser := threaddump.NewParser(opts)

	snapshots, err := parallel.Map(ctx, parallel.DefaultPoolConfig(), p.paths, func(ctx context.Context, path string) (*model.Snapshot, error) {
		snap, err := parseFile(ctx, path, dumpParser.Parse)
		if err != nil {
			return nil, err
		}
		snap.Source = filepath.Base(path)
		if snap.CapturedAt.IsZero() {
			if info, err := os.Stat(path); err == nil {
				snap.CapturedAt = info.ModTime()
			}
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	if p.histogramPath != "" {
		h, err := parseFile(ctx, p.histogramPath, histogram.NewParser(opts).Parse)
		if err != nil {
			return nil, err
		}
		snapshots[0].Histogram = h
	}

	p.logger.Debug("loaded %d dumps from files", len(snapshots))
	return reindex(snapshots), nil
}

func parseFile[T any](ctx context.Context, path string, parse func(context.Context, io.Reader) (T, error)) (T, error) {
	var zero T

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, errors.Wrap(errors.CodeNotFound, "dump file not found: "+path, err)
		}
		return zero, errors.Wrap(errors.CodeInvalidInput, "failed to open "+path, err)
	}
	defer file.Close()

	return decode(ctx, file, parse)
}
