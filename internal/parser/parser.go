// Package parser defines the shared contract for the snapshot text parsers.
package parser

import (
	"context"
	"io"

	"github.com/dump-analysis/pkg/utils"
)

// Parser turns raw tool output into a typed value.
// Implementations are tolerant: unrecognized lines are skipped, not reported as errors.
// Parse only fails on reader I/O errors or context cancellation.
type Parser[T any] interface {
	// Parse parses data from the reader.
	Parse(ctx context.Context, reader io.Reader) (T, error)

	// Name returns the name of this parser.
	Name() string
}

// Stats counts what a parser did with its input.
type Stats struct {
	Lines   int
	Parsed  int
	Skipped int
}

// Log writes the stats at debug level.
func (s Stats) Log(logger utils.Logger, name string) {
	utils.OrNull(logger).Debug("%s parser: %d lines, %d parsed, %d skipped", name, s.Lines, s.Parsed, s.Skipped)
}

// ParseOptions holds common parsing options.
type ParseOptions struct {
	// Logger receives skip statistics. Nil discards them.
	Logger utils.Logger

	// MaxLineSize is the longest line kept. Longer lines are skipped.
	MaxLineSize int
}

// DefaultMaxLineSize fits very long generated class names and lambda frames.
const DefaultMaxLineSize = 1024 * 1024

// DefaultParseOptions returns default parsing options.
func DefaultParseOptions() *ParseOptions {
	return &ParseOptions{
		Logger:      &utils.NullLogger{},
		MaxLineSize: DefaultMaxLineSize,
	}
}

// Normalize fills zero values with defaults.
func (o *ParseOptions) Normalize() *ParseOptions {
	if o == nil {
		return DefaultParseOptions()
	}
	out := *o
	out.Logger = utils.OrNull(out.Logger)
	if out.MaxLineSize <= 0 {
		out.MaxLineSize = DefaultMaxLineSize
	}
	return &out
}
