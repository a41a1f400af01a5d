package analyzer

import (
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
)

// OptionKey names one analyzer option.
type OptionKey string

// Option keys. The string values double as CLI flag and config names.
const (
	OptionTop              OptionKey = "top"
	OptionBlockedThreshold OptionKey = "blocked-threshold"
	OptionGranularity      OptionKey = "granularity"
	OptionStackDepth       OptionKey = "stack-depth"
	OptionConcentration    OptionKey = "concentration"
	OptionMinPercent       OptionKey = "min-percent"
	OptionFlameFormat      OptionKey = "flame-format"
	OptionExcludeDaemon    OptionKey = "exclude-daemon"
	OptionHeapThreshold    OptionKey = "heap-threshold"
)

// Flame output formats.
const (
	FlameFormatTree   = "tree"
	FlameFormatFolded = "folded"
)

// AllOptionKeys returns every option key in display order.
func AllOptionKeys() []OptionKey {
	return []OptionKey{
		OptionTop,
		OptionBlockedThreshold,
		OptionGranularity,
		OptionStackDepth,
		OptionConcentration,
		OptionMinPercent,
		OptionFlameFormat,
		OptionExcludeDaemon,
		OptionHeapThreshold,
	}
}

// Options is the typed option set shared by a run.
// Analyzers receive a projection holding only the keys they declare.
type Options struct {
	// Top limits ranked tables. Zero means no limit.
	Top int `json:"top,omitempty"`
	// BlockedThreshold is the blocked thread count that makes Status fail. Zero disables it.
	BlockedThreshold int `json:"blocked_threshold,omitempty"`
	// Granularity is the frame key used by Most Work: class, method or line.
	Granularity string `json:"granularity,omitempty"`
	// StackDepth is how many frames per RUNNABLE stack Most Work counts. Zero counts all.
	StackDepth int `json:"stack_depth,omitempty"`
	// Concentration is the top frame share, in percent, that makes Most Work fail. Zero disables it.
	Concentration float64 `json:"concentration,omitempty"`
	// MinPercent prunes flame nodes below this share of all stacks.
	MinPercent float64 `json:"min_percent,omitempty"`
	// FlameFormat is tree or folded.
	FlameFormat string `json:"flame_format,omitempty"`
	// ExcludeDaemon drops daemon threads from Status and Threads.
	ExcludeDaemon bool `json:"exclude_daemon,omitempty"`
	// HeapThreshold is the histogram size in bytes that makes Heap fail. Zero disables it.
	HeapThreshold int64 `json:"heap_threshold,omitempty"`
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Top:         10,
		Granularity: model.GranularityLine,
		StackDepth:  1,
		FlameFormat: FlameFormatTree,
	}
}

// Project returns a copy holding only the given keys; every other field is zero.
func (o Options) Project(keys []OptionKey) Options {
	var p Options
	for _, k := range keys {
		switch k {
		case OptionTop:
			p.Top = o.Top
		case OptionBlockedThreshold:
			p.BlockedThreshold = o.BlockedThreshold
		case OptionGranularity:
			p.Granularity = o.Granularity
		case OptionStackDepth:
			p.StackDepth = o.StackDepth
		case OptionConcentration:
			p.Concentration = o.Concentration
		case OptionMinPercent:
			p.MinPercent = o.MinPercent
		case OptionFlameFormat:
			p.FlameFormat = o.FlameFormat
		case OptionExcludeDaemon:
			p.ExcludeDaemon = o.ExcludeDaemon
		case OptionHeapThreshold:
			p.HeapThreshold = o.HeapThreshold
		}
	}
	return p
}

// Validate checks option values. Zero values are always valid.
func (o Options) Validate() error {
	switch {
	case o.Top < 0:
		return errors.Newf(errors.CodeConfigError, "option %s must not be negative, got %d", OptionTop, o.Top)
	case o.BlockedThreshold < 0:
		return errors.Newf(errors.CodeConfigError, "option %s must not be negative, got %d", OptionBlockedThreshold, o.BlockedThreshold)
	case o.StackDepth < 0:
		return errors.Newf(errors.CodeConfigError, "option %s must not be negative, got %d", OptionStackDepth, o.StackDepth)
	case o.Concentration < 0 || o.Concentration > 100:
		return errors.Newf(errors.CodeConfigError, "option %s must be between 0 and 100, got %g", OptionConcentration, o.Concentration)
	case o.MinPercent < 0 || o.MinPercent > 100:
		return errors.Newf(errors.CodeConfigError, "option %s must be between 0 and 100, got %g", OptionMinPercent, o.MinPercent)
	case o.HeapThreshold < 0:
		return errors.Newf(errors.CodeConfigError, "option %s must not be negative, got %d", OptionHeapThreshold, o.HeapThreshold)
	}

	switch o.Granularity {
	case "", model.GranularityClass, model.GranularityMethod, model.GranularityLine:
	default:
		return errors.Newf(errors.CodeConfigError, "option %s must be one of class, method, line; got %q", OptionGranularity, o.Granularity)
	}

	switch o.FlameFormat {
	case "", FlameFormatTree, FlameFormatFolded:
	default:
		return errors.Newf(errors.CodeConfigError, "option %s must be tree or folded, got %q", OptionFlameFormat, o.FlameFormat)
	}
	return nil
}
