package analyzer

import (
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/utils"
)

// BaseAnalyzerConfig holds configuration shared by all analyzers.
type BaseAnalyzerConfig struct {
	// Logger is used for debug logging. If nil, debug logs are suppressed.
	Logger utils.Logger

	// BusinessPackages are package prefixes the Heap analyzer reports as business code.
	BusinessPackages []string
}

// DefaultBaseAnalyzerConfig returns default configuration.
func DefaultBaseAnalyzerConfig() *BaseAnalyzerConfig {
	return &BaseAnalyzerConfig{
		Logger: &utils.NullLogger{},
	}
}

// BaseAnalyzer implements the descriptive half of Analyzer.
// Concrete analyzers embed it and add Analyze.
type BaseAnalyzer struct {
	name        string
	requirement model.DumpRequirement
	options     []OptionKey
	logger      utils.Logger
}

// NewBaseAnalyzer creates a new base analyzer.
func NewBaseAnalyzer(name string, requirement model.DumpRequirement, config *BaseAnalyzerConfig, options ...OptionKey) *BaseAnalyzer {
	if config == nil {
		config = DefaultBaseAnalyzerConfig()
	}
	return &BaseAnalyzer{
		name:        name,
		requirement: requirement,
		options:     options,
		logger:      utils.OrNull(config.Logger).WithField("analyzer", name),
	}
}

// Name returns the analyzer name.
func (a *BaseAnalyzer) Name() string {
	return a.name
}

// DumpRequirement returns the declared snapshot requirement.
func (a *BaseAnalyzer) DumpRequirement() model.DumpRequirement {
	return a.requirement
}

// SupportedOptions returns a copy of the declared option keys.
func (a *BaseAnalyzer) SupportedOptions() []OptionKey {
	out := make([]OptionKey, len(a.options))
	copy(out, a.options)
	return out
}

// Logger returns the analyzer's logger.
func (a *BaseAnalyzer) Logger() utils.Logger {
	return a.logger
}

// primary returns the first snapshot, if any.
func primary(dumps []*model.Snapshot) (*model.Snapshot, bool) {
	if len(dumps) == 0 || dumps[0] == nil {
		return nil, false
	}
	return dumps[0], true
}
