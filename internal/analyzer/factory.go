package analyzer

import (
	"strings"

	"github.com/dump-analysis/pkg/model"
)

// Info describes a registered analyzer for help output and lookup.
type Info struct {
	Name        string
	Aliases     []string
	Description string
	Requirement model.DumpRequirement
	Default     bool
	create      func(*BaseAnalyzerConfig) Analyzer
}

// registry lists analyzers in report order.
var registry = []*Info{
	{
		Name:        StatusName,
		Description: "Thread state counts and blocked threads",
		Requirement: model.DumpsOne,
		Default:     true,
		create:      func(c *BaseAnalyzerConfig) Analyzer { return NewStatusAnalyzer(c) },
	},
	{
		Name:        DeadlockName,
		Description: "Monitor and ownable synchronizer wait-for cycles",
		Requirement: model.DumpsOne,
		Default:     true,
		create:      func(c *BaseAnalyzerConfig) Analyzer { return NewDeadlockAnalyzer(c) },
	},
	{
		Name:        MostWorkName,
		Aliases:     []string{"most-work", "mostwork"},
		Description: "Frames most often on top of RUNNABLE stacks across dumps",
		Requirement: model.DumpsMany,
		create:      func(c *BaseAnalyzerConfig) Analyzer { return NewMostWorkAnalyzer(c) },
	},
	{
		Name:        FlameName,
		Description: "Merged call tree of every stack",
		Requirement: model.DumpsAny,
		create:      func(c *BaseAnalyzerConfig) Analyzer { return NewFlameAnalyzer(c) },
	},
	{
		Name:        ThreadsName,
		Description: "Thread listing and thread pool sizes",
		Requirement: model.DumpsAny,
		Default:     true,
		create:      func(c *BaseAnalyzerConfig) Analyzer { return NewThreadsAnalyzer(c) },
	},
	{
		Name:        HeapName,
		Aliases:     []string{"histogram"},
		Description: "Class histogram totals, top classes and categories",
		Requirement: model.DumpsOne,
		create:      func(c *BaseAnalyzerConfig) Analyzer { return NewHeapAnalyzer(c) },
	},
}

// lookup finds an analyzer by name or alias, case-insensitively.
func lookup(name string) (*Info, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, info := range registry {
		if strings.ToLower(info.Name) == key {
			return info, true
		}
		for _, alias := range info.Aliases {
			if alias == key {
				return info, true
			}
		}
	}
	return nil, false
}

// AllAnalyzers returns the metadata of every registered analyzer.
func AllAnalyzers() []*Info {
	out := make([]*Info, len(registry))
	copy(out, registry)
	return out
}

// ValidAnalyzers returns a comma-separated list of valid analyzer names.
func ValidAnalyzers() string {
	names := make([]string, 0, len(registry))
	for _, info := range registry {
		names = append(names, strings.ToLower(strings.ReplaceAll(info.Name, " ", "-")))
	}
	return strings.Join(names, ", ")
}

// Factory creates analyzers that share one configuration.
type Factory struct {
	config *BaseAnalyzerConfig
}

// NewFactory creates a new analyzer factory.
func NewFactory(config *BaseAnalyzerConfig) *Factory {
	if config == nil {
		config = DefaultBaseAnalyzerConfig()
	}
	return &Factory{config: config}
}

// Create creates the analyzer registered under name.
func (f *Factory) Create(name string) (Analyzer, error) {
	info, ok := lookup(name)
	if !ok {
		return nil, unknownAnalyzerError(name)
	}
	return info.create(f.config), nil
}

// Defaults creates the analyzers run when none are requested.
func (f *Factory) Defaults() []Analyzer {
	out := make([]Analyzer, 0, len(registry))
	for _, info := range registry {
		if info.Default {
			out = append(out, info.create(f.config))
		}
	}
	return out
}

// Parse creates analyzers from a comma-separated list, keeping the given order.
// Duplicates are dropped. An empty list yields the defaults.
func (f *Factory) Parse(list string) ([]Analyzer, error) {
	names := make([]string, 0)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) != "" {
			names = append(names, part)
		}
	}
	return f.CreateAll(names)
}

// CreateAll creates analyzers by name, keeping the given order.
// Duplicates are dropped. An empty list yields the defaults.
func (f *Factory) CreateAll(names []string) ([]Analyzer, error) {
	if len(names) == 0 {
		return f.Defaults(), nil
	}

	out := make([]Analyzer, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		info, ok := lookup(name)
		if !ok {
			return nil, unknownAnalyzerError(name)
		}
		if seen[info.Name] {
			continue
		}
		seen[info.Name] = true
		out = append(out, info.create(f.config))
	}
	return out, nil
}
