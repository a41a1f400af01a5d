package model

// DumpRequirement declares how many snapshots an analyzer needs.
type DumpRequirement int

const (
	// DumpsOne analyzes only the first snapshot.
	DumpsOne DumpRequirement = iota
	// DumpsMany needs at least two snapshots to correlate across time.
	DumpsMany
	// DumpsAny accepts whatever was supplied, including nothing.
	DumpsAny
)

// String returns the string representation of DumpRequirement.
func (r DumpRequirement) String() string {
	switch r {
	case DumpsOne:
		return "ONE"
	case DumpsMany:
		return "MANY"
	case DumpsAny:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// AnalyzerResult is the outcome of one analyzer run.
type AnalyzerResult struct {
	Output string `json:"output"`
	// ShouldDisplay is independent of Output being empty; an analyzer may
	// suppress non-empty output when nothing noteworthy was found.
	ShouldDisplay bool `json:"should_display"`
	// ExitCode is 0 when there is nothing to report, higher is more severe.
	ExitCode int `json:"exit_code"`
}

// NewResult creates an AnalyzerResult.
func NewResult(output string, display bool, exitCode int) *AnalyzerResult {
	return &AnalyzerResult{
		Output:        output,
		ShouldDisplay: display,
		ExitCode:      exitCode,
	}
}

// EmptyResult returns a suppressed result with exit code 0.
func EmptyResult() *AnalyzerResult {
	return &AnalyzerResult{}
}
