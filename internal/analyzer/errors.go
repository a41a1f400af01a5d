package analyzer

import (
	"fmt"

	"github.com/dump-analysis/pkg/errors"
)

// requirementError reports a MANY analyzer given too few snapshots.
func requirementError(name string, got int) error {
	return errors.Newf(errors.CodeConfigError, "analyzer %s requires at least 2 dumps, got %d", name, got)
}

// wrapAnalyzerError gives an analyzer failure a code. Errors that already
// carry one keep it; anything else is treated as a configuration problem.
func wrapAnalyzerError(name string, err error) error {
	if errors.HasCode(err) {
		return fmt.Errorf("analyzer %s: %w", name, err)
	}
	return errors.Wrap(errors.CodeConfigError, "analyzer "+name+" failed", err)
}

// unknownAnalyzerError reports an analyzer name missing from the registry.
func unknownAnalyzerError(name string) error {
	return errors.Newf(errors.CodeConfigError, "unknown analyzer: %q (valid: %s)", name, ValidAnalyzers())
}

