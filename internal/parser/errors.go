package parser

import (
	"context"

	apperrors "github.com/dump-analysis/pkg/errors"
)

// ReadError wraps a reader or cancellation failure as a PARSE_ERROR.
func ReadError(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.Wrap(apperrors.CodeParseError, name+" parsing canceled", ctxErr)
	}
	return apperrors.Wrap(apperrors.CodeParseError, "failed to read "+name+" input", err)
}
