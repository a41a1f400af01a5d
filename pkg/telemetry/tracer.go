package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationPrefix namespaces tracer names by package.
const instrumentationPrefix = "github.com/dump-analysis/"

// Tracer returns the global tracer for a component such as "analyzer" or "provider".
// It resolves the provider lazily, so tracers created before Init still export.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationPrefix + component)
}

// RecordError marks the span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
