// Package tracing wraps the global OTel tracer for domain packages.
//
// Without a registered TracerProvider the global no-op provider is used, so
// spans are free in tests and local runs.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fullstori"

// Attribute keys shared across spans.
const (
	AttrGraphID = attribute.Key("fullstori.graph.id")
	AttrEventID = attribute.Key("fullstori.event.id")
)

// Start creates a span as a child of the span in ctx. Callers must End it.
//
//	ctx, span := tracing.Start(ctx, "graph.save", tracing.AttrGraphID.String(graphID))
//	defer span.End()
func Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// Fail records err on the span and marks it as errored. A nil err is ignored.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
