package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("arbregedcom.core")

func startSpan(ctx context.Context, name string, treeID, userID int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.Int("tree_id", treeID)}
	if userID > 0 {
		attrs = append(attrs, attribute.Int("user_id", userID))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
