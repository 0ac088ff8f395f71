package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ramstk/internal/analysis"
)

// TracerName is the instrumentation scope of analysis spans.
const TracerName = "ramstk/analysis"

var _ analysis.Tracer = OTelTracer{}

// OTelTracer starts one OpenTelemetry span per analysis operation.
type OTelTracer struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

// NewOTelTracer uses tp, or the global provider when tp is nil. attrs are
// attached to every span.
func NewOTelTracer(tp trace.TracerProvider, attrs ...attribute.KeyValue) OTelTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return OTelTracer{tracer: tp.Tracer(TracerName), attrs: attrs}
}

// Start implements analysis.Tracer.
func (t OTelTracer) Start(ctx context.Context, operation string) (context.Context, analysis.TraceSpan) {
	ctx, span := t.tracer.Start(ctx, "analysis."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("ramstk.operation", operation)}, t.attrs...)...),
	)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
