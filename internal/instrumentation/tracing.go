package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used by the package-level span helpers.
const TracerName = "github.com/teemow/gwsa"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrStatus    = "mcp.status"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrPageSize  = "google.page_size"
	SpanAttrProfile   = "gwsa.profile"
	SpanAttrSpace     = "chat.space"
	SpanAttrMessage   = "chat.message"
)

// SpanAttributeBuilder collects span attributes, skipping empty values.
// A nil builder builds no attributes.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 4)}
}

func (b *SpanAttributeBuilder) withString(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// WithProfile adds the credential profile.
func (b *SpanAttributeBuilder) WithProfile(profile string) *SpanAttributeBuilder {
	return b.withString(SpanAttrProfile, profile)
}

// WithSpace adds a Chat space resource name (spaces/AAAA).
func (b *SpanAttributeBuilder) WithSpace(space string) *SpanAttributeBuilder {
	return b.withString(SpanAttrSpace, space)
}

// WithMessage adds a Chat message resource name.
func (b *SpanAttributeBuilder) WithMessage(message string) *SpanAttributeBuilder {
	return b.withString(SpanAttrMessage, message)
}

// WithPageSize adds the requested page size. Zero means the server default
// and is skipped.
func (b *SpanAttributeBuilder) WithPageSize(size int) *SpanAttributeBuilder {
	if size > 0 {
		b.attrs = append(b.attrs, attribute.Int(SpanAttrPageSize, size))
	}
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	if b == nil {
		return nil
	}
	return b.attrs
}

// StartToolSpan starts a server span named tool.<name> for an MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return otel.Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return otel.Tracer(TracerName).Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err on span. A nil error leaves the span untouched.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// TraceID returns the trace id of the span in ctx, or "" without a valid span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
