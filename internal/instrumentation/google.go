package instrumentation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// ObserveGoogleAPI runs fn inside a google.<service>.<operation> span and
// records its status and duration. It returns fn's error unchanged.
func (m *Metrics) ObserveGoogleAPI(ctx context.Context, service, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := StartGoogleAPISpan(ctx, service, operation, attrs...)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := StatusSuccess
	if err != nil {
		status = StatusError
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	m.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}
