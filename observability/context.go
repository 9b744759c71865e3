package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/steamlens/logger"
)

// OperationContext tracks one traced, logged operation such as a session
// fan-out.
type OperationContext struct {
	ServiceName   string
	OperationName string
	RequestID     string
	StartTime     time.Time
	Logger        *logger.Logger
}

// NewOperationContext creates a new operation context. A nil log is replaced
// by a no-op logger.
func NewOperationContext(serviceName, operationName, requestID string, log *logger.Logger) *OperationContext {
	return &OperationContext{
		ServiceName:   serviceName,
		OperationName: operationName,
		RequestID:     requestID,
		StartTime:     time.Now(),
		Logger:        logger.OrNop(log),
	}
}

// operationContextKey is the context key for OperationContext.
type operationContextKey struct{}

// WithOperationContext stores an OperationContext in the context.
func WithOperationContext(ctx context.Context, oc *OperationContext) context.Context {
	return context.WithValue(ctx, operationContextKey{}, oc)
}

// OperationContextFromContext retrieves the OperationContext from context, or nil.
func OperationContextFromContext(ctx context.Context) *OperationContext {
	if oc, ok := ctx.Value(operationContextKey{}).(*OperationContext); ok {
		return oc
	}
	return nil
}

// StartSpanForOperation starts a traced span carrying the operation identity
// and stores oc in the returned context.
func (oc *OperationContext) StartSpanForOperation(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrServiceName, oc.ServiceName),
		attribute.String(AttrOperationName, oc.OperationName),
		attribute.String(AttrRequestID, oc.RequestID),
	)
	return WithOperationContext(ctx, oc), span
}

// EndOperation ends the span and logs the operation result.
func (oc *OperationContext) EndOperation(span trace.Span, status string, err error) {
	duration := oc.Duration()

	fields := logger.DurationFields(oc.OperationName, duration)
	fields[logger.FieldRequestID] = oc.RequestID
	fields[logger.FieldStatus] = status

	if err != nil {
		fields = logger.MergeWithError(fields, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
		oc.Logger.Warn("operation failed", fields)
	} else {
		oc.Logger.Debug("operation completed", fields)
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()
}

// Duration returns the elapsed time since operation start.
func (oc *OperationContext) Duration() time.Duration {
	return time.Since(oc.StartTime)
}
