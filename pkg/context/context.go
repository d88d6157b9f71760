// Package context carries request tracing values through context.Context
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context keys for request tracing and correlation.
// Using unexported struct pointers prevents key collisions.
var (
	requestIDKey     = &struct{}{}
	correlationIDKey = &struct{}{}
	userIDKey        = &struct{}{}
	operationKey     = &struct{}{}
	startTimeKey     = &struct{}{}
)

// WithRequestID adds a request ID to the context, generating one when empty
func WithRequestID(parent context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(parent, requestIDKey, requestID)
}

// RequestID retrieves the request ID from context
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// GetRequestID retrieves the request ID or "unknown-request"
func GetRequestID(ctx context.Context) string {
	if id, ok := RequestID(ctx); ok {
		return id
	}
	return "unknown-request"
}

// WithCorrelationID adds a correlation ID to the context, generating one when empty
func WithCorrelationID(parent context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}
	return context.WithValue(parent, correlationIDKey, correlationID)
}

// CorrelationID retrieves the correlation ID from context
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

// WithUserID adds the acting user's ID to the context
func WithUserID(parent context.Context, userID string) context.Context {
	return context.WithValue(parent, userIDKey, userID)
}

// UserID retrieves the acting user's ID from context
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithOperation adds an operation name to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// Operation retrieves the operation name from context
func Operation(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operationKey).(string)
	return op, ok && op != ""
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// StartTime retrieves the operation start time from context
func StartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

// GetDuration returns the time elapsed since the context's start time,
// or zero when none was recorded
func GetDuration(ctx context.Context) time.Duration {
	start, ok := StartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// GenerateRequestID creates a new unique request ID
func GenerateRequestID() string {
	return "req_" + uuid.New().String()
}

// GenerateCorrelationID creates a new unique correlation ID
func GenerateCorrelationID() string {
	return "cor_" + uuid.New().String()
}

// EnrichContext adds request and correlation IDs when missing and stamps the start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent

	if _, ok := RequestID(ctx); !ok {
		ctx = WithRequestID(ctx, "")
	}
	if _, ok := CorrelationID(ctx); !ok {
		ctx = WithCorrelationID(ctx, "")
	}

	return WithStartTime(ctx, time.Now())
}
