package logger

import (
	"context"

	pcontext "github.com/moneypot/moneypot/pkg/context"
)

// LoggerContext extends Logger with methods that pull tracing fields
// (request, correlation, user, operation) out of a context.
type LoggerContext interface {
	Logger
	InfoContext(ctx context.Context, message string, fields ...Field)
	ErrorContext(ctx context.Context, message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
}

var _ LoggerContext = (*PotLogger)(nil)

// InfoContext logs an info message with context tracing
func (l *PotLogger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, append(contextFields(ctx), fields...)...)
}

// ErrorContext logs an error message with context tracing
func (l *PotLogger) ErrorContext(ctx context.Context, message string, fields ...Field) {
	l.Error(message, append(contextFields(ctx), fields...)...)
}

// WarnContext logs a warning message with context tracing
func (l *PotLogger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, append(contextFields(ctx), fields...)...)
}

// DebugContext logs a debug message with context tracing
func (l *PotLogger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, append(contextFields(ctx), fields...)...)
}

func contextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	var fields []Field

	if requestID, ok := pcontext.RequestID(ctx); ok {
		fields = append(fields, WithField("request_id", requestID))
	}
	if correlationID, ok := pcontext.CorrelationID(ctx); ok {
		fields = append(fields, WithField("correlation_id", correlationID))
	}
	if userID, ok := pcontext.UserID(ctx); ok {
		fields = append(fields, WithField("user_id", userID))
	}
	if operation, ok := pcontext.Operation(ctx); ok {
		fields = append(fields, WithField("operation", operation))
	}
	if _, ok := pcontext.StartTime(ctx); ok {
		fields = append(fields, WithField("duration_ms", pcontext.GetDuration(ctx).Milliseconds()))
	}

	return fields
}

// WithContext returns a logger that adds the context's tracing fields to
// every entry
func WithContext(ctx context.Context, logger Logger) Logger {
	if ctx == nil {
		return logger
	}
	return &contextualLogger{ctx: ctx, logger: logger}
}

type contextualLogger struct {
	ctx    context.Context
	logger Logger
}

func (cl *contextualLogger) Info(message string, fields ...Field) {
	cl.logger.Info(message, append(contextFields(cl.ctx), fields...)...)
}

func (cl *contextualLogger) Error(message string, fields ...Field) {
	cl.logger.Error(message, append(contextFields(cl.ctx), fields...)...)
}

func (cl *contextualLogger) Warn(message string, fields ...Field) {
	cl.logger.Warn(message, append(contextFields(cl.ctx), fields...)...)
}

func (cl *contextualLogger) Debug(message string, fields ...Field) {
	cl.logger.Debug(message, append(contextFields(cl.ctx), fields...)...)
}

func (cl *contextualLogger) Success(message string, fields ...Field) {
	cl.logger.Success(message, append(contextFields(cl.ctx), fields...)...)
}

func (cl *contextualLogger) WithPot(potID string) Logger {
	return &contextualLogger{
		ctx:    cl.ctx,
		logger: cl.logger.WithPot(potID),
	}
}
