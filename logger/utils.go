package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// extractTracingFields extracts tracing information from the given context
// and returns it as Zap fields. This method is used internally to
// automatically add trace correlation data to log entries when tracing is
// enabled.
//
// If the context contains an active span, this method will extract:
//   - trace_id: The trace ID as a string
//   - span_id: The span ID as a string
//
// If no span context is found or tracing is disabled, returns an empty slice.
func (l *Client) extractTracingFields(ctx context.Context) []zap.Field {
	if !l.tracingEnabled || ctx == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	spanContext := span.SpanContext()
	if !spanContext.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", spanContext.TraceID().String()),
		zap.String("span_id", spanContext.SpanID().String()),
	}
}

// convertToZapFields converts error and additional field maps into Zap's
// structured logging fields. This internal helper transforms the simplified
// field maps used by this logger wrapper into the zap.Field format required
// by the underlying Zap logger.
//
// The method handles both error objects and arbitrary key-value pairs from
// the fields maps. If multiple fields maps contain the same key, the later
// maps will override earlier ones.
func (l *Client) convertToZapFields(err error, fields ...map[string]interface{}) []zap.Field {
	var zapFields []zap.Field
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}

	// Iterate through optional field maps and convert them into Zap fields.
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			zapFields = append(zapFields, zap.Any(key, value))
		}
	}
	return zapFields
}

// Info logs an informational message, along with an optional error and
// structured fields. Use Info for general application progress and
// successful operations.
//
// Example:
//
//	log.Info("Record delivered", nil, map[string]interface{}{
//	    "topic":     "orders",
//	    "partition": 1,
//	})
func (l *Client) Info(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Info(msg, l.convertToZapFields(err, fields...)...)
}

// Debug logs a debug-level message, useful for development and
// troubleshooting. Debug logs are typically more verbose and include
// information primarily useful when diagnosing issues.
func (l *Client) Debug(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Debug(msg, l.convertToZapFields(err, fields...)...)
}

// Warn logs a warning message, indicating potential issues that aren't
// necessarily errors.
func (l *Client) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Warn(msg, l.convertToZapFields(err, fields...)...)
}

// Error logs an error message, including details of the error and additional
// context fields. Use Error when something has gone wrong that affects the
// current operation but doesn't require immediate termination of the
// application.
//
// Example:
//
//	if err := consumer.Close(ctx); err != nil {
//	    log.Error("Failed to close consumer", err, map[string]interface{}{
//	        "group_id": "billing",
//	    })
//	}
func (l *Client) Error(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Error(msg, l.convertToZapFields(err, fields...)...)
}

// Fatal logs a critical error message and terminates the application.
// Use Fatal only for errors that make it impossible for the application to
// continue running. This method calls os.Exit(1) after logging the message.
//
// Note: This function does not return as it terminates the application.
func (l *Client) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Fatal(msg, l.convertToZapFields(err, fields...)...)
}

// InfoWithContext logs an informational message with trace context, along
// with an optional error and structured fields. This method automatically
// extracts trace and span IDs from the provided context when tracing is
// enabled.
//
// Example:
//
//	log.InfoWithContext(ctx, "Record delivered", nil, map[string]interface{}{
//	    "topic":  "orders",
//	    "offset": 1042,
//	})
func (l *Client) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	zapFields := l.convertToZapFields(err, fields...)
	zapFields = append(zapFields, l.extractTracingFields(ctx)...)
	l.Zap.Info(msg, zapFields...)
}

// DebugWithContext logs a debug-level message with trace context.
// This method automatically extracts trace and span IDs from the provided
// context when tracing is enabled.
func (l *Client) DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	zapFields := l.convertToZapFields(err, fields...)
	zapFields = append(zapFields, l.extractTracingFields(ctx)...)
	l.Zap.Debug(msg, zapFields...)
}

// WarnWithContext logs a warning message with trace context.
// This method automatically extracts trace and span IDs from the provided
// context when tracing is enabled.
func (l *Client) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	zapFields := l.convertToZapFields(err, fields...)
	zapFields = append(zapFields, l.extractTracingFields(ctx)...)
	l.Zap.Warn(msg, zapFields...)
}

// ErrorWithContext logs an error message with trace context, including
// details of the error and additional context fields. This method
// automatically extracts trace and span IDs from the provided context when
// tracing is enabled.
//
// Example:
//
//	result := <-producer.SendValue(ctx, "orders", order)
//	if result.Err != nil {
//	    log.ErrorWithContext(ctx, "Send failed", result.Err, map[string]interface{}{
//	        "topic": "orders",
//	    })
//	}
func (l *Client) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	zapFields := l.convertToZapFields(err, fields...)
	zapFields = append(zapFields, l.extractTracingFields(ctx)...)
	l.Zap.Error(msg, zapFields...)
}

// FatalWithContext logs a critical error message with trace context and
// terminates the application. This method calls os.Exit(1) after logging the
// message.
//
// Note: This function does not return as it terminates the application.
func (l *Client) FatalWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	zapFields := l.convertToZapFields(err, fields...)
	zapFields = append(zapFields, l.extractTracingFields(ctx)...)
	l.Zap.Fatal(msg, zapFields...)
}
