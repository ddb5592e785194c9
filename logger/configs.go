package logger

// Log level constants that define the available logging levels.
// These string constants are used in configuration to set the desired log level.
const (
	// Debug represents the most verbose logging level, intended for development
	// and troubleshooting. All log messages are output.
	Debug = "debug"

	// Info represents the standard logging level for general operational
	// information. Debug messages are suppressed.
	Info = "info"

	// Warning represents the logging level for potential issues that aren't
	// errors. Only Warning and Error messages are output.
	Warning = "warning"

	// Error represents the logging level for error conditions.
	// Only Error messages are output.
	Error = "error"
)

// Config defines the configuration structure for the logger.
// It contains settings that control the behavior of the logging system.
type Config struct {
	// Level determines the minimum log level that will be output.
	// Valid values are "debug", "info", "warning", and "error".
	// Unknown or empty values default to "info".
	Level string

	// EnableTracing controls whether tracing integration is enabled for
	// logging operations. When set to true, the logger automatically extracts
	// trace and span information from context and includes it in log entries,
	// providing correlation between logs and distributed traces.
	//
	// When tracing is enabled, the following fields are added to log entries
	// written through the *WithContext methods:
	//   - "trace_id": The trace ID from the current span context
	//   - "span_id": The span ID from the current span context
	EnableTracing bool

	// ServiceName is the name of the service that is logging messages.
	// This value populates the "service" field in log entries.
	ServiceName string

	// CallerSkip controls the number of stack frames to skip when reporting
	// the caller. This is useful when you have wrapper layers around the
	// logger.
	//
	// Guidelines for setting CallerSkip:
	//   - 1 (default): Use when calling the logger directly from your code
	//   - 2: Use when you have one additional wrapper layer
	//   - 3+: Use when you have multiple wrapper layers
	//
	// If not set or set to 0, defaults to 1.
	CallerSkip int
}
