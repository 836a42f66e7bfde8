package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// LogLevel represents the severity level for logging messages.
type LogLevel string

const (
	// LogLevelDebug is used for detailed information.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is used for general information messages.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is used for warning conditions.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is used for error conditions.
	LogLevelError LogLevel = "error"
)

// Logger defines an interface for logging at different severity levels.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, args ...any)
	// Info logs a message at info level.
	Info(msg string, args ...any)
	// Warn logs a message at warning level.
	Warn(msg string, args ...any)
	// Error logs a message at error level.
	Error(msg string, args ...any)
}

// LogConfig holds configuration for the logging middleware.
// All fields can be customized individually; zero values fall back to
// the package defaults.
type LogConfig struct {
	// Args are additional arguments to include in all log messages.
	Args []any

	// LevelSuccess is the log level used for successful processing.
	// Defaults to LogLevelDebug.
	LevelSuccess LogLevel
	// LevelCancel is the log level used when processing is canceled.
	// Defaults to LogLevelWarn.
	LevelCancel LogLevel
	// LevelRetry is the log level used for a failed attempt that will
	// be retried. Defaults to LogLevelWarn.
	LevelRetry LogLevel
	// LevelFailure is the log level used when processing fails.
	// Defaults to LogLevelError.
	LevelFailure LogLevel

	// MessageSuccess is the message logged on successful processing.
	// Defaults to "FOP: Success".
	MessageSuccess string
	// MessageCancel is the message logged when processing is canceled.
	// Defaults to "FOP: Cancel".
	MessageCancel string
	// MessageRetry is the message logged for a failed attempt that will
	// be retried. Defaults to "FOP: Retry".
	MessageRetry string
	// MessageFailure is the message logged when processing fails.
	// Defaults to "FOP: Failure".
	MessageFailure string

	// Disabled disables all logging when set to true.
	Disabled bool
}

var defaultLogConfig = LogConfig{
	LevelSuccess:   LogLevelDebug,
	LevelCancel:    LogLevelWarn,
	LevelRetry:     LogLevelWarn,
	LevelFailure:   LogLevelError,
	MessageSuccess: "FOP: Success",
	MessageCancel:  "FOP: Cancel",
	MessageRetry:   "FOP: Retry",
	MessageFailure: "FOP: Failure",
}

// logger is the process-wide default, a zerolog-backed adapter writing
// through the global zerolog logger.
var logger Logger = zerologLogger{}

// SetDefaultLogger sets the logger used by the Log middleware.
// The global zerolog logger is used by default.
func SetDefaultLogger(l Logger) {
	logger = l
}

// zerologLogger adapts the global zerolog logger to the Logger interface,
// mapping slog-style key-value args onto zerolog event fields.
type zerologLogger struct{}

func (zerologLogger) Debug(msg string, args ...any) { logEvent(zlog.Debug(), msg, args) }
func (zerologLogger) Info(msg string, args ...any)  { logEvent(zlog.Info(), msg, args) }
func (zerologLogger) Warn(msg string, args ...any)  { logEvent(zlog.Warn(), msg, args) }
func (zerologLogger) Error(msg string, args ...any) { logEvent(zlog.Error(), msg, args) }

func logEvent(e *zerolog.Event, msg string, args []any) {
	if len(args) > 0 {
		e = e.Fields(args)
	}
	e.Msg(msg)
}

func parseLogLevel(level LogLevel) LogLevel {
	return LogLevel(strings.ToLower(string(level)))
}

func (c LogConfig) parse() LogConfig {
	c.LevelSuccess = parseLogLevel(c.LevelSuccess)
	if c.LevelSuccess == "" {
		c.LevelSuccess = defaultLogConfig.LevelSuccess
	}
	c.LevelCancel = parseLogLevel(c.LevelCancel)
	if c.LevelCancel == "" {
		c.LevelCancel = defaultLogConfig.LevelCancel
	}
	c.LevelRetry = parseLogLevel(c.LevelRetry)
	if c.LevelRetry == "" {
		c.LevelRetry = defaultLogConfig.LevelRetry
	}
	c.LevelFailure = parseLogLevel(c.LevelFailure)
	if c.LevelFailure == "" {
		c.LevelFailure = defaultLogConfig.LevelFailure
	}
	if c.MessageSuccess == "" {
		c.MessageSuccess = defaultLogConfig.MessageSuccess
	}
	if c.MessageCancel == "" {
		c.MessageCancel = defaultLogConfig.MessageCancel
	}
	if c.MessageRetry == "" {
		c.MessageRetry = defaultLogConfig.MessageRetry
	}
	if c.MessageFailure == "" {
		c.MessageFailure = defaultLogConfig.MessageFailure
	}
	return c
}

func (c LogConfig) logFunc(level LogLevel) func(msg string, args ...any) {
	switch level {
	case LogLevelDebug:
		return logger.Debug
	case LogLevelWarn:
		return logger.Warn
	case LogLevelError:
		return logger.Error
	default:
		return logger.Info
	}
}

func appendArgs(args ...[]any) []any {
	l := 0
	for _, a := range args {
		l += len(a)
	}
	result := make([]any, 0, l)
	for _, a := range args {
		result = append(result, a...)
	}
	return result
}

// Log wraps a ProcessFunc with outcome logging. Each call is logged once:
// success at LevelSuccess, cancellation at LevelCancel, a failed attempt
// inside a surrounding Retry that still has attempts left at LevelRetry
// (whether or not its ShouldRetry policy or timeout then allows the
// retry), and any other failure at LevelFailure. Metadata attached to the context by
// MetadataProvider is included in every message.
func Log[In, Out any](cfg LogConfig) Middleware[In, Out] {
	c := cfg.parse()
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		if c.Disabled {
			return next
		}
		return func(ctx context.Context, in In) ([]Out, error) {
			start := time.Now()
			out, err := next(ctx, in)
			metadata := MetadataFromContext(ctx)

			if err == nil {
				c.logFunc(c.LevelSuccess)(c.MessageSuccess,
					appendArgs(c.Args, metadata.Args(), []any{"duration", time.Since(start)})...)
				return out, nil
			}

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCancel) {
				c.logFunc(c.LevelCancel)(c.MessageCancel,
					appendArgs(c.Args, metadata.Args(), []any{"error", err})...)
				return nil, err
			}

			if state := RetryStateFromContext(ctx); state != nil && (state.MaxAttempts <= 0 || state.Attempts < state.MaxAttempts) {
				c.logFunc(c.LevelRetry)(c.MessageRetry,
					appendArgs(c.Args, metadata.Args(), []any{"error", err, "attempt", state.Attempts})...)
				return nil, err
			}

			c.logFunc(c.LevelFailure)(c.MessageFailure,
				appendArgs(c.Args, metadata.Args(), []any{"error", err, "duration", time.Since(start)})...)
			return nil, err
		}
	}
}
