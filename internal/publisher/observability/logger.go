// Package observability carries request scoped logging, tracing and panic recovery for
// the console server.
package observability

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

var noopLogger = zap.NewNop()

type loggerSettings struct {
	format  string
	service string
	version string
}

// LoggerOption customises NewLogger.
type LoggerOption func(*loggerSettings)

// WithFormat selects "json" (default) or "console" output. Unknown values mean json.
func WithFormat(format string) LoggerOption {
	return func(s *loggerSettings) {
		if strings.EqualFold(strings.TrimSpace(format), "console") {
			s.format = "console"
		}
	}
}

// WithService adds the serviceContext Cloud Error Reporting groups entries by.
func WithService(name, version string) LoggerOption {
	return func(s *loggerSettings) {
		s.service, s.version = name, version
	}
}

// NewLogger builds a logger using Cloud Logging field names. Unparseable levels mean info.
func NewLogger(level string, opts ...LoggerOption) (*zap.Logger, error) {
	settings := loggerSettings{format: "json"}
	for _, opt := range opts {
		opt(&settings)
	}

	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	_ = lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level))))

	encoder := zapcore.EncoderConfig{
		MessageKey:     "message",
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    severity,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if settings.format == "console" {
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	cfg := zap.Config{
		Level:             lvl,
		Encoding:          settings.format,
		EncoderConfig:     encoder,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	if settings.service != "" {
		cfg.InitialFields = map[string]any{
			"serviceContext": map[string]string{"service": settings.service, "version": settings.version},
		}
	}
	return cfg.Build()
}

// severity writes zap levels with Cloud Logging names.
func severity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("CRITICAL")
	case zapcore.FatalLevel:
		enc.AppendString("ALERT")
	default:
		enc.AppendString(strings.ToUpper(level.String()))
	}
}

// WithLogger stores logger on ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return noopLogger
}
