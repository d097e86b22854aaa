package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats accepted by LoggerConfig.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// LoggerConfig configures a ZapLogger.
type LoggerConfig struct {
	// OutputPath is the log file. Empty means stderr, which
	// keeps stdout free for the rendered report.
	OutputPath string
	Level      LogLevel
	Format     string
	Fields     map[string]any
}

// ZapLogger implements Logger on top of a zap.Logger.
type ZapLogger struct {
	logger *zap.Logger
	closer io.Closer
}

// NewLogger creates a ZapLogger from config. An unknown format
// is an error.
func NewLogger(config LoggerConfig) (*ZapLogger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch config.Format {
	case "", FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf(
			"unknown log format: %q", config.Format,
		)
	}

	var (
		ws     zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
		closer io.Closer
	)
	if config.OutputPath != "" {
		dir := filepath.Dir(config.OutputPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf(
				"failed to create log directory: %w", err,
			)
		}
		file, err := os.OpenFile(
			config.OutputPath,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0644,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to open log file: %w", err,
			)
		}
		ws = zapcore.AddSync(file)
		closer = file
	}

	core := zapcore.NewCore(
		enc, ws, zap.NewAtomicLevelAt(config.Level.zapLevel()),
	)

	base := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		base = append(base, zap.Any(k, v))
	}

	return &ZapLogger{
		logger: zap.New(core).With(base...),
		closer: closer,
	}, nil
}

// NewZapLogger wraps an existing zap.Logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l}
}

// Info logs an informational message.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, toZap(fields)...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, toZap(fields)...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, toZap(fields)...)
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, toZap(fields)...)
}

// WithFields returns a new Logger with additional default
// fields. The returned logger shares the underlying output.
func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{logger: l.logger.With(toZap(fields)...)}
}

// Close flushes buffered entries and closes the log file, if
// one was opened.
func (l *ZapLogger) Close() error {
	// Sync on a terminal stderr reports EINVAL on some
	// platforms; only file-backed loggers surface it.
	syncErr := l.logger.Sync()
	if l.closer == nil {
		return nil
	}
	if err := l.closer.Close(); err != nil {
		return err
	}
	return syncErr
}
