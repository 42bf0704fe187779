// Package log provides structured logging with job context.
//
// Two logger variants are available:
//   - Logger: non-sugared zap.Logger for the core pipeline (structured fields)
//   - SugaredLogger: printf-style logging for the CLI surface
//
// Verbosity is controlled by the CASTELLAN_LOG environment variable
// (default "info"); initialization is process-wide and happens once.
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging scoped to one job's context.
// All entries include the job's identity fields.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for the CLI surface.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

var (
	levelOnce sync.Once
	level     zapcore.Level
)

// Context identifies the job a Logger's entries belong to.
type Context struct {
	JobID      string
	SessionID  string
	SourceHash string
}

// NewLogger creates a logger carrying the given job context.
// Output defaults to os.Stderr.
func NewLogger(ctx Context) *Logger {
	return newLoggerWithWriter(ctx, os.Stderr)
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), resolveLevel())
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))}
}

func newLoggerWithWriter(ctx Context, w io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), resolveLevel())

	fields := []zap.Field{}
	if ctx.JobID != "" {
		fields = append(fields, zap.String("job_id", ctx.JobID))
	}
	if ctx.SessionID != "" {
		fields = append(fields, zap.String("session_id", ctx.SessionID))
	}
	if ctx.SourceHash != "" {
		fields = append(fields, zap.String("source_hash", ctx.SourceHash))
	}

	return &Logger{zap: zap.New(core).With(fields...)}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

// resolveLevel reads CASTELLAN_LOG once per process; re-initialization is
// a no-op per the global-logging-config convention.
func resolveLevel() zapcore.Level {
	levelOnce.Do(func() {
		switch strings.ToLower(os.Getenv("CASTELLAN_LOG")) {
		case "debug":
			level = zapcore.DebugLevel
		case "warn":
			level = zapcore.WarnLevel
		case "error":
			level = zapcore.ErrorLevel
		default:
			level = zapcore.InfoLevel
		}
	})
	return level
}

func (l *Logger) Debug(message string, fields map[string]any) { l.zap.Debug(message, zap.Any("fields", fields)) }
func (l *Logger) Info(message string, fields map[string]any)  { l.zap.Info(message, zap.Any("fields", fields)) }
func (l *Logger) Warn(message string, fields map[string]any)  { l.zap.Warn(message, zap.Any("fields", fields)) }
func (l *Logger) Error(message string, fields map[string]any) { l.zap.Error(message, zap.Any("fields", fields)) }

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

func (s *SugaredLogger) Debugf(template string, args ...any) { s.sugar.Debugf(template, args...) }
func (s *SugaredLogger) Infof(template string, args ...any)  { s.sugar.Infof(template, args...) }
func (s *SugaredLogger) Warnf(template string, args ...any)  { s.sugar.Warnf(template, args...) }
func (s *SugaredLogger) Errorf(template string, args ...any) { s.sugar.Errorf(template, args...) }

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
