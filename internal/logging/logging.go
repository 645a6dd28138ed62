package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a deliberately small, framework-agnostic logging interface.
// Components depend on it rather than on zap so tests can swap in a recorder.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a simple key/value pair for structured logging fields.
type Field struct {
	Key   string
	Value any
}

// ZapLogger implements Logger on top of a zap core.
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger wraps an existing zap logger. A nil logger yields a no-op.
func NewZapLogger(log *zap.Logger) *ZapLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapLogger{log: log}
}

// NewStdoutLogger creates a JSON-lines logger on stdout. component is
// optional and becomes the logger name.
func NewStdoutLogger(component string) *ZapLogger {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.Lock(os.Stdout), zap.DebugLevel)
	log := zap.New(core)
	if component != "" {
		log = log.Named(component)
	}
	return &ZapLogger{log: log}
}

// Nop returns a logger that discards everything.
func Nop() *ZapLogger {
	return &ZapLogger{log: zap.NewNop()}
}

// Zap exposes the underlying zap logger for libraries that want it directly.
func (z *ZapLogger) Zap() *zap.Logger {
	return z.log
}

func (z *ZapLogger) Debug(msg string, fields ...Field) {
	z.log.Debug(msg, toZap(fields)...)
}

func (z *ZapLogger) Info(msg string, fields ...Field) {
	z.log.Info(msg, toZap(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields ...Field) {
	z.log.Warn(msg, toZap(fields)...)
}

func (z *ZapLogger) Error(msg string, fields ...Field) {
	z.log.Error(msg, toZap(fields)...)
}

// With returns a child logger. A "component" field renames the child instead
// of being attached as a plain field.
func (z *ZapLogger) With(fields ...Field) Logger {
	child := z.log
	rest := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Key == "component" {
			if name, ok := f.Value.(string); ok {
				child = child.Named(name)
				continue
			}
		}
		rest = append(rest, f)
	}
	if len(rest) > 0 {
		child = child.With(toZap(rest)...)
	}
	return &ZapLogger{log: child}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.log.Sync()
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
