package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format,omitempty"`
	Destination string `yaml:"destination,omitempty"`
	Mode        string `yaml:"mode,omitempty"`
}

type LoggingConfig struct {
	ConsoleLogger LoggerConfig `yaml:"console"`
	FileLogger    LoggerConfig `yaml:"file"`
}

// Validate checks levels, formats and modes.
func (conf *LoggingConfig) Validate() error {
	for name, lc := range map[string]LoggerConfig{"console": conf.ConsoleLogger, "file": conf.FileLogger} {
		switch lc.Level {
		case "none", "normal", "debug":
		default:
			return fmt.Errorf("%w: logging.%s.level must be none, normal or debug, got %q", ErrInvalid, name, lc.Level)
		}
		switch lc.Format {
		case "", "console", "json":
		default:
			return fmt.Errorf("%w: logging.%s.format must be console or json, got %q", ErrInvalid, name, lc.Format)
		}
		switch lc.Mode {
		case "", "append", "overwrite":
		default:
			return fmt.Errorf("%w: logging.%s.mode must be append or overwrite, got %q", ErrInvalid, name, lc.Mode)
		}
	}
	if conf.FileLogger.Level != "none" && conf.FileLogger.Destination == "" {
		return fmt.Errorf("%w: logging.file.destination is required when file logging is on", ErrInvalid)
	}
	return nil
}

// Prepare returns the configured zap logger. Console output goes to stderr
// so stdout stays free for NDJSON results.
func (conf *LoggingConfig) Prepare(name string) (*zap.Logger, error) {
	consoleCore := zapcore.NewNopCore()
	if lvl, on := levelOf(conf.ConsoleLogger.Level); on {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		consoleCore = zapcore.NewCore(encoderFor(conf.ConsoleLogger.Format, ec), zapcore.Lock(os.Stderr), lvl)
	}

	fileCore := zapcore.NewNopCore()
	if lvl, on := levelOf(conf.FileLogger.Level); on {
		flags := os.O_CREATE | os.O_WRONLY
		if conf.FileLogger.Mode == "append" {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(conf.FileLogger.Destination, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
		fileCore = zapcore.NewCore(encoderFor(conf.FileLogger.Format, zap.NewProductionEncoderConfig()), zapcore.Lock(f), lvl)
	}

	log := zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller())
	if name != "" {
		log = log.Named(name)
	}
	return log, nil
}

func levelOf(level string) (zapcore.Level, bool) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, true
	case "normal":
		return zapcore.InfoLevel, true
	}
	return zapcore.InfoLevel, false
}

func encoderFor(format string, ec zapcore.EncoderConfig) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}
