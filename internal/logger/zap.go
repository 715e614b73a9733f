// Package logger builds the zap loggers used by the demo and by integrators
// that want the same log shape.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string
	// Format is json or console.
	Format string
	// Output is stdout, stderr or file.
	Output   string
	FilePath string
	// Development switches to the colored development encoder and adds callers.
	Development bool
}

func New(config Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(config.Level) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var ws zapcore.WriteSyncer
	switch config.Output {
	case "stderr":
		ws = zapcore.AddSync(os.Stderr)
	case "file":
		if config.FilePath == "" {
			return nil, fmt.Errorf("logger output file requires a file path")
		}
		f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		ws = zapcore.AddSync(f)
	default:
		ws = zapcore.AddSync(os.Stdout)
	}

	logger := zap.New(zapcore.NewCore(encoder, ws, level))
	if config.Development {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT, falling back to a JSON
// info logger on stdout.
func FromEnv() (*zap.Logger, error) {
	return New(Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
		Output:      os.Getenv("LOG_OUTPUT"),
		FilePath:    os.Getenv("LOG_FILE"),
		Development: os.Getenv("APP_ENV") == "dev",
	})
}
