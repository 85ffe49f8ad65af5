// Package logging builds the zap loggers handed to the other packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/san-kum/resodyn/internal/config"
)

// New returns a logger writing to the console, a rotating file, or both.
// An unparsable level falls back to info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return newWithConsole(cfg, os.Stdout)
}

func newWithConsole(cfg config.LogConfig, console io.Writer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var cores []zapcore.Core
	output := strings.ToLower(cfg.Output)
	switch output {
	case "", "console", "file", "both":
	default:
		return nil, fmt.Errorf("logging: unknown output %q", cfg.Output)
	}

	if output == "file" || output == "both" {
		if cfg.File == "" {
			return nil, fmt.Errorf("logging: file output needs a file name")
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotating), level))
	}
	if output == "" || output == "console" || output == "both" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(console), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
