// Package logging constructs the zap logger handed to every service
// constructor. Diagnostics go to stderr so stdout stays clean for command
// output and exports.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a sugared console logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func New(level string) *zap.SugaredLogger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Console encoder to stderr cannot fail to build; fall back to a
		// no-op logger rather than panicking in a CLI.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// Nop returns a discard logger for tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
