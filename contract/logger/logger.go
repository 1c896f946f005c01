// Package logger builds the zap loggers handed to services.
package logger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger at the given level ("debug", "info", ...).
// Development loggers write human-readable console output.
func New(level string, development bool) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "parse log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = !development

	log, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return log.Sugar(), nil
}

// NewNop discards everything; used by tests and library callers that do
// not care about logs.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Named returns a child logger for a component.
func Named(log *zap.SugaredLogger, component string) *zap.SugaredLogger {
	if log == nil {
		return NewNop()
	}
	return log.Named(component)
}
