// Package logger provides the global structured logger for the wikibase
// library. Components log through a shared *zap.SugaredLogger; callers that
// embed the library can swap in their own zap instance with SetLogger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.SugaredLogger
	// JSONOutput tracks whether structured JSON output is enabled
	JSONOutput bool
)

func init() {
	// Safe no-op logger at package load time so library code can log
	// before Initialize() is called without nil panics.
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. With jsonOutput the production JSON
// encoder is used; otherwise a human-readable console encoder.
func Initialize(jsonOutput bool) error {
	JSONOutput = jsonOutput

	var zapLogger *zap.Logger
	var err error

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapLogger, err = config.Build()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger, err = config.Build()
	}
	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

// SetLogger replaces the global logger. Intended for embedders that already
// run their own zap setup.
func SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	Logger = l
}

// Named returns a child logger scoped to a component name.
func Named(component string) *zap.SugaredLogger {
	return Logger.Named(component)
}
