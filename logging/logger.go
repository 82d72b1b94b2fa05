// Package logging constructs the process-wide zap logger used by the engine
// and the HTTP binaries, following the Config{Logger: ...} injection pattern
// the rest of this codebase uses for its other subsystems.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger for the given service name. Development mode
// (human-readable, colorized) is used unless STRATADB_ENV=production.
func New(service string) *zap.SugaredLogger {
	if os.Getenv("STRATADB_ENV") == "production" {
		cfg := zap.NewProductionConfig()
		logger, err := cfg.Build()
		if err != nil {
			panic("logging: failed to build production logger: " + err.Error())
		}
		return logger.Sugar().Named(service)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic("logging: failed to build development logger: " + err.Error())
	}

	return logger.Sugar().Named(service)
}
