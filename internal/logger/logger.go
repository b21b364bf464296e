package logger

import (
	"go-venue/internal/config"
	"go-venue/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Warn-and-above entries are also teed
// into the engine_logs collection through an async writer so sync failures
// stay inspectable after the console scrolls away.
func NewLogger(cfg *config.Config, db *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Enable Caller so the sink can record the function name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	sink := NewLogSink(db, cfg)
	core := NewSinkCore(baseLogger.Core(), sink)

	return zap.New(core, zap.AddCaller()), nil
}
