package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/config"
)

// Module provides the logger for fx dependency injection.
var Module = fx.Module("logger",
	fx.Provide(ProvideLogger),
)

// ProvideLogger builds the logger from the loaded configuration and ties
// flushing to the fx lifecycle.
func ProvideLogger(lc fx.Lifecycle, cfg *config.Config) (*Logger, error) {
	logCfg := DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = Level(cfg.Logging.Level)
	}
	if cfg.Logging.File != "" {
		logCfg.OutputPath = cfg.Logging.File
	}
	logCfg.Development = cfg.Logging.Development

	log, err := New(logCfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Debug("Logger initialized",
				zap.String("level", string(logCfg.Level)),
				zap.String("output", logCfg.OutputPath))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Sync fails harmlessly on stdout; ignore it.
			_ = log.Sync()
			return nil
		},
	})

	return log, nil
}
