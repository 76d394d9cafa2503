package datasource

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// Module provides the configured datasources for fx dependency injection.
// Connections are established on start and torn down on stop.
var Module = fx.Module("datasource",
	fx.Provide(provideDatasources),
)

func provideDatasources(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) (map[string]DataSource, error) {
	sources := make(map[string]DataSource, len(cfg.Datasources))
	for _, dsCfg := range cfg.Datasources {
		ds, err := New(log, dsCfg)
		if err != nil {
			return nil, err
		}
		sources[dsCfg.Name] = ds
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for name, ds := range sources {
				if err := ds.Connect(ctx); err != nil {
					log.Error("Failed to connect datasource",
						zap.String("datasource", name), zap.Error(err))
					return err
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			for name, ds := range sources {
				if err := ds.Disconnect(ctx); err != nil {
					log.Warn("Failed to disconnect datasource",
						zap.String("datasource", name), zap.Error(err))
				}
			}
			return nil
		},
	})

	return sources, nil
}
