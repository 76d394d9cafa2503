package state

import (
	"context"

	"go.uber.org/fx"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// Module provides the state store for fx dependency injection.
var Module = fx.Module("state",
	fx.Provide(provideStore),
)

func provideStore(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) (Store, error) {
	store, err := NewStore(log, cfg.State)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
