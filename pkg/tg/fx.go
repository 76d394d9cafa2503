package tg

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"toribot/pkg/action"
	"toribot/pkg/config"
	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/state"
	"toribot/pkg/users"
)

// Module is the fx module for the Telegram transport.
var Module = fx.Module("tg",
	fx.Provide(ProvidePageStore),
	fx.Provide(ProvideClient),
)

// ProvidePageStore creates the pagination state store for fx.
func ProvidePageStore(log *logger.Logger, cfg *config.Config, store state.Store) *PageStore {
	expiration := time.Duration(cfg.Pages.ExpirationDays) * 24 * time.Hour
	return NewPageStore(log, store, expiration)
}

// ClientParams collects the client's dependencies.
type ClientParams struct {
	fx.In

	Log     *logger.Logger
	Cfg     *config.Config
	Users   users.Store
	Sources map[string]datasource.DataSource
	Pages   *PageStore
	Actions []*action.Action
}

// ProvideClient creates the long-poll client for fx. The client starts in
// the background once every datasource is connected and stops with the app.
func ProvideClient(lc fx.Lifecycle, p ClientParams) (*Client, error) {
	client, err := NewClient(p.Log, p.Cfg, p.Users, p.Sources, p.Pages, p.Actions)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := client.Start(client.ctx); err != nil {
					p.Log.Error("Telegram client exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Stop(ctx)
		},
	})

	return client, nil
}
