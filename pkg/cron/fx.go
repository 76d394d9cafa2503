package cron

import (
	"context"

	"go.uber.org/fx"

	"toribot/pkg/config"
	"toribot/pkg/logger"
	"toribot/pkg/tg"
)

// Module is the fx module for cron.
var Module = fx.Module("cron",
	fx.Provide(NewManager),
)

// NewManager creates the cron manager for fx.
func NewManager(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
	pages *tg.PageStore,
) *Manager {
	manager := New(log, pages, cfg.Pages.SweepSchedule)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start()
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop()
		},
	})

	return manager
}
