package bot

import (
	"context"

	"go.uber.org/fx"

	"toribot/pkg/action"
	"toribot/pkg/config"
	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/state"
	"toribot/pkg/users"
)

// Module is the fx module for the bot facade. Registration runs at
// construction so the transport sees the complete action set; descriptor
// persistence runs on start, after the state backend is up.
var Module = fx.Module("bot",
	fx.Provide(ProvideDescriptorStore),
	fx.Provide(ProvideBot),
	fx.Provide(ProvideActions),
)

// ProvideDescriptorStore backs action descriptors with the state store.
func ProvideDescriptorStore(s state.Store) action.Store {
	return action.NewKVStore(s)
}

// ProvideBot creates the facade and registers the built-in actions.
func ProvideBot(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
	sources map[string]datasource.DataSource,
	store action.Store,
	authz users.Store,
) (*Bot, error) {
	b := New(log, cfg, sources, store)

	if err := b.registerBuiltins(authz); err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return b.Start(ctx)
		},
	})

	return b, nil
}

// ProvideActions exposes the registered action set to the transport.
func ProvideActions(b *Bot) []*action.Action {
	return b.Actions()
}
