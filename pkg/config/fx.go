package config

import (
	"go.uber.org/fx"
)

// Params carries CLI-level inputs into the config module.
type Params struct {
	ConfigPath string
}

// Module provides the configuration for fx dependency injection.
func Module(p Params) fx.Option {
	return fx.Module("config",
		fx.Provide(func() (*Config, error) {
			return NewLoader().Load(p.ConfigPath)
		}),
	)
}
