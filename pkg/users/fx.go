package users

import (
	"go.uber.org/fx"

	"toribot/pkg/config"
)

// Module is the fx module for users.
var Module = fx.Module("users",
	fx.Provide(ProvideStore),
)

// ProvideStore builds an in-memory store seeded from the configuration.
func ProvideStore(cfg *config.Config) Store {
	store := NewMemoryStore()

	byTelegram := make(map[int64]*User, len(cfg.Users))
	for _, uc := range cfg.Users {
		u := store.AddUser(uc.TelegramID, uc.Name, uc.Admin)
		byTelegram[uc.TelegramID] = u
		for _, role := range uc.Roles {
			store.AssignRole(u.ID, role)
		}
	}

	for _, pc := range cfg.Permissions {
		p := Permission{Action: pc.Action, Roles: pc.Roles}
		for _, tid := range pc.Telegrams {
			if u, ok := byTelegram[tid]; ok {
				p.Users = append(p.Users, u.ID)
			}
		}
		store.Grant(p)
	}

	return store
}
