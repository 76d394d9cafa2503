package bot

import (
	"context"
	"fmt"
	"strings"

	"toribot/pkg/action"
	"toribot/pkg/users"
)

// registerBuiltins adds the stock start and help actions.
func (b *Bot) registerBuiltins(authz users.Store) error {
	if _, err := b.Register(action.Options{
		Name:        "start",
		Description: "Greet the user",
		Params:      []action.Param{{Name: "user"}},
		Handler: func(ctx context.Context, inv *action.Invocation) (any, error) {
			name := "there"
			if u := inv.User(); u != nil && u.Name != "" {
				name = u.Name
			}
			return fmt.Sprintf("Hello, %s!", name), nil
		},
	}); err != nil {
		return err
	}

	if _, err := b.Register(action.Options{
		Name:        "help",
		Description: "List the commands available to you",
		Params:      []action.Param{{Name: "user"}},
		Handler: func(ctx context.Context, inv *action.Invocation) (any, error) {
			var lines []string
			for _, a := range b.Actions() {
				authorized, err := authz.IsAuthorized(ctx, inv.User(), a.Name)
				if err != nil {
					return nil, err
				}
				if !authorized {
					continue
				}
				for _, cmd := range a.Commands {
					lines = append(lines, fmt.Sprintf("/%s - %s", cmd, a.Description))
				}
			}
			if len(lines) == 0 {
				return "No commands are available to you.", nil
			}
			return strings.Join(lines, "\n"), nil
		},
	}); err != nil {
		return err
	}

	return nil
}
