package action

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/users"
)

// Env carries the ambient objects one invocation resolves against.
type Env struct {
	// Update is the inbound update that matched the action.
	Update *tgbotapi.Update

	// User is the authenticated user, already authorized for the action.
	User *users.User

	// Answers are the validated question answers, keyed by parameter.
	// Nil when the action has no question parameters.
	Answers map[string]any
}

// Invocation is the resolved argument set for one action call. Every
// accessor returns the same value for the lifetime of the invocation.
type Invocation struct {
	ctx    context.Context
	update *tgbotapi.Update
	user   *users.User
	log    *logger.Logger
	action *Action
	values map[string]any
}

// Update returns the inbound update.
func (inv *Invocation) Update() *tgbotapi.Update {
	return inv.update
}

// Context returns the invocation's context.
func (inv *Invocation) Context() context.Context {
	return inv.ctx
}

// Logger returns the action-bound logger.
func (inv *Invocation) Logger() *logger.Logger {
	return inv.log
}

// User returns the authenticated user.
func (inv *Invocation) User() *users.User {
	return inv.user
}

// Get returns the resolved value of the named parameter, nil when absent.
func (inv *Invocation) Get(name string) any {
	return inv.values[name]
}

// Template returns the named parameter's resolved template, nil when the
// parameter did not resolve to one.
func (inv *Invocation) Template(name string) *template.Template {
	t, _ := inv.values[name].(*template.Template)
	return t
}

// Templates returns every discovered template for the action.
func (inv *Invocation) Templates() map[string]*template.Template {
	return inv.action.templates
}

// Data returns the named parameter's fetched rows, nil when the parameter
// did not resolve to rows.
func (inv *Invocation) Data(name string) datasource.Rows {
	rows, _ := inv.values[name].(datasource.Rows)
	return rows
}

// Answer returns the named question parameter's validated answer.
func (inv *Invocation) Answer(name string) any {
	return inv.values[name]
}

// Resolve fills every declared parameter from the environment. Explicitly
// bound or implicitly derived resources that cannot be resolved abort the
// invocation; unknown parameter names degrade to nil with a warning.
func (a *Action) Resolve(ctx context.Context, env Env) (*Invocation, error) {
	inv := &Invocation{
		ctx:    ctx,
		update: env.Update,
		user:   env.User,
		log:    a.log,
		action: a,
		values: make(map[string]any, len(a.params)),
	}

	for _, p := range a.params {
		value, err := a.resolveParam(ctx, &p, env, inv)
		if err != nil {
			return nil, fmt.Errorf("action %q parameter %q: %w", a.Name, p.Name, err)
		}
		inv.values[p.Name] = value
	}
	return inv, nil
}

func (a *Action) resolveParam(ctx context.Context, p *Param, env Env, inv *Invocation) (any, error) {
	switch p.kind {
	case KindUpdate:
		return env.Update, nil
	case KindContext:
		return ctx, nil
	case KindLogger:
		return a.log, nil
	case KindUser:
		return env.User, nil
	case KindTemplates:
		return a.templates, nil
	case KindTemplate:
		return a.resolveTemplate(p)
	case KindData:
		return a.resolveData(ctx, p)
	case KindQuestion:
		return env.Answers[p.Name], nil
	default:
		a.log.Warn("Failed to fill parameter, it will be set to nil",
			zap.String("param", p.Name))
		return nil, nil
	}
}

// resolveTemplate finds the template for a parameter: the explicit file
// binding verbatim, or by convention <action>.md.tmpl for a parameter named
// exactly "template" and <param>.md.tmpl otherwise.
func (a *Action) resolveTemplate(p *Param) (*template.Template, error) {
	name := p.File
	if name == "" {
		if p.Name == "template" {
			name = a.Name + templateExt
		} else {
			name = p.Name + templateExt
		}
	}

	tmpl, ok := a.templates[name]
	if !ok {
		return nil, fmt.Errorf("no template found")
	}
	return tmpl, nil
}

// resolveData finds the request file for a parameter and fetches its rows.
// Implicit lookups are fail-fast on ambiguity: zero or multiple candidate
// files are errors directing the developer to an explicit binding.
func (a *Action) resolveData(ctx context.Context, p *Param) (datasource.Rows, error) {
	req, err := a.requestFor(p)
	if err != nil {
		return nil, err
	}

	sourceName := requestSource(req)
	ds, ok := a.sources[sourceName]
	if !ok {
		return nil, fmt.Errorf("request %q names unknown datasource %q", req, sourceName)
	}
	return ds.Fetch(ctx, a.requests[req])
}

func (a *Action) requestFor(p *Param) (string, error) {
	if p.File != "" {
		if _, ok := a.requests[p.File]; !ok {
			return "", fmt.Errorf("request file specified in binding not found")
		}
		return p.File, nil
	}

	if p.Name == "data" {
		switch len(a.requests) {
		case 0:
			return "", fmt.Errorf("default request not found")
		case 1:
			var only string
			for name := range a.requests {
				only = name
			}
			return only, nil
		default:
			return "", fmt.Errorf("multiple requests found, specify one using an explicit binding")
		}
	}

	key := strings.TrimPrefix(p.Name, "data_")
	var matches []string
	for name := range a.requests {
		if strings.HasPrefix(name, key+".") {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no request found matching %q", key)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("multiple requests matching %q found, specify one using an explicit binding", key)
	}
}

// Invoke resolves the parameters and runs the handler.
func (a *Action) Invoke(ctx context.Context, env Env) (any, error) {
	a.log.Debug("Executing")

	inv, err := a.Resolve(ctx, env)
	if err != nil {
		return nil, err
	}

	result, err := a.handler(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", a.Name, err)
	}

	a.log.Debug("Finished execution")
	return result, nil
}
