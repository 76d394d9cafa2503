// Package action implements the dispatch core: registration and validation
// of command handlers, resolution of their declared parameters from
// templates, datasources, questions and ambient objects, and invocation.
package action

import (
	"context"
	"fmt"
	"regexp"
	"text/template"

	"go.uber.org/zap"

	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/question"
)

// Telegram bot command length limits.
const (
	minCommandLen = 1
	maxCommandLen = 32
)

// commandRegex is the accepted command syntax: lowercase letters, digits and
// underscores, within the protocol length limits.
var commandRegex = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Handler is a command handler. The invocation carries every resolved
// parameter; the returned value is normalized into outbound messages.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Options declares an action for registration.
type Options struct {
	// Name uniquely identifies the action.
	Name string

	// Commands are the command tokens routed to the action. Invalid
	// tokens are discarded with a warning; an empty result is an error.
	// Empty defaults to the action name.
	Commands []string

	// Description shows up in the command menu and help output.
	Description string

	// Dir is the directory searched for template and request files.
	Dir string

	// Params declares the handler's parameters, in order.
	Params []Param

	// Handler runs when the action is dispatched.
	Handler Handler

	// Sources are the configured datasources, keyed by name.
	Sources map[string]datasource.DataSource

	// QuestionDefaults fills in texts for question parameters that do not
	// set their own.
	QuestionDefaults question.Defaults
}

// Action is a registered command handler with its resolution plan. It is
// built once at bootstrap and shared across every invocation.
type Action struct {
	Name        string
	Commands    []string
	Description string

	handler   Handler
	params    []Param
	templates map[string]*template.Template
	requests  map[string]string
	sources   map[string]datasource.DataSource
	chain     *question.Chain
	log       *logger.Logger
}

// New validates the declaration and builds the action. Command filtering,
// parameter classification and template/request discovery all happen here,
// once; invocations only execute the cached plan.
func New(log *logger.Logger, opts Options) (*Action, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("action name is required")
	}

	a := &Action{
		Name:        opts.Name,
		Description: opts.Description,
		handler:     opts.Handler,
		sources:     opts.Sources,
		log:         log.ForAction(opts.Name),
	}

	commands := opts.Commands
	if len(commands) == 0 {
		commands = []string{opts.Name}
	}
	valid, err := a.filterCommands(commands)
	if err != nil {
		return nil, err
	}
	a.Commands = valid

	if a.handler == nil {
		return nil, fmt.Errorf("action %q has no handler function", a.Name)
	}

	if err := a.buildParams(opts.Params, opts.QuestionDefaults); err != nil {
		return nil, err
	}

	if a.templates, err = discoverTemplates(opts.Dir); err != nil {
		return nil, err
	}

	sourceNames := make(map[string]struct{}, len(a.sources))
	for name := range a.sources {
		sourceNames[name] = struct{}{}
	}
	if a.requests, err = discoverRequests(a.log, opts.Dir, sourceNames); err != nil {
		return nil, err
	}

	if err := a.checkBindings(); err != nil {
		return nil, err
	}

	a.log.Debug("Successfully registered")
	return a, nil
}

// filterCommands deduplicates the command list and drops syntactically
// invalid tokens, warning per discard. No survivors is a hard error; a
// commandless action can never be dispatched to.
func (a *Action) filterCommands(commands []string) ([]string, error) {
	seen := make(map[string]struct{}, len(commands))
	valid := make([]string, 0, len(commands))
	for _, cmd := range commands {
		if _, dup := seen[cmd]; dup {
			continue
		}
		seen[cmd] = struct{}{}

		if !commandRegex.MatchString(cmd) {
			a.log.Warn("Command was discarded: must be 1-32 chars of lowercase letters, digits and underscores",
				zap.String("command", cmd),
				zap.Int("min_len", minCommandLen),
				zap.Int("max_len", maxCommandLen))
			continue
		}
		valid = append(valid, cmd)
	}

	if len(valid) == 0 {
		return nil, fmt.Errorf("action %q: no valid commands were given", a.Name)
	}
	return valid, nil
}

// buildParams classifies the declared parameters and assembles the question
// chain from the question-backed ones, in declaration order.
func (a *Action) buildParams(params []Param, defaults question.Defaults) error {
	seen := make(map[string]struct{}, len(params))
	var steps []question.Step

	a.params = make([]Param, len(params))
	for i, p := range params {
		if p.Name == "" {
			return fmt.Errorf("action %q: parameter %d has no name", a.Name, i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("action %q: duplicate parameter %q", a.Name, p.Name)
		}
		seen[p.Name] = struct{}{}

		p.kind = p.classify()
		a.params[i] = p

		if p.kind == KindQuestion {
			steps = append(steps, question.Step{Param: p.Name, Question: p.Question})
		}
	}

	if len(steps) > 0 {
		chain, err := question.NewChain(defaults, steps...)
		if err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
		a.chain = chain
	}
	return nil
}

// checkBindings validates explicit file bindings eagerly so broken
// declarations fail at registration instead of on first use.
func (a *Action) checkBindings() error {
	for _, p := range a.params {
		if p.File == "" {
			continue
		}
		switch p.kind {
		case KindTemplate:
			if _, ok := a.templates[p.File]; !ok {
				return fmt.Errorf("action %q parameter %q: no template found", a.Name, p.Name)
			}
		case KindData:
			if _, ok := a.requests[p.File]; !ok {
				return fmt.Errorf("action %q parameter %q: request file specified in binding not found",
					a.Name, p.Name)
			}
		default:
			return fmt.Errorf("action %q parameter %q: file binding is only valid on template and data parameters",
				a.Name, p.Name)
		}
	}
	return nil
}

// Params returns the declared parameters.
func (a *Action) Params() []Param {
	return a.params
}

// Chain returns the question chain assembled from question-backed
// parameters, or nil when the action has none.
func (a *Action) Chain() *question.Chain {
	return a.chain
}

// Logger returns the action-bound logger.
func (a *Action) Logger() *logger.Logger {
	return a.log
}

// Templates returns the compiled message templates, keyed by filename.
func (a *Action) Templates() map[string]*template.Template {
	return a.templates
}

// Descriptor returns the persistable registration record for the action.
func (a *Action) Descriptor() Descriptor {
	return Descriptor{
		Name:        a.Name,
		Commands:    append([]string{}, a.Commands...),
		Description: a.Description,
	}
}
