// Package bot is the framework facade: it registers actions against the
// configured datasources and question defaults, persists their descriptors
// and hands the live set to the transport.
package bot

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"toribot/pkg/action"
	"toribot/pkg/config"
	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/question"
)

// Bot collects registered actions. Registration happens once at bootstrap,
// before traffic flows.
type Bot struct {
	log     *logger.Logger
	cfg     *config.Config
	sources map[string]datasource.DataSource
	store   action.Store

	mu      sync.Mutex
	actions []*action.Action
}

// New creates the facade.
func New(log *logger.Logger, cfg *config.Config, sources map[string]datasource.DataSource, store action.Store) *Bot {
	return &Bot{
		log:     log,
		cfg:     cfg,
		sources: sources,
		store:   store,
	}
}

// Register validates and adds one action. The configured datasources and
// question defaults are filled in unless the declaration brings its own.
func (b *Bot) Register(opts action.Options) (*action.Action, error) {
	if opts.Sources == nil {
		opts.Sources = b.sources
	}
	if reflect.DeepEqual(opts.QuestionDefaults, question.Defaults{}) {
		opts.QuestionDefaults = questionDefaults(b.cfg.Questions)
	}

	a, err := action.New(b.log, opts)
	if err != nil {
		return nil, fmt.Errorf("registering action: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.actions {
		if existing.Name == a.Name {
			return nil, fmt.Errorf("action %q is already registered", a.Name)
		}
	}
	b.actions = append(b.actions, a)
	return a, nil
}

// Actions returns the registered actions.
func (b *Bot) Actions() []*action.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*action.Action{}, b.actions...)
}

// Start persists the descriptors of every registered action and prunes
// stale records from previous deployments.
func (b *Bot) Start(ctx context.Context) error {
	actions := b.Actions()
	if len(actions) == 0 {
		b.log.Warn("No actions registered, the bot will only serve default responses")
	}

	names := make([]string, 0, len(actions))
	for _, a := range actions {
		if err := b.store.Upsert(ctx, a.Descriptor()); err != nil {
			return fmt.Errorf("persisting action %q: %w", a.Name, err)
		}
		names = append(names, a.Name)
	}

	if err := b.store.Prune(ctx, names); err != nil {
		return fmt.Errorf("pruning stale actions: %w", err)
	}

	b.log.Info("Actions registered", zap.Int("count", len(actions)))
	return nil
}

// questionDefaults maps the configured question texts onto the defaults
// applied at chain construction.
func questionDefaults(q config.QuestionsConfig) question.Defaults {
	return question.Defaults{
		BoolTrueValues:     q.BoolTrueValues,
		BoolFalseValues:    q.BoolFalseValues,
		BoolError:          q.BoolErrorText,
		IntegerError:       q.IntegerErrorText,
		ChoiceError:        q.ChoiceErrorText,
		DynamicChoiceError: q.DynamicChoiceErrorText,
		DatetimeError:      q.DatetimeErrorText,
		DateError:          q.DateErrorText,
		TimeError:          q.TimeErrorText,
		FileError:          q.FileErrorText,
		ImageError:         q.ImageErrorText,
	}
}
