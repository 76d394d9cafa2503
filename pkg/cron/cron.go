// Package cron runs the background maintenance schedules.
package cron

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"toribot/pkg/logger"
	"toribot/pkg/tg"
)

// Manager schedules the periodic sweep of expired pagination state. Page
// expiry is also checked lazily at navigation time; the sweep keeps the
// state store from accumulating records nobody will navigate again.
type Manager struct {
	log       *logger.Logger
	pages     *tg.PageStore
	schedule  string
	scheduler *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a cron manager sweeping the given page store.
func New(log *logger.Logger, pages *tg.PageStore, schedule string) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		log:       log,
		pages:     pages,
		schedule:  schedule,
		scheduler: cron.New(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start validates the schedule and begins running it.
func (m *Manager) Start() error {
	m.log.Info("Starting cron manager", zap.String("schedule", m.schedule))

	if _, err := cron.ParseStandard(m.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", m.schedule, err)
	}

	if _, err := m.scheduler.AddFunc(m.schedule, m.sweep); err != nil {
		return fmt.Errorf("scheduling pages sweep: %w", err)
	}

	m.scheduler.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (m *Manager) Stop() error {
	m.log.Info("Stopping cron manager")

	ctx := m.scheduler.Stop()
	<-ctx.Done()

	m.cancel()

	m.log.Info("Cron manager stopped")
	return nil
}

func (m *Manager) sweep() {
	if err := m.pages.Sweep(m.ctx); err != nil {
		m.log.Error("Pages sweep failed", zap.Error(err))
	}
}
