// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/trialdesk/internal/activity"
	"github.com/jeranaias/trialdesk/internal/guard"
	"github.com/jeranaias/trialdesk/internal/logging"
	"github.com/jeranaias/trialdesk/internal/session"
	"github.com/jeranaias/trialdesk/internal/ui"
	"github.com/jeranaias/trialdesk/internal/ui/components"
)

// runTUI starts the terminal UI. Logs go to the rotating log file because
// the program owns the terminal.
func (a *app) runTUI(ctx context.Context) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := RequiresTTY("start the terminal UI"); err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return &ConfigError{Err: err}
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Path:       logPath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return &ConfigError{Err: err}
	}
	defer func() { _ = closeLog() }()

	bus := activity.NewBus()
	router := ui.NewRouter(logger)

	s, err := openStack(cfg, logger, router, bus)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	s.ctrl.OnTerminate(func(reason session.Reason) {
		logger.Info("session ended in ui", zap.String("reason", string(reason)))
	})

	g := guard.New(s.ctrl, guard.Options{
		Interval: cfg.Session.GuardInterval(),
		Logger:   logger,
	})

	model := ui.NewApp(ui.Options{
		Sessions:  s.ctrl,
		Profiles:  s.client,
		Guard:     g,
		Bus:       bus,
		LoginPath:   cfg.Session.LoginRoute,
		HomePath:    cfg.Session.HomeRoute,
		IdleWarning: components.WarningThresholdFor(cfg.Session.InactivityTimeout()),
		Logger:      logger,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	router.Attach(p)
	defer router.Detach()

	// Timers armed by a restore may navigate, so Start follows Attach.
	if err := s.ctrl.Start(ctx); err != nil {
		return err
	}

	logger.Info("tui started", zap.String("version", Version))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}
