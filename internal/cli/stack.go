// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jeranaias/trialdesk/internal/activity"
	"github.com/jeranaias/trialdesk/internal/api"
	"github.com/jeranaias/trialdesk/internal/config"
	"github.com/jeranaias/trialdesk/internal/logging"
	"github.com/jeranaias/trialdesk/internal/session"
	"github.com/jeranaias/trialdesk/internal/storage"
)

// cliLogLevel is used for one-shot commands unless --log-level is given,
// so session events do not clutter their output.
const cliLogLevel = "warn"

// stack is the wired session machinery shared by the TUI and the commands.
type stack struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *storage.RecordStore
	client *api.Client
	ctrl   *session.Controller
}

// openStack wires storage, the API client and the session controller.
// src may be nil when no interaction signals are available.
func openStack(cfg *config.Config, logger *zap.Logger, nav session.Navigator, src activity.Source) (*stack, error) {
	store, err := storage.Open(cfg, logger)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	client := api.New(cfg.API, logger)
	ctrl, err := session.New(session.Options{
		Store:         store,
		Authenticator: client,
		Renewer:       client.Renewer(),
		Navigator:     nav,
		Activity:      src,
		Logger:        logger,
		Config:        session.ConfigFrom(cfg.Session),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	client.WithSession(ctrl)

	logger.Debug("stack ready",
		zap.String("backend", store.Backend()),
		zap.String("api", client.BaseURL()),
		zap.Bool("renewal", client.RenewalEnabled()),
	)
	return &stack{cfg: cfg, logger: logger, store: store, client: client, ctrl: ctrl}, nil
}

// Close disposes the controller and closes the store. The record is kept.
func (s *stack) Close() error {
	s.ctrl.Dispose()
	return s.store.Close()
}

// withSession runs fn against a started controller, logging to stderr.
func (a *app) withSession(ctx context.Context, fn func(ctx context.Context, s *stack) error) (err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	level := cliLogLevel
	if a.logLevel != "" {
		level = cfg.Log.Level
	}
	logger, closeLog, err := logging.New(logging.Options{Level: level, Writer: a.stderr})
	if err != nil {
		return &ConfigError{Err: err}
	}
	defer func() { _ = closeLog() }()

	nav := session.NavigatorFunc(func(path string) {
		logger.Debug("navigation requested", zap.String("path", path))
	})
	s, err := openStack(cfg, logger, nav, nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	if err := s.ctrl.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}
