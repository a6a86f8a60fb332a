// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard protects views that require an authenticated operator.
//
// A Guard checks the session when a protected view is entered and then
// periodically while it stays open. When the check fails the session is
// terminated, which clears the stored record and redirects to the login
// route.
package guard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/jeranaias/trialdesk/internal/session"
)

// DefaultInterval is how often a mounted guard re-checks the session.
const DefaultInterval = 60 * time.Second

// Checker is the part of the session controller the guard needs.
type Checker interface {
	IsAuthenticated() bool
	Terminate(reason session.Reason)
}

// Options configures a Guard.
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
}

// Guard gates protected views.
type Guard struct {
	checker  Checker
	interval time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
}

// New returns a Guard for checker.
func New(checker Checker, opts Options) *Guard {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Guard{
		checker:  checker,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger.Named("guard"),
	}
}

// Interval returns the re-check period.
func (g *Guard) Interval() time.Duration {
	return g.interval
}

// RequireAuth reports whether the operator may stay on a protected view.
// When not, the session is terminated and the login redirect issued. A
// panic in the checker is recovered and reported as false.
func (g *Guard) RequireAuth() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("guard check panicked", zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()

	if g.checker.IsAuthenticated() {
		return true
	}

	g.logger.Info("guard.denied")
	g.terminate()
	return false
}

func (g *Guard) terminate() {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("guard terminate panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	g.checker.Terminate(session.ReasonUnauthenticated)
}

// Mount checks immediately and then every Interval until the returned
// unmount func is called. Unmount is idempotent and waits for the checking
// goroutine to exit, except when it is called during a check (for example
// from the checker's Terminate), where waiting would never finish.
func (g *Guard) Mount() (unmount func()) {
	if !g.RequireAuth() {
		return func() {}
	}

	ticker := g.clock.NewTicker(g.interval)
	done := make(chan struct{})
	exited := make(chan struct{})
	var checking atomic.Bool

	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				checking.Store(true)
				ok := g.RequireAuth()
				checking.Store(false)
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			if !checking.Load() {
				<-exited
			}
		})
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg asks a protected view to re-run the guard.
type TickMsg struct {
	Time time.Time
}

// TickCmd schedules the next TickMsg one Interval from now.
func (g *Guard) TickCmd() tea.Cmd {
	return tea.Tick(g.interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick runs the guard and schedules the next tick while the session
// remains valid.
func (g *Guard) HandleTick(TickMsg) tea.Cmd {
	if !g.RequireAuth() {
		return nil
	}
	return g.TickCmd()
}
