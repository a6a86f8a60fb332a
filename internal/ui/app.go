// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/trialdesk/internal/activity"
	"github.com/jeranaias/trialdesk/internal/api"
	"github.com/jeranaias/trialdesk/internal/guard"
	"github.com/jeranaias/trialdesk/internal/session"
)

// Sessions is the session controller as seen by the views.
type Sessions interface {
	Login(ctx context.Context, creds session.Credentials) (session.Info, error)
	Logout(target string)
	Refresh(ctx context.Context) (session.Info, error)
	Status() session.Status
	IsAuthenticated() bool
	Terminate(reason session.Reason)
}

// Profiles fetches the operator profile.
type Profiles interface {
	Me(ctx context.Context) (*api.Operator, error)
}

// Options wires the App.
type Options struct {
	Sessions  Sessions
	Profiles  Profiles
	Guard     *guard.Guard
	Bus       *activity.Bus
	LoginPath string
	HomePath  string
	// IdleWarning is how long before the inactivity deadline the dashboard
	// shows its warning. Zero uses components.DefaultWarningThreshold.
	IdleWarning time.Duration
	Logger      *zap.Logger
}

// App is the root bubbletea model.
type App struct {
	opts   Options
	logger *zap.Logger

	route  string
	mounts int
	login  LoginModel
	dash   DashboardModel
	notice string

	width  int
	height int
}

// NewApp returns the root model. The initial route is chosen in Init.
func NewApp(opts Options) App {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.HomePath == "" {
		opts.HomePath = "/dashboard"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return App{
		opts:   opts,
		logger: opts.Logger.Named("ui"),
		login:  NewLoginModel(opts.Sessions, opts.HomePath),
	}
}

// Route returns the active route.
func (a App) Route() string {
	return a.route
}

// Init opens the dashboard for a restored session and the login form
// otherwise.
func (a App) Init() tea.Cmd {
	if a.opts.Sessions.IsAuthenticated() {
		return Navigate(a.opts.HomePath)
	}
	return Navigate(a.opts.LoginPath)
}

// Update emits interaction signals, handles routing and forwards the rest
// to the active view.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sig, ok := activity.FromTeaMsg(msg); ok && a.opts.Bus != nil {
		a.opts.Bus.Emit(sig)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.login, _ = a.login.Update(msg)
		a.dash, _ = a.dash.Update(msg)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}

	case NavigateMsg:
		return a.navigate(msg.Path)
	}

	var cmd tea.Cmd
	switch a.route {
	case a.opts.HomePath:
		a.dash, cmd = a.dash.Update(msg)
	case a.opts.LoginPath:
		a.login, cmd = a.login.Update(msg)
	}
	return a, cmd
}

func (a App) navigate(path string) (tea.Model, tea.Cmd) {
	size := tea.WindowSizeMsg{Width: a.width, Height: a.height}

	switch path {
	case a.opts.HomePath:
		if !a.opts.Guard.RequireAuth() {
			// The guard terminated the session; its redirect follows.
			return a, nil
		}
		a.mounts++
		a.dash = NewDashboardModel(a.mounts, a.opts.Sessions, a.opts.Profiles, a.opts.Guard).
			WithIdleWarning(a.opts.IdleWarning)
		a.dash, _ = a.dash.Update(size)
		a.route = path
		a.logger.Debug("route", zap.String("path", path))
		return a, a.dash.Init()

	default:
		notice := ""
		if a.route == a.opts.HomePath {
			notice = "Your session has ended. Please sign in again."
		}
		a.login = NewLoginModel(a.opts.Sessions, a.opts.HomePath).WithNotice(notice)
		a.login, _ = a.login.Update(size)
		a.route = a.opts.LoginPath
		a.logger.Debug("route", zap.String("path", path))
		return a, a.login.Init()
	}
}

// View renders the active view.
func (a App) View() string {
	switch a.route {
	case a.opts.HomePath:
		return a.dash.View()
	case a.opts.LoginPath:
		return a.login.View()
	default:
		return ""
	}
}
