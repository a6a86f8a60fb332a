// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/trialdesk/internal/activity"
	"github.com/jeranaias/trialdesk/internal/guard"
	"github.com/jeranaias/trialdesk/internal/session"
)

func newApp(fs *fakeSessions) (App, *activity.Bus) {
	bus := activity.NewBus()
	return NewApp(Options{
		Sessions:  fs,
		Profiles:  fakeProfiles{},
		Guard:     guard.New(fs, guard.Options{}),
		Bus:       bus,
		LoginPath: "/login",
		HomePath:  "/dashboard",
	}), bus
}

func step(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	app, ok := m.(App)
	require.True(t, ok)
	return app
}

func TestAppInitialRoute(t *testing.T) {
	anon, _ := newApp(&fakeSessions{})
	assert.Equal(t, NavigateMsg{Path: "/login"}, anon.Init()())

	restored, _ := newApp(authedSessions())
	assert.Equal(t, NavigateMsg{Path: "/dashboard"}, restored.Init()())
}

func TestAppGuardBlocksDashboard(t *testing.T) {
	fs := &fakeSessions{}
	a, _ := newApp(fs)
	a = step(t, a, NavigateMsg{Path: "/login"})

	a = step(t, a, NavigateMsg{Path: "/dashboard"})
	assert.Equal(t, "/login", a.Route())
	assert.Equal(t, []session.Reason{session.ReasonUnauthenticated}, fs.terminated)
}

func TestAppEntersDashboardWhenAuthenticated(t *testing.T) {
	a, _ := newApp(authedSessions())
	a = step(t, a, NavigateMsg{Path: "/dashboard"})
	assert.Equal(t, "/dashboard", a.Route())
	assert.Contains(t, a.View(), "sid-1")
}

func TestAppLeavingDashboardShowsNotice(t *testing.T) {
	a, _ := newApp(authedSessions())
	a = step(t, a, NavigateMsg{Path: "/dashboard"})
	a = step(t, a, NavigateMsg{Path: "/login"})
	assert.Equal(t, "/login", a.Route())
	assert.Contains(t, a.View(), "Your session has ended")
}

func TestAppAppliesIdleWarning(t *testing.T) {
	fs := authedSessions()
	a := NewApp(Options{
		Sessions:    fs,
		Profiles:    fakeProfiles{},
		Guard:       guard.New(fs, guard.Options{}),
		LoginPath:   "/login",
		HomePath:    "/dashboard",
		IdleWarning: 15 * time.Second,
	})
	a = step(t, a, NavigateMsg{Path: "/dashboard"})

	a.dash.idle.Observe(time.Minute)
	assert.False(t, a.dash.idle.IsVisible())
	a.dash.idle.Observe(10 * time.Second)
	assert.True(t, a.dash.idle.IsVisible())
}

func TestAppRemountGetsNewID(t *testing.T) {
	a, _ := newApp(authedSessions())
	a = step(t, a, NavigateMsg{Path: "/dashboard"})
	first := a.dash.id
	a = step(t, a, NavigateMsg{Path: "/login"})
	a = step(t, a, NavigateMsg{Path: "/dashboard"})
	assert.NotEqual(t, first, a.dash.id)
}

func TestAppEmitsActivity(t *testing.T) {
	a, bus := newApp(authedSessions())
	var got []activity.Signal
	bus.Subscribe(func(s activity.Signal) { got = append(got, s) })

	a = step(t, a, NavigateMsg{Path: "/dashboard"})
	a = step(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	step(t, a, tea.MouseMsg{Type: tea.MouseWheelDown})

	assert.Equal(t, []activity.Signal{activity.KeyDown, activity.Scroll}, got)
}

func TestAppCtrlCQuits(t *testing.T) {
	a, _ := newApp(&fakeSessions{})
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
