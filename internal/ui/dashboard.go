// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/trialdesk/internal/api"
	"github.com/jeranaias/trialdesk/internal/guard"
	"github.com/jeranaias/trialdesk/internal/session"
	"github.com/jeranaias/trialdesk/internal/ui/components"
	"github.com/jeranaias/trialdesk/internal/ui/styles"
	"github.com/jeranaias/trialdesk/internal/util"
)

const (
	statusInterval = time.Second
	requestTimeout = 15 * time.Second

	// maxFieldRunes keeps values inside the panel.
	maxFieldRunes = 48
)

// Messages scoped to one mounted dashboard. id ties them to the mount that
// scheduled them so ticks from a previous visit are ignored.
type (
	statusTickMsg struct{ id int }

	guardTickMsg struct {
		id  int
		msg guard.TickMsg
	}

	profileMsg struct {
		id  int
		op  *api.Operator
		err error
	}

	refreshedMsg struct {
		id   int
		info session.Info
		err  error
	}
)

// DashboardModel is the protected operator view.
type DashboardModel struct {
	id       int
	sessions Sessions
	profiles Profiles
	guard    *guard.Guard

	status   session.Status
	operator *api.Operator
	idle     components.IdleWarning

	busy   bool
	notice string
	errMsg string

	width  int
	height int
}

// NewDashboardModel returns a dashboard for mount id.
func NewDashboardModel(id int, sessions Sessions, profiles Profiles, g *guard.Guard) DashboardModel {
	return DashboardModel{
		id:       id,
		sessions: sessions,
		profiles: profiles,
		guard:    g,
		status:   sessions.Status(),
		idle:     components.NewIdleWarning(),
	}
}

// WithIdleWarning sets how long before the inactivity deadline the warning
// overlay appears.
func (m DashboardModel) WithIdleWarning(d time.Duration) DashboardModel {
	m.idle.SetThreshold(d)
	return m
}

// Init fetches the operator profile and starts the status and guard ticks.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchProfile(), m.statusTick(), m.guardTick())
}

func (m DashboardModel) statusTick() tea.Cmd {
	id := m.id
	return tea.Tick(statusInterval, func(time.Time) tea.Msg {
		return statusTickMsg{id: id}
	})
}

func (m DashboardModel) guardTick() tea.Cmd {
	return m.wrapGuard(m.guard.TickCmd())
}

// wrapGuard tags a guard command with this mount's id.
func (m DashboardModel) wrapGuard(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	id := m.id
	return func() tea.Msg {
		tick, _ := cmd().(guard.TickMsg)
		return guardTickMsg{id: id, msg: tick}
	}
}

func (m DashboardModel) fetchProfile() tea.Cmd {
	if m.profiles == nil {
		return nil
	}
	id, profiles := m.id, m.profiles
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		op, err := profiles.Me(ctx)
		return profileMsg{id: id, op: op, err: err}
	}
}

func (m DashboardModel) refresh() tea.Cmd {
	id, sessions := m.id, m.sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		info, err := sessions.Refresh(ctx)
		return refreshedMsg{id: id, info: info, err: err}
	}
}

// Update handles dashboard messages. Messages from another mount are
// dropped.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.idle.SetSize(msg.Width, msg.Height)
		return m, nil

	case statusTickMsg:
		if msg.id != m.id {
			return m, nil
		}
		m.observe()
		return m, m.statusTick()

	case guardTickMsg:
		if msg.id != m.id {
			return m, nil
		}
		return m, m.wrapGuard(m.guard.HandleTick(msg.msg))

	case profileMsg:
		if msg.id != m.id {
			return m, nil
		}
		if msg.err != nil {
			if !api.IsUnauthorized(msg.err) {
				m.errMsg = "Profile unavailable: " + msg.err.Error()
			}
			return m, nil
		}
		m.operator = msg.op
		return m, nil

	case refreshedMsg:
		if msg.id != m.id {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.notice = "Session renewed until " + msg.info.ExpiresAt.Local().Format("15:04:05")
		m.observe()
		return m, nil

	case tea.KeyMsg:
		if m.idle.IsVisible() {
			// The key already reset the inactivity deadline.
			m.idle.Hide()
			return m, nil
		}
		switch msg.String() {
		case "r":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.notice = ""
			return m, m.refresh()
		case "l":
			m.sessions.Logout("")
			return m, nil
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *DashboardModel) observe() {
	m.status = m.sessions.Status()
	if m.status.State.Valid() {
		m.idle.Observe(m.status.IdleRemaining)
	} else {
		m.idle.Hide()
	}
}

// View renders the dashboard, or the idle warning when it is showing.
func (m DashboardModel) View() string {
	if m.idle.IsVisible() {
		return m.idle.View()
	}

	row := func(label, value string) string {
		return styles.Label.Render(label) + styles.Value.Render(util.TruncateRunes(value, maxFieldRunes))
	}

	name, email, role := "loading...", "", ""
	if m.operator != nil {
		name, email, role = m.operator.Name, m.operator.Email, m.operator.Role
	}

	st := m.status
	state := lipgloss.NewStyle().Foreground(styles.StateColor(st.State.String())).Bold(true).
		Render(st.State.String())

	renewal := "disabled"
	if st.RenewalEnabled {
		renewal = "in " + formatDuration(st.RefreshIn)
	}

	lines := []string{
		styles.Title.Render("trialdesk") + "  " + styles.Hint.Render("operator session"),
		"",
		row("Operator", name),
		row("Email", email),
		row("Role", role),
		"",
		styles.Label.Render("State") + state,
		row("Session", st.SessionID),
		row("Expires in", formatDuration(st.ExpiresIn)),
		row("Renewal", renewal),
		row("Idle timeout", components.FormatCountdown(st.IdleRemaining)),
		"",
	}
	switch {
	case m.busy:
		lines = append(lines, styles.Hint.Render("Renewing..."))
	case m.errMsg != "":
		lines = append(lines, styles.RenderError(util.TruncateRunes(m.errMsg, maxFieldRunes+16)))
	case m.notice != "":
		lines = append(lines, styles.RenderSuccess(m.notice))
	}
	lines = append(lines, styles.Hint.Render("r renew  l log out  q quit"))

	panel := styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if m.width == 0 || m.height == 0 {
		return panel
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, mins)
	}
	return fmt.Sprintf("%dm%02ds", mins, secs)
}
