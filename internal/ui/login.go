// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/trialdesk/internal/session"
	"github.com/jeranaias/trialdesk/internal/ui/styles"
	"github.com/jeranaias/trialdesk/internal/util"
)

// loginTimeout bounds one login request from the view.
const loginTimeout = 30 * time.Second

// loginResultMsg carries the outcome of a login attempt.
type loginResultMsg struct {
	info session.Info
	err  error
}

// LoginModel is the sign-in form.
type LoginModel struct {
	sessions Sessions
	homePath string

	email    textinput.Model
	password textinput.Model
	focus    int

	busy   bool
	errMsg string
	notice string

	width  int
	height int
}

// NewLoginModel returns an empty form with the email field focused.
func NewLoginModel(sessions Sessions, homePath string) LoginModel {
	email := textinput.New()
	email.Placeholder = "operator@example.org"
	email.Prompt = ""
	email.CharLimit = 254
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.CharLimit = 256
	password.Width = 40
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	return LoginModel{
		sessions: sessions,
		homePath: homePath,
		email:    email,
		password: password,
	}
}

// WithNotice sets an informational line shown above the form.
func (m LoginModel) WithNotice(notice string) LoginModel {
	m.notice = notice
	return m
}

// Init starts the cursor blink.
func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles form input and login results.
func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.password.SetValue("")
			return m, m.setFocus(1)
		}
		return m, Navigate(m.homePath)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyDown, tea.KeyUp:
			return m, m.setFocus(1 - m.focus)
		case tea.KeyEsc:
			m.errMsg = ""
			return m, nil
		case tea.KeyEnter:
			if m.focus == 0 {
				return m, m.setFocus(1)
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *LoginModel) setFocus(i int) tea.Cmd {
	m.focus = i
	if i == 0 {
		m.password.Blur()
		return m.email.Focus()
	}
	m.email.Blur()
	return m.password.Focus()
}

func (m LoginModel) submit() (LoginModel, tea.Cmd) {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if email == "" || password == "" {
		m.errMsg = "Email and password are required"
		return m, nil
	}

	m.busy = true
	m.errMsg = ""
	m.notice = ""
	sessions := m.sessions
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		info, err := sessions.Login(ctx, session.Credentials{Email: email, Password: password})
		return loginResultMsg{info: info, err: err}
	}
}

// View renders the form.
func (m LoginModel) View() string {
	label := func(s string, focused bool) string {
		st := styles.Label
		if focused {
			st = st.Foreground(styles.Cyan)
		}
		return st.Render(s)
	}

	lines := []string{
		styles.Title.Render("trialdesk") + "  " + styles.Hint.Render("operator sign-in"),
		"",
	}
	if m.notice != "" {
		lines = append(lines, styles.RenderInfo(m.notice), "")
	}
	lines = append(lines,
		label("Email", m.focus == 0)+m.email.View(),
		label("Password", m.focus == 1)+m.password.View(),
		"",
	)
	switch {
	case m.busy:
		lines = append(lines, styles.Hint.Render("Signing in..."))
	case m.errMsg != "":
		lines = append(lines, styles.RenderError(util.TruncateRunes(m.errMsg, 64)))
	default:
		lines = append(lines, styles.Hint.Render("enter submit  tab switch field  ctrl+c quit"))
	}

	panel := styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if m.width == 0 || m.height == 0 {
		return panel
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}
