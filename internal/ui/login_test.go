// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/trialdesk/internal/session"
)

func typeText(m LoginModel, s string) LoginModel {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func fillLogin(m LoginModel, email, password string) LoginModel {
	m = typeText(m, email)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	return typeText(m, password)
}

func TestLoginRequiresBothFields(t *testing.T) {
	m := NewLoginModel(&fakeSessions{}, "/dashboard")
	m = typeText(m, "ops@example.org")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.Contains(t, m.View(), "required")
}

func TestLoginEnterOnEmailMovesFocus(t *testing.T) {
	m := NewLoginModel(&fakeSessions{}, "/dashboard")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.focus)
}

func TestLoginSuccessNavigatesHome(t *testing.T) {
	fs := &fakeSessions{}
	m := fillLogin(NewLoginModel(fs, "/dashboard"), " ops@example.org ", "hunter2")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	result := cmd()
	require.Len(t, fs.logins, 1)
	assert.Equal(t, session.Credentials{Email: "ops@example.org", Password: "hunter2"}, fs.logins[0])

	m, cmd = m.Update(result)
	assert.False(t, m.busy)
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateMsg{Path: "/dashboard"}, cmd())
}

func TestLoginFailureShowsMessageAndClearsPassword(t *testing.T) {
	fs := &fakeSessions{loginErr: errors.New("invalid email or password")}
	m := fillLogin(NewLoginModel(fs, "/dashboard"), "ops@example.org", "wrong")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.False(t, m.busy)
	assert.Equal(t, "invalid email or password", m.errMsg)
	assert.Empty(t, m.password.Value())
	assert.Equal(t, "ops@example.org", m.email.Value())
	assert.Equal(t, 1, m.focus)
	assert.Contains(t, m.View(), "invalid email or password")
}

func TestLoginIgnoresKeysWhileBusy(t *testing.T) {
	m := fillLogin(NewLoginModel(&fakeSessions{}, "/dashboard"), "a@b.c", "pw")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.busy)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "pw", m.password.Value())
}

func TestLoginNotice(t *testing.T) {
	m := NewLoginModel(&fakeSessions{}, "/dashboard").WithNotice("Your session has ended.")
	assert.Contains(t, m.View(), "Your session has ended.")
}
