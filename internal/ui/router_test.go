// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigateCmd(t *testing.T) {
	msg := Navigate("/login")()
	assert.Equal(t, NavigateMsg{Path: "/login"}, msg)
}

func TestRouterDeliversWhenAttached(t *testing.T) {
	r := NewRouter(nil)
	var got []tea.Msg
	r.setSend(func(msg tea.Msg) { got = append(got, msg) })

	r.Navigate("/login")
	r.Navigate("/dashboard")

	require.Len(t, got, 2)
	assert.Equal(t, NavigateMsg{Path: "/login"}, got[0])
	assert.Equal(t, NavigateMsg{Path: "/dashboard"}, got[1])
}

func TestRouterDropsWhenDetached(t *testing.T) {
	r := NewRouter(nil)
	r.Navigate("/login") // no program yet

	calls := 0
	r.setSend(func(tea.Msg) { calls++ })
	r.Detach()
	r.Navigate("/login")

	assert.Zero(t, calls)
}
