// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package activity

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestSignal_String(t *testing.T) {
	assert.Equal(t, "pointerdown", PointerDown.String())
	assert.Equal(t, "keydown", KeyDown.String())
	assert.Equal(t, "scroll", Scroll.String())
	assert.Equal(t, "touchstart", TouchStart.String())
	assert.Equal(t, "unknown", Signal(42).String())
}

func TestBus_EmitAndCancel(t *testing.T) {
	bus := NewBus()

	var a, b []Signal
	cancelA := bus.Subscribe(func(s Signal) { a = append(a, s) })
	cancelB := bus.Subscribe(func(s Signal) { b = append(b, s) })
	assert.Equal(t, 2, bus.Subscribers())

	bus.Emit(KeyDown)
	cancelA()
	cancelA()
	bus.Emit(Scroll)
	cancelB()

	assert.Equal(t, []Signal{KeyDown}, a)
	assert.Equal(t, []Signal{KeyDown, Scroll}, b)
	assert.Equal(t, 0, bus.Subscribers())
}

func TestFromTeaMsg(t *testing.T) {
	tests := []struct {
		name   string
		msg    tea.Msg
		want   Signal
		wantOK bool
	}{
		{"key", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, KeyDown, true},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, KeyDown, true},
		{"left click", tea.MouseMsg{Type: tea.MouseLeft}, PointerDown, true},
		{"right click", tea.MouseMsg{Type: tea.MouseRight}, PointerDown, true},
		{"wheel", tea.MouseMsg{Type: tea.MouseWheelDown}, Scroll, true},
		{"release", tea.MouseMsg{Type: tea.MouseRelease}, 0, false},
		{"motion", tea.MouseMsg{Type: tea.MouseMotion}, 0, false},
		{"resize", tea.WindowSizeMsg{Width: 80, Height: 24}, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromTeaMsg(tt.msg)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
