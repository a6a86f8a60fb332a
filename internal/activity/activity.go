// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package activity carries operator interaction signals to the session
// controller.
//
// The UI emits a Signal for each qualifying interaction (pointer press, key
// press, scroll, touch start) on a Bus. The session controller subscribes to
// the bus and resets its inactivity deadline on every signal.
package activity

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Signal is a qualifying operator interaction.
type Signal int

const (
	// PointerDown is a mouse button press.
	PointerDown Signal = iota
	// KeyDown is a key press.
	KeyDown
	// Scroll is a wheel or scroll event.
	Scroll
	// TouchStart is the start of a touch gesture.
	TouchStart
)

// String returns the event name used in logs.
func (s Signal) String() string {
	switch s {
	case PointerDown:
		return "pointerdown"
	case KeyDown:
		return "keydown"
	case Scroll:
		return "scroll"
	case TouchStart:
		return "touchstart"
	default:
		return "unknown"
	}
}

// Source delivers interaction signals to subscribers. The returned cancel
// func detaches the handler and is safe to call more than once.
type Source interface {
	Subscribe(handler func(Signal)) (cancel func())
}

// Bus is an in-process Source. Handlers run synchronously on the emitting
// goroutine, so they must not block.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Signal)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]func(Signal))}
}

// Subscribe registers handler.
func (b *Bus) Subscribe(handler func(Signal)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Emit delivers s to every subscriber.
func (b *Bus) Emit(s Signal) {
	b.mu.RLock()
	handlers := make([]func(Signal), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(s)
	}
}

// Subscribers returns the number of attached handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// FromTeaMsg maps a bubbletea message to a Signal. Window resizes, ticks and
// mouse motion or release events are not interactions.
func FromTeaMsg(msg tea.Msg) (Signal, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return KeyDown, true
	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp, tea.MouseWheelDown, tea.MouseWheelLeft, tea.MouseWheelRight:
			return Scroll, true
		case tea.MouseLeft, tea.MouseRight, tea.MouseMiddle:
			return PointerDown, true
		}
	}
	return 0, false
}
