// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// NavigateMsg switches the App to Path.
type NavigateMsg struct {
	Path string
}

// Navigate returns a command producing NavigateMsg{Path: path}.
func Navigate(path string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Path: path}
	}
}

// Router delivers navigation requests from outside the event loop to the
// running program. It implements session.Navigator.
type Router struct {
	mu     sync.Mutex
	send   func(tea.Msg)
	logger *zap.Logger
}

// NewRouter returns a router that is not yet attached to a program.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger.Named("router")}
}

// Attach connects the router to p. Messages are sent from a new goroutine
// because Navigate may be called from inside Update, where a blocking Send
// would deadlock the event loop.
func (r *Router) Attach(p *tea.Program) {
	r.setSend(func(msg tea.Msg) {
		go p.Send(msg)
	})
}

func (r *Router) setSend(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

// Detach stops delivery. Later navigations are dropped.
func (r *Router) Detach() {
	r.setSend(nil)
}

// Navigate implements session.Navigator.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()

	if send == nil {
		r.logger.Debug("navigation dropped, no program attached", zap.String("path", path))
		return
	}
	send(NavigateMsg{Path: path})
}
