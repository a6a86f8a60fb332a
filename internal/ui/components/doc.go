// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI pieces for the trialdesk TUI.

IdleWarning (idle_warning.go) - Countdown overlay shown before the session
ends for inactivity. The dashboard feeds it the idle time remaining from the
session status on every status tick:

	warn := components.NewIdleWarning()
	warn.SetSize(width, height)
	warn.Observe(status.IdleRemaining)
	if warn.IsVisible() {
		return warn.View()
	}
*/
package components
