// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/trialdesk/internal/ui/styles"
)

// DefaultWarningThreshold is how long before the inactivity deadline the
// warning is shown.
const DefaultWarningThreshold = 2 * time.Minute

// WarningThresholdFor returns the warning threshold for an inactivity
// timeout: DefaultWarningThreshold, capped at a quarter of the timeout.
func WarningThresholdFor(inactivity time.Duration) time.Duration {
	if inactivity <= 0 {
		return DefaultWarningThreshold
	}
	return min(DefaultWarningThreshold, inactivity/4)
}

// =============================================================================
// IDLE WARNING OVERLAY
// =============================================================================

// IdleWarning warns the operator that the session is about to end for
// inactivity. Any interaction resets the deadline in the session controller;
// the overlay only reflects the remaining time it is given.
type IdleWarning struct {
	visible   bool
	remaining time.Duration
	threshold time.Duration

	width  int
	height int
}

// NewIdleWarning returns a hidden overlay with the default threshold.
func NewIdleWarning() IdleWarning {
	return IdleWarning{threshold: DefaultWarningThreshold}
}

// SetSize sets the overlay dimensions.
func (o *IdleWarning) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// SetThreshold sets when the warning appears. Non-positive values keep the
// current threshold.
func (o *IdleWarning) SetThreshold(threshold time.Duration) {
	if threshold > 0 {
		o.threshold = threshold
	}
}

// Observe shows or hides the overlay for the remaining idle time.
func (o *IdleWarning) Observe(remaining time.Duration) {
	o.remaining = remaining
	o.visible = remaining > 0 && remaining <= o.threshold
}

// Hide hides the overlay.
func (o *IdleWarning) Hide() {
	o.visible = false
}

// IsVisible returns whether the overlay is shown.
func (o IdleWarning) IsVisible() bool {
	return o.visible
}

// View renders the overlay, or "" when hidden.
func (o IdleWarning) View() string {
	if !o.visible {
		return ""
	}

	width := o.width
	if width == 0 {
		width = 60
	}
	height := o.height
	if height == 0 {
		height = 24
	}
	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	titleStyle := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	timeStyle := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 4).
		Align(lipgloss.Center)
	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true).
		Align(lipgloss.Center)

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(styles.StatusIndicators.Warning+" Session Inactive"),
		"",
		msgStyle.Render("You will be signed out in "+timeStyle.Render(FormatCountdown(o.remaining))),
		"",
		hintStyle.Render("Press any key to stay signed in"),
	)

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

// FormatCountdown formats d as M:SS. Negative durations render as 0:00.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	totalSecs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", totalSecs/60, totalSecs%60)
}
