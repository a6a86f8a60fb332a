// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the trialdesk terminal palette and shared lipgloss
// styles. Colors are AdaptiveColor values so the UI follows the terminal's
// light or dark background. Status text always carries an ASCII indicator
// next to the color.
package styles
