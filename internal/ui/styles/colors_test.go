// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestRenderHelpers_IncludeIndicators(t *testing.T) {
	tests := []struct {
		name      string
		render    func(string) string
		indicator string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("session ended")
			if !strings.Contains(out, tt.indicator) {
				t.Errorf("output %q missing indicator %q", out, tt.indicator)
			}
			if !strings.Contains(out, "session ended") {
				t.Errorf("output %q missing message", out)
			}
		})
	}
}

func TestStateColor(t *testing.T) {
	if StateColor("authenticated") != Emerald {
		t.Error("authenticated should be emerald")
	}
	if StateColor("refresh_due") != Amber {
		t.Error("refresh_due should be amber")
	}
	if StateColor("expired") != Rose {
		t.Error("expired should be rose")
	}
	if StateColor("anonymous") != TextMuted {
		t.Error("anonymous should be muted")
	}
}
