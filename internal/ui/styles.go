package ui

import (
	"fmt"
	"strings"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorBad    = 203 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderStatus colours an agent or workflow status: running is blue, error
// red, idle gray.
func RenderStatus(status string) string {
	switch status {
	case "running":
		return paint(colorAccent, status)
	case "error":
		return paint(colorBad, status)
	default:
		return paint(colorMuted, status)
	}
}

// RenderSeverity colours an event severity.
func RenderSeverity(sev string) string {
	switch sev {
	case "critical", "error":
		return paint(colorBad, sev)
	case "warning":
		return paint(colorWarn, sev)
	default:
		return paint(colorMuted, sev)
	}
}

// RenderHealth colours a system health value.
func RenderHealth(h string) string {
	switch h {
	case "healthy":
		return paint(colorOK, h)
	case "degraded":
		return paint(colorWarn, h)
	default:
		return paint(colorBad, h)
	}
}

// RenderTrend renders a trend direction with an arrow.
func RenderTrend(trend string) string {
	switch strings.ToLower(trend) {
	case "up":
		return paint(colorOK, "↑ up")
	case "down":
		return paint(colorBad, "↓ down")
	default:
		return paint(colorMuted, "→ "+trend)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor = !enabled
}
