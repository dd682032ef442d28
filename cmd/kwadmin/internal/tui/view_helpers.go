// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

// Helper functions for badges, buttons, and dialog chrome.

import (
	"fmt"
	"strings"

	"github.com/keywarden/keywarden/internal/confirm"
	"github.com/keywarden/keywarden/internal/lifecycle"
)

// kindDisplayColor maps key kinds to their ANSI display colors.
func kindDisplayColor(kind string) string {
	switch kind {
	case "passphrase":
		return "39" // cyan
	case "yubikey":
		return "214" // orange
	case "recipient":
		return "135" // purple
	}
	return "39"
}

// styledKind returns a kind badge styled with the kind's display color.
// Uses raw ANSI codes for consistent width handling in list rows
func styledKind(kind string) string {
	return fmt.Sprintf("\033[%sm[%s]\033[0m", kindDisplayColor(kind), kind)
}

// statusColor maps lifecycle statuses to their ANSI display colors.
func statusColor(status lifecycle.Status) string {
	switch status {
	case lifecycle.StatusActive:
		return "42" // green
	case lifecycle.StatusPreActivation:
		return "39" // cyan
	case lifecycle.StatusSuspended:
		return "214" // orange
	case lifecycle.StatusDeactivated:
		return "214" // orange
	case lifecycle.StatusCompromised:
		return "196" // red
	case lifecycle.StatusDestroyed:
		return "241" // gray
	}
	return "241"
}

// statusBadge renders the lifecycle badge shown on key cards.
func statusBadge(status lifecycle.Status) string {
	return fmt.Sprintf("\033[%sm[%s]\033[0m", statusColor(status), status.DisplayText())
}

// slotColor maps slot states to their ANSI display colors.
func slotColor(slot lifecycle.SlotState) string {
	switch slot {
	case lifecycle.SlotActive:
		return "42" // green
	case lifecycle.SlotRegistered:
		return "39" // cyan
	case lifecycle.SlotOrphaned:
		return "214" // orange
	}
	return "241"
}

// slotText returns the compact text for a status slot.
func slotText(slot lifecycle.SlotState) string {
	switch slot {
	case lifecycle.SlotActive:
		return "in use"
	case lifecycle.SlotRegistered:
		return "registered"
	case lifecycle.SlotOrphaned:
		return "orphaned"
	}
	return ""
}

// slotBadge renders the status slot shown next to vault links. Empty
// slots render as nothing.
func slotBadge(slot lifecycle.SlotState) string {
	if slot == lifecycle.SlotEmpty {
		return ""
	}
	return fmt.Sprintf("\033[%sm[%s]\033[0m", slotColor(slot), slotText(slot))
}

// renderCheckbox renders the immediate-delete checkbox.
func renderCheckbox(label string, checked, focused bool) string {
	box := "[ ]"
	if checked {
		box = "[x]"
	}
	line := box + " " + label
	if focused {
		return selectedStyle.Render(line)
	}
	return normalStyle.Render(line)
}

// renderButton renders a dialog button with focus styling.
func renderButton(label string, focused bool) string {
	if focused {
		return buttonActiveStyle.Render(label)
	}
	return buttonInactiveStyle.Render(label)
}

// renderDangerButton renders a destructive-action button. Disabled
// buttons stay gray even when focused so an unarmed gate reads as such.
func renderDangerButton(label string, focused, enabled bool) string {
	if !enabled {
		return buttonInactiveStyle.Render(label)
	}
	if focused {
		return buttonDangerStyle.Render(label)
	}
	return buttonInactiveStyle.Render(label)
}

// renderTextInput renders a bordered single-line input with a cursor
// when focused.
func renderTextInput(value string, width int, focused bool) string {
	content := value
	if focused {
		content += "_"
	}
	if content == "" {
		content = " "
	}
	if focused {
		return inputActiveStyle.Width(width).Render(content)
	}
	return inputInactiveStyle.Width(width).Render(content)
}

// renderGateFooter renders the submitting/error footer shared by the
// gated dialogs.
func renderGateFooter(g *confirm.Gate) string {
	var sb strings.Builder
	switch g.State() {
	case confirm.GateSubmitting:
		sb.WriteString(subtitleStyle.Render("Working..."))
		sb.WriteString("\n")
	case confirm.GateError:
		sb.WriteString(errorStyle.Render(g.ErrMsg()))
		sb.WriteString("\n")
	}
	return sb.String()
}
