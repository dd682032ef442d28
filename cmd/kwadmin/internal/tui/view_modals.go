// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

// Dialog rendering for deactivate, delete, restore, rename, and export.

import (
	"fmt"
	"strings"

	"github.com/keywarden/keywarden/internal/confirm"
	"github.com/keywarden/keywarden/internal/lifecycle"
)

// renderDeactivateConfirm renders the deactivate dialog
func (m Model) renderDeactivateConfirm() string {
	var sb strings.Builder
	g := m.deactGate
	focus := m.deactFocus.Current()

	sb.WriteString(titleStyle.Render("Deactivate Key"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Key: %s\n\n", m.deactLabel))

	if m.deactImmediate {
		sb.WriteString(errorStyle.Render("WARNING: Key material will be destroyed immediately!"))
		sb.WriteString("\n")
		sb.WriteString(subtitleStyle.Render("This cannot be undone."))
	} else {
		sb.WriteString(subtitleStyle.Render(fmt.Sprintf(
			"The key is disabled and purged after %d days unless restored.", lifecycle.GraceDays)))
	}
	sb.WriteString("\n\n")

	// Reason input
	sb.WriteString("Reason (optional):\n")
	sb.WriteString(renderTextInput(m.deactReason, 50, focus == focusReason))
	sb.WriteString("\n\n")

	// Immediate-delete checkbox
	sb.WriteString(renderCheckbox("Delete immediately (skip grace period)", m.deactImmediate, focus == focusImmediate))
	sb.WriteString("\n")

	// Confirmation phrase input, only when the checkbox is set
	if m.deactImmediate {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Type %q to confirm:\n", confirm.ConfirmPhrase(m.deactLabel)))
		sb.WriteString(renderTextInput(g.Input(), 50, focus == focusPhrase))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(renderGateFooter(g))

	// Buttons
	confirmLabel := "DEACTIVATE"
	if m.deactImmediate {
		confirmLabel = "DESTROY"
	}
	sb.WriteString(renderButton("Cancel", focus == focusCancel))
	sb.WriteString("  ")
	sb.WriteString(renderDangerButton(confirmLabel, focus == focusConfirmBtn, g.CanSubmit()))
	sb.WriteString("\n\n")

	sb.WriteString(helpStyle.Render("Tab: Next field | Enter: Confirm | Esc: Cancel"))

	return popupStyle.Width(75).Render(sb.String())
}

// renderDeleteConfirm renders the permanent delete dialog
func (m Model) renderDeleteConfirm() string {
	var sb strings.Builder
	g := m.deleteGate
	focus := m.deleteFocus.Current()

	sb.WriteString(titleStyle.Render("Delete Key Permanently"))
	sb.WriteString("\n\n")

	sb.WriteString(errorStyle.Render("WARNING: This permanently destroys the key material!"))
	sb.WriteString("\n")
	sb.WriteString(subtitleStyle.Render("Data encrypted only to this key becomes unrecoverable."))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Key: %s\n\n", m.deleteLabel))

	sb.WriteString(fmt.Sprintf("Type %q to confirm:\n", confirm.ConfirmPhrase(m.deleteLabel)))
	sb.WriteString(renderTextInput(g.Input(), 50, focus == focusPhrase))
	sb.WriteString("\n\n")

	sb.WriteString(renderGateFooter(g))

	sb.WriteString(renderButton("Cancel", focus == focusCancel))
	sb.WriteString("  ")
	sb.WriteString(renderDangerButton("DELETE", focus == focusConfirmBtn, g.CanSubmit()))
	sb.WriteString("\n\n")

	sb.WriteString(helpStyle.Render("Tab: Next field | Enter: Confirm | Esc: Cancel"))

	return popupStyle.Width(75).Render(sb.String())
}

// renderRestoreConfirm renders the restore dialog
func (m Model) renderRestoreConfirm() string {
	var sb strings.Builder
	g := m.restoreGate
	focus := m.restoreFocus.Current()

	sb.WriteString(titleStyle.Render("Restore Key"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Key: %s\n\n", m.restoreLabel))
	sb.WriteString(subtitleStyle.Render("The key returns to its status before deactivation and the purge is cancelled."))
	sb.WriteString("\n\n")

	sb.WriteString(renderGateFooter(g))

	sb.WriteString(renderButton("Cancel", focus == focusCancel))
	sb.WriteString("  ")
	sb.WriteString(renderButton("RESTORE", focus == focusConfirmBtn))
	sb.WriteString("\n\n")

	sb.WriteString(helpStyle.Render("Tab: Switch | y: Restore | Enter: Confirm | Esc: Cancel"))

	return popupStyle.Width(70).Render(sb.String())
}

// renderEditLabel renders the rename dialog
func (m Model) renderEditLabel() string {
	var sb strings.Builder
	g := m.editGate
	focus := m.editFocus.Current()

	sb.WriteString(titleStyle.Render("Rename Key"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Current label: %s\n\n", m.editOldLabel))

	sb.WriteString("New label:\n")
	sb.WriteString(renderTextInput(m.editInput, 30, focus == focusLabelInput))
	sb.WriteString("\n")
	sb.WriteString(subtitleStyle.Render(fmt.Sprintf("%d/%d characters", len([]rune(m.editInput)), maxNewLabelRunes)))
	sb.WriteString("\n\n")

	sb.WriteString(renderGateFooter(g))

	sb.WriteString(renderButton("Cancel", focus == focusCancel))
	sb.WriteString("  ")
	sb.WriteString(renderButton("SAVE", focus == focusConfirmBtn))
	sb.WriteString("\n\n")

	sb.WriteString(helpStyle.Render("Tab: Next field | Enter: Save | Esc: Cancel"))

	return popupStyle.Width(60).Render(sb.String())
}

// renderExportDisplay renders the public key export modal
func (m Model) renderExportDisplay() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Export Public Key"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Key:  %s\n", m.exportLabel))
	if m.exportKind != "" {
		sb.WriteString(fmt.Sprintf("Kind: %s\n", styledKind(m.exportKind)))
	}
	sb.WriteString("\n")

	sb.WriteString(subtitleStyle.Render("Recipient (safe to share):"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(m.exportPublicKey)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if m.exportSaveStatus != "" {
		sb.WriteString(savedStyle.Render(m.exportSaveStatus))
		sb.WriteString("\n\n")
	}

	sb.WriteString(helpStyle.Render("s: Save to file | Enter/Esc/q: Close"))

	return popupStyle.Width(75).Render(sb.String())
}
