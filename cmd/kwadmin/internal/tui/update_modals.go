// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

// Dialog handlers for deactivate, delete, restore, rename, and export.

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keywarden/keywarden/internal/fsutil"
)

// maxNewLabelRunes caps the rename input length client-side; the daemon
// enforces the same limit.
const maxNewLabelRunes = 24

// saveIndicatorWindow is how long the export "saved" indicator stays up.
const saveIndicatorWindow = 2 * time.Second

// handleDeactivateConfirmKeys handles keyboard input on the deactivate dialog
func (m Model) handleDeactivateConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.deactGate
	if g == nil {
		m.viewState = ViewKeyList
		return m, nil
	}

	switch msg.String() {
	case "esc":
		// Refused while a command is in flight
		if g.Cancel() {
			return m.closeActiveDialog(), nil
		}
		return m, nil

	case "tab":
		m.deactFocus.Next()
		return m, nil

	case "shift+tab":
		m.deactFocus.Prev()
		return m, nil

	case "enter":
		if m.deactFocus.Current() == focusCancel {
			if g.Cancel() {
				return m.closeActiveDialog(), nil
			}
			return m, nil
		}
		return m.submitDeactivate()

	case " ":
		switch m.deactFocus.Current() {
		case focusImmediate:
			// Toggling the box switches the gate between plain and
			// phrase-confirmed mode and reshapes the focus cycle
			m.deactImmediate = !m.deactImmediate
			if m.deactImmediate {
				g.RequirePhrase(m.deactLabel)
			} else {
				g.RelaxPhrase()
			}
			m.deactFocus.SetElements(deactivateElements(m.deactImmediate))
			return m, nil
		case focusCancel:
			if g.Cancel() {
				return m.closeActiveDialog(), nil
			}
			return m, nil
		case focusConfirmBtn:
			return m.submitDeactivate()
		case focusReason:
			m.deactReason += " "
		case focusPhrase:
			g.SetInput(g.Input() + " ")
		}
		return m, nil

	case "backspace":
		switch m.deactFocus.Current() {
		case focusReason:
			if len(m.deactReason) > 0 {
				m.deactReason = m.deactReason[:len(m.deactReason)-1]
			}
		case focusPhrase:
			if in := g.Input(); len(in) > 0 {
				g.SetInput(in[:len(in)-1])
			}
		}
		return m, nil

	case "up", "down", "left", "right", "delete", "home", "end", "insert", "pgup", "pgdown":
		// Ignore navigation/editing keys not supported in these fields
		return m, nil

	default:
		input := msg.String()
		switch m.deactFocus.Current() {
		case focusReason:
			m.deactReason += printableOnly(input, 128-len(m.deactReason))
		case focusPhrase:
			g.SetInput(g.Input() + printableOnly(input, 256))
		}
	}

	return m, nil
}

// submitDeactivate fires the deactivate command when the gate permits.
func (m Model) submitDeactivate() (tea.Model, tea.Cmd) {
	if !m.deactGate.Submit() {
		return m, nil
	}
	return m, tea.Batch(
		SendDeactivateKeyCmd(m.deactKeyID, strings.TrimSpace(m.deactReason), m.deactImmediate),
		WaitForMessageCmd(),
		m.startRequestTimeout(),
	)
}

// handleDeleteConfirmKeys handles keyboard input on the permanent delete dialog
func (m Model) handleDeleteConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.deleteGate
	if g == nil {
		m.viewState = ViewKeyList
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if g.Cancel() {
			return m.closeActiveDialog(), nil
		}
		return m, nil

	case "tab":
		m.deleteFocus.Next()
		return m, nil

	case "shift+tab":
		m.deleteFocus.Prev()
		return m, nil

	case "enter":
		if m.deleteFocus.Current() == focusCancel {
			if g.Cancel() {
				return m.closeActiveDialog(), nil
			}
			return m, nil
		}
		return m.submitDelete()

	case " ":
		switch m.deleteFocus.Current() {
		case focusCancel:
			if g.Cancel() {
				return m.closeActiveDialog(), nil
			}
			return m, nil
		case focusConfirmBtn:
			return m.submitDelete()
		case focusPhrase:
			g.SetInput(g.Input() + " ")
		}
		return m, nil

	case "backspace":
		if m.deleteFocus.Current() == focusPhrase {
			if in := g.Input(); len(in) > 0 {
				g.SetInput(in[:len(in)-1])
			}
		}
		return m, nil

	case "up", "down", "left", "right", "delete", "home", "end", "insert", "pgup", "pgdown":
		return m, nil

	default:
		if m.deleteFocus.Current() == focusPhrase {
			g.SetInput(g.Input() + printableOnly(msg.String(), 256))
		}
	}

	return m, nil
}

// submitDelete fires the delete command when the typed phrase matches.
func (m Model) submitDelete() (tea.Model, tea.Cmd) {
	if !m.deleteGate.Submit() {
		return m, nil
	}
	return m, tea.Batch(
		SendDeleteKeyCmd(m.deleteKeyID, "deleted by admin"),
		WaitForMessageCmd(),
		m.startRequestTimeout(),
	)
}

// handleRestoreConfirmKeys handles keyboard input on the restore dialog
func (m Model) handleRestoreConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.restoreGate
	if g == nil {
		m.viewState = ViewKeyList
		return m, nil
	}

	switch msg.String() {
	case "esc", "n":
		if g.Cancel() {
			return m.closeActiveDialog(), nil
		}
		return m, nil

	case "tab", "left", "right", "h", "l":
		m.restoreFocus.Next()
		return m, nil

	case "shift+tab":
		m.restoreFocus.Prev()
		return m, nil

	case "y":
		// Quick confirm
		return m.submitRestore()

	case "enter", " ":
		if m.restoreFocus.Current() == focusConfirmBtn {
			return m.submitRestore()
		}
		if g.Cancel() {
			return m.closeActiveDialog(), nil
		}
		return m, nil
	}

	return m, nil
}

// submitRestore fires the restore command when the gate permits.
func (m Model) submitRestore() (tea.Model, tea.Cmd) {
	if !m.restoreGate.Submit() {
		return m, nil
	}
	return m, tea.Batch(
		SendRestoreKeyCmd(m.restoreKeyID),
		WaitForMessageCmd(),
		m.startRequestTimeout(),
	)
}

// handleEditLabelKeys handles keyboard input on the rename dialog
func (m Model) handleEditLabelKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.editGate
	if g == nil {
		m.viewState = ViewKeyList
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if g.Cancel() {
			return m.closeActiveDialog(), nil
		}
		return m, nil

	case "tab":
		m.editFocus.Next()
		return m, nil

	case "shift+tab":
		m.editFocus.Prev()
		return m, nil

	case "enter":
		if m.editFocus.Current() == focusCancel {
			if g.Cancel() {
				return m.closeActiveDialog(), nil
			}
			return m, nil
		}
		return m.submitEditLabel()

	case " ":
		switch m.editFocus.Current() {
		case focusCancel:
			if g.Cancel() {
				return m.closeActiveDialog(), nil
			}
			return m, nil
		case focusConfirmBtn:
			return m.submitEditLabel()
		case focusLabelInput:
			m.editInput = appendRunesCapped(m.editInput, " ", maxNewLabelRunes)
		}
		return m, nil

	case "backspace":
		if m.editFocus.Current() == focusLabelInput {
			runes := []rune(m.editInput)
			if len(runes) > 0 {
				m.editInput = string(runes[:len(runes)-1])
			}
		}
		return m, nil

	case "up", "down", "left", "right", "delete", "home", "end", "insert", "pgup", "pgdown":
		return m, nil

	default:
		if m.editFocus.Current() == focusLabelInput {
			m.editInput = appendRunesCapped(m.editInput, msg.String(), maxNewLabelRunes)
		}
	}

	return m, nil
}

// submitEditLabel validates the new label client-side, then fires the
// rename command. Submitting the unchanged label just closes the dialog.
func (m Model) submitEditLabel() (tea.Model, tea.Cmd) {
	g := m.editGate
	trimmed := strings.TrimSpace(m.editInput)
	if trimmed == m.editOldLabel {
		// No-op rename
		if g.Cancel() {
			return m.closeActiveDialog(), nil
		}
		return m, nil
	}
	if trimmed == "" {
		if g.Submit() {
			g.Fail("label cannot be empty")
		}
		return m, nil
	}
	if !g.Submit() {
		return m, nil
	}
	return m, tea.Batch(
		SendUpdateLabelCmd(m.editKeyID, trimmed),
		WaitForMessageCmd(),
		m.startRequestTimeout(),
	)
}

// handleExportDisplayKeys handles keyboard input on the export modal
func (m Model) handleExportDisplayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		m.exportKeyID = ""
		m.exportLabel = ""
		m.exportKind = ""
		m.exportPublicKey = ""
		m.exportSaveStatus = ""
		// Bump the generation so a pending indicator timer from this
		// modal never touches a later one
		m.exportSaveGen++
		m.viewState = ViewKeyList
		return m, nil

	case "s":
		if m.exportPublicKey == "" || m.dataDir == "" {
			return m, nil
		}
		path, err := saveRecipientToFile(m.dataDir, m.exportKeyID, m.exportPublicKey)
		if err != nil {
			m.exportSaveStatus = fmt.Sprintf("Save failed: %v", err)
		} else {
			m.exportSaveStatus = fmt.Sprintf("Saved to %s", path)
		}
		m.exportSaveGen++
		gen := m.exportSaveGen
		return m, tea.Tick(saveIndicatorWindow, func(time.Time) tea.Msg {
			return saveStatusExpiredMsg{gen: gen}
		})
	}

	return m, nil
}

// saveRecipientToFile writes the public export material next to the data
// directory so it can be shared out-of-band.
func saveRecipientToFile(dataDir, keyID, publicKey string) (string, error) {
	exportDir := filepath.Join(dataDir, "exports")
	if err := fsutil.MkdirAll(exportDir); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(exportDir, keyID+".pub")
	if err := fsutil.WriteFile(path, []byte(publicKey+"\n")); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// printableOnly filters input to printable characters, at most max added.
// Strips escape sequences and bracketed-paste control bytes.
func printableOnly(input string, max int) string {
	var b strings.Builder
	for _, r := range input {
		if max <= 0 {
			break
		}
		if r >= 32 && r != 127 {
			b.WriteRune(r)
			max--
		}
	}
	return b.String()
}

// appendRunesCapped appends printable input to s, never exceeding cap runes.
func appendRunesCapped(s, input string, capRunes int) string {
	room := capRunes - len([]rune(s))
	if room <= 0 {
		return s
	}
	return s + printableOnly(input, room)
}
