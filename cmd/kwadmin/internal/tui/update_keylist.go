// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/keywarden/keywarden/internal/confirm"
	"github.com/keywarden/keywarden/internal/lifecycle"
)

// handleKeyListKeys handles keyboard input on the key list screen
func (m Model) handleKeyListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle filter mode input
	if m.filterActive {
		switch msg.String() {
		case "esc":
			// Clear filter and exit filter mode
			m.filterInput = ""
			m.filterActive = false
			m.selectedKey = 0
			m.scrollOffset = 0
		case "enter":
			// Keep filter, exit filter mode
			m.filterActive = false
			m.selectedKey = 0
			m.scrollOffset = 0
		case "backspace":
			if len(m.filterInput) > 0 {
				m.filterInput = m.filterInput[:len(m.filterInput)-1]
				m.selectedKey = 0
				m.scrollOffset = 0
			}
		default:
			if len(msg.String()) == 1 {
				m.filterInput += msg.String()
				m.selectedKey = 0
				m.scrollOffset = 0
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		// Clear filter if active, otherwise do nothing (only q quits)
		if m.filterInput != "" {
			m.filterInput = ""
			m.selectedKey = 0
			m.scrollOffset = 0
		}
		return m, nil

	case "/":
		// Activate filter mode
		m.filterActive = true
		return m, nil
	}

	// Get filtered keys for navigation and operations
	displayKeys := m.filteredKeys()

	switch msg.String() {
	case "up", "k":
		if m.selectedKey > 0 {
			m.selectedKey--
			// Scroll up if selected key is above visible area
			if m.selectedKey < m.scrollOffset {
				m.scrollOffset = m.selectedKey
			}
		}

	case "down", "j":
		if m.selectedKey < len(displayKeys)-1 {
			m.selectedKey++
			// Scroll down if selected key is below visible area
			visibleHeight := m.listVisibleHeight()
			if m.selectedKey >= m.scrollOffset+visibleHeight {
				m.scrollOffset = m.selectedKey - visibleHeight + 1
			}
		}

	case "d":
		// Deactivate selected key - open the deactivate dialog
		if key, ok := m.currentKey(displayKeys); ok {
			if !lifecycle.CanDeactivate(key.Status, key.VaultAssociations, m.vaultStats) {
				m.lastError = deactivateBlockedReason(key, m.vaultStats)
				return m, nil
			}
			m.lastError = ""
			m.deactKeyID = key.KeyID
			m.deactLabel = key.Label
			m.deactReason = ""
			m.deactImmediate = false
			m.deactGate = confirm.NewGate()
			m.deactFocus = confirm.NewFocusTrap(deactivateElements(false), focusCancel)
			m.viewState = ViewDeactivateConfirm
		}

	case "x":
		// Permanently delete selected key - typed confirmation required
		if key, ok := m.currentKey(displayKeys); ok {
			if key.Status == lifecycle.StatusDestroyed {
				m.lastError = "key material is already destroyed"
				return m, nil
			}
			m.lastError = ""
			m.deleteKeyID = key.KeyID
			m.deleteLabel = key.Label
			m.deleteGate = confirm.NewPhraseGate(key.Label)
			m.deleteFocus = confirm.NewFocusTrap([]int{focusPhrase, focusCancel, focusConfirmBtn}, focusPhrase)
			m.viewState = ViewDeleteConfirm
		}

	case "u":
		// Restore a deactivated key
		if key, ok := m.currentKey(displayKeys); ok {
			if key.Status != lifecycle.StatusDeactivated {
				m.lastError = "only deactivated keys can be restored"
				return m, nil
			}
			m.lastError = ""
			m.restoreKeyID = key.KeyID
			m.restoreLabel = key.Label
			m.restoreGate = confirm.NewGate()
			m.restoreFocus = confirm.NewFocusTrap([]int{focusCancel, focusConfirmBtn}, focusCancel)
			m.viewState = ViewRestoreConfirm
		}

	case "l":
		// Rename selected key (unattached keys only)
		if key, ok := m.currentKey(displayKeys); ok {
			if !lifecycle.CanEditLabel(key.VaultAssociations) {
				m.lastError = "keys attached to a vault cannot be renamed"
				return m, nil
			}
			m.lastError = ""
			m.editKeyID = key.KeyID
			m.editOldLabel = key.Label
			m.editInput = key.Label
			m.editGate = confirm.NewGate()
			m.editFocus = confirm.NewFocusTrap([]int{focusLabelInput, focusCancel, focusConfirmBtn}, focusLabelInput)
			m.viewState = ViewEditLabel
		}

	case "e":
		// Export selected key's public material
		if key, ok := m.currentKey(displayKeys); ok {
			m.lastError = ""
			m.exportKind = key.Kind
			return m, tea.Batch(SendExportKeyCmd(key.KeyID), WaitForMessageCmd())
		}

	case "r":
		// Refresh key list
		return m, SendListKeysCmd()

	case "enter":
		// Show key details
		if key, ok := m.currentKey(displayKeys); ok {
			return m, tea.Batch(SendGetKeyDetailsCmd(key.KeyID), WaitForMessageCmd())
		}
	}

	return m, nil
}

// handleKeyDetailsKeys handles keyboard input on the key details screen
func (m Model) handleKeyDetailsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", " ", "q":
		m.detailsKey = nil
		m.detailsHistory = nil
		m.viewState = ViewKeyList
		return m, nil

	case "up", "k":
		m.detailsViewport.ScrollUp(1)
		return m, nil

	case "down", "j":
		m.detailsViewport.ScrollDown(1)
		return m, nil

	case "pgup":
		m.detailsViewport.PageUp()
		return m, nil

	case "pgdown":
		m.detailsViewport.PageDown()
		return m, nil
	}
	return m, nil
}

// initDetailsViewport sizes the history viewport for the details modal
// and loads the formatted status history into it.
func (m *Model) initDetailsViewport() {
	// Viewport height - cap at 10 lines for compact display
	vpHeight := 10
	if m.height-18 < vpHeight {
		vpHeight = m.height - 18
	}
	if vpHeight < 4 {
		vpHeight = 4
	}

	// Viewport width - must fit inside popup (80) with padding
	vpWidth := 72
	if m.width-10 < vpWidth {
		vpWidth = m.width - 10
	}
	if vpWidth < 50 {
		vpWidth = 50
	}

	m.detailsViewport = viewport.New(vpWidth, vpHeight)
	m.detailsViewport.SetContent(formatStatusHistory(m.detailsHistory))
}

// formatStatusHistory renders status history entries one per line,
// newest first as delivered by the daemon.
func formatStatusHistory(history []StatusHistoryInfo) string {
	var sb strings.Builder
	for _, h := range history {
		sb.WriteString(fmt.Sprintf("%s  %-14s  %s", h.Timestamp.Format("2006-01-02 15:04"), h.Status, h.Reason))
		if h.ChangedBy != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", h.ChangedBy))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// currentKey returns the selected key from the display list, if any.
func (m Model) currentKey(displayKeys []KeyInfo) (KeyInfo, bool) {
	if len(displayKeys) == 0 || m.selectedKey >= len(displayKeys) {
		return KeyInfo{}, false
	}
	return displayKeys[m.selectedKey], true
}

// listVisibleHeight returns how many key cards fit on screen.
func (m Model) listVisibleHeight() int {
	visibleHeight := m.height - 12
	if visibleHeight < 3 {
		visibleHeight = 3
	}
	return visibleHeight
}

// deactivateBlockedReason explains why the deactivate action is not
// offered for a key.
func deactivateBlockedReason(key KeyInfo, stats map[string]lifecycle.VaultStats) string {
	switch key.Status {
	case lifecycle.StatusDeactivated:
		return "key is already deactivated"
	case lifecycle.StatusDestroyed:
		return "key material is already destroyed"
	}
	if lifecycle.UsedInEnvelope(key.VaultAssociations, stats) {
		return "key has encrypted vault data and cannot be deactivated"
	}
	return "key cannot be deactivated"
}

// deactivateElements returns the focus cycle of the deactivate dialog.
// Checking the immediate-delete box reveals the confirmation input.
func deactivateElements(immediate bool) []int {
	if immediate {
		return []int{focusReason, focusImmediate, focusPhrase, focusCancel, focusConfirmBtn}
	}
	return []int{focusReason, focusImmediate, focusCancel, focusConfirmBtn}
}
