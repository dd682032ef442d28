// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

// Key list and key details view rendering.

import (
	"fmt"
	"strings"
	"time"

	"github.com/keywarden/keywarden/internal/lifecycle"
)

// filteredKeys returns keys matching the current filter.
// Both label and kind match if they contain the filter anywhere
func (m Model) filteredKeys() []KeyInfo {
	if m.filterInput == "" {
		return m.keys
	}
	filter := strings.ToLower(m.filterInput)
	var result []KeyInfo
	for _, key := range m.keys {
		if strings.Contains(strings.ToLower(key.Label), filter) ||
			strings.Contains(strings.ToLower(key.Kind), filter) {
			result = append(result, key)
		}
	}
	return result
}

// renderKeyListView renders the main key list screen
func (m Model) renderKeyListView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Keywarden Admin"))
	sb.WriteString("\n")

	// Filter input
	if m.filterActive {
		sb.WriteString(fmt.Sprintf("Filter: %s_\n", m.filterInput))
		sb.WriteString(helpStyle.Render("Enter: Apply | Esc: Clear"))
		sb.WriteString("\n")
	} else if m.filterInput != "" {
		sb.WriteString(fmt.Sprintf("Filter: %s (/ to edit, Esc to clear)\n", m.filterInput))
	}
	sb.WriteString("\n")

	// Get filtered key list
	displayKeys := m.filteredKeys()

	if len(m.keys) == 0 {
		sb.WriteString("No keys in the registry.\n")
	} else if len(displayKeys) == 0 {
		// Filter returned no matches
		sb.WriteString(subtitleStyle.Render("No keys match filter"))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("\n  Total: %d keys\n", len(m.keys)))
	} else {
		visibleHeight := m.listVisibleHeight()

		// Adjust scroll offset for filtered list
		scrollOffset := m.scrollOffset
		if scrollOffset >= len(displayKeys) {
			scrollOffset = 0
		}

		// Show scroll-up indicator if not at top
		if scrollOffset > 0 {
			sb.WriteString(subtitleStyle.Render(fmt.Sprintf("  ▲ %d more above", scrollOffset)))
			sb.WriteString("\n")
		}

		// Calculate end index
		endIdx := scrollOffset + visibleHeight
		if endIdx > len(displayKeys) {
			endIdx = len(displayKeys)
		}

		// Key cards (only visible portion)
		for i := scrollOffset; i < endIdx; i++ {
			key := displayKeys[i]

			// Cursor prefix for selection (more reliable than background colors)
			var prefix string
			if i == m.selectedKey {
				prefix = "> "
			} else {
				prefix = "  "
			}

			line := prefix + m.renderKeyCard(key)

			if i == m.selectedKey {
				sb.WriteString(selectedStyle.Render(line))
			} else {
				sb.WriteString(normalStyle.Render(line))
			}
			sb.WriteString("\n")
		}

		// Show scroll-down indicator if more below
		if endIdx < len(displayKeys) {
			sb.WriteString(subtitleStyle.Render(fmt.Sprintf("  ▼ %d more below", len(displayKeys)-endIdx)))
			sb.WriteString("\n")
		}

		// Show filtered count vs total
		if m.filterInput != "" {
			sb.WriteString(fmt.Sprintf("\n  Showing: %d of %d keys\n", len(displayKeys), len(m.keys)))
		} else {
			sb.WriteString(fmt.Sprintf("\n  Total: %d keys\n", len(m.keys)))
		}
	}

	sb.WriteString("\n")
	if !m.filterActive {
		sb.WriteString(helpStyle.Render("/: Filter | d: Deactivate | u: Restore | x: Delete | l: Rename | e: Export | r: Refresh | Enter: Details | q: Quit"))
	}

	return sb.String()
}

// keySlot derives the status slot shown for a key. Attached keys take
// the slot relative to their first vault; unattached keys show whether
// they can still be attached.
func keySlot(key KeyInfo) lifecycle.SlotState {
	if len(key.VaultAssociations) > 0 {
		return lifecycle.SlotFor(key.Status, key.VaultAssociations, key.VaultAssociations[0])
	}
	return lifecycle.SlotFor(key.Status, nil, "")
}

// renderKeyCard renders one key list line: label, kind badge, lifecycle
// badge, status slot, and the grace countdown for deactivated keys.
func (m Model) renderKeyCard(key KeyInfo) string {
	label := lifecycle.DisplayLabel(key.Label, 24)

	parts := []string{
		fmt.Sprintf("%-27s", label),
		styledKind(key.Kind),
		statusBadge(key.Status),
	}

	if badge := slotBadge(keySlot(key)); badge != "" {
		parts = append(parts, badge)
	}

	if attached := len(key.VaultAssociations); attached > 0 {
		parts = append(parts, fmt.Sprintf("%d vault(s)", attached))
	}

	if key.Status == lifecycle.StatusDeactivated && key.DeactivatedAt != nil {
		days := lifecycle.DaysRemaining(*key.DeactivatedAt, time.Now().UTC())
		parts = append(parts, fmt.Sprintf("%dd left", days))
	}

	return strings.Join(parts, "  ")
}

// renderKeyDetails renders the key details modal
func (m Model) renderKeyDetails() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Key Details"))
	sb.WriteString("\n\n")

	key := m.detailsKey
	if key == nil {
		sb.WriteString(subtitleStyle.Render("No key selected"))
		return popupStyle.Width(80).Render(sb.String())
	}

	sb.WriteString(fmt.Sprintf("Label:   %s\n", key.Label))
	sb.WriteString(fmt.Sprintf("Kind:    %s\n", styledKind(key.Kind)))
	sb.WriteString(fmt.Sprintf("ID:      %s\n", key.KeyID))
	sb.WriteString(fmt.Sprintf("Status:  %s - %s\n", statusBadge(key.Status), key.Status.Description()))
	sb.WriteString(fmt.Sprintf("Created: %s\n", key.CreatedAt.Format(time.RFC3339)))
	if key.LastUsed != nil {
		sb.WriteString(fmt.Sprintf("Used:    %s\n", key.LastUsed.Format(time.RFC3339)))
	}
	if key.Status == lifecycle.StatusDeactivated && key.DeactivatedAt != nil {
		days := lifecycle.DaysRemaining(*key.DeactivatedAt, time.Now().UTC())
		sb.WriteString(warningStyle.Render(fmt.Sprintf("Purged in %d day(s) unless restored", days)))
		sb.WriteString("\n")
	}
	if len(key.VaultAssociations) > 0 {
		sb.WriteString("Vaults:\n")
		for _, vaultID := range key.VaultAssociations {
			slot := lifecycle.SlotFor(key.Status, key.VaultAssociations, vaultID)
			sb.WriteString(fmt.Sprintf("  %s %s\n", vaultID, slotBadge(slot)))
		}
	}
	sb.WriteString("\n")

	// Status history, newest first as delivered by the daemon
	if len(m.detailsHistory) > 0 {
		sb.WriteString(kindStyle.Render("═══ Status History ═══"))
		sb.WriteString("\n\n")

		sb.WriteString(m.detailsViewport.View())
		sb.WriteString("\n")

		// Show scroll position when history exceeds the viewport
		if m.detailsViewport.TotalLineCount() > m.detailsViewport.Height {
			scrollPct := m.detailsViewport.ScrollPercent() * 100
			sb.WriteString(helpStyle.Render(fmt.Sprintf("[%.0f%% - %d entries]", scrollPct, len(m.detailsHistory))))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("↑/↓ scroll • Enter/Esc close"))

	return popupStyle.Width(80).Render(sb.String())
}
