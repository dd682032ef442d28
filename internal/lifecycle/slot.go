// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package lifecycle

// SlotState is the compact state shown in per-vault status slots. It is a
// coarser view than Status, kept for the slot renderer only.
type SlotState string

const (
	// SlotActive: attached to the current vault and operational.
	SlotActive SlotState = "active"
	// SlotRegistered: known to the registry and attachable, not yet used.
	SlotRegistered SlotState = "registered"
	// SlotOrphaned: previously attached, now without a usable vault link.
	SlotOrphaned SlotState = "orphaned"
	// SlotEmpty: nothing to show for this slot.
	SlotEmpty SlotState = ""
)

// SlotFor derives the slot state for a key relative to one vault.
func SlotFor(status Status, assocs []string, vaultID string) SlotState {
	attached := false
	for _, id := range assocs {
		if id == vaultID {
			attached = true
			break
		}
	}
	switch {
	case attached && status.IsOperational():
		return SlotActive
	case attached:
		return SlotOrphaned
	case status.CanAttachToVault():
		return SlotRegistered
	default:
		return SlotEmpty
	}
}
