// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package lifecycle

import (
	"time"
)

// GraceDays is the restore window after deactivation, in days. Once it
// elapses the sweeper purges the key permanently.
const GraceDays = 30

// VaultStats is the per-vault usage snapshot the evaluator consumes.
// EncryptionCount is the number of times the vault has been sealed.
type VaultStats struct {
	VaultID         string `json:"vault_id"`
	EncryptionCount int    `json:"encryption_count"`
}

// UsedInEnvelope reports whether a key is committed to sealed data: at
// least one vault it is attached to has been encrypted at least once.
//
// When statsByVault is nil (statistics unavailable) this returns false.
// Absence of proof is not proof of non-use; the policy deliberately
// favors allowing deactivation over blocking it when data is missing.
func UsedInEnvelope(assocs []string, statsByVault map[string]VaultStats) bool {
	if statsByVault == nil || len(assocs) == 0 {
		return false
	}
	for _, vaultID := range assocs {
		if stats, ok := statsByVault[vaultID]; ok && stats.EncryptionCount > 0 {
			return true
		}
	}
	return false
}

// CanDeactivate reports whether the deactivate action should be offered
// for a key. Already-deactivated and destroyed keys are excluded, as are
// keys in envelope use.
func CanDeactivate(status Status, assocs []string, statsByVault map[string]VaultStats) bool {
	if status == StatusDeactivated || status == StatusDestroyed {
		return false
	}
	return !UsedInEnvelope(assocs, statsByVault)
}

// CanEditLabel reports whether a key's label may be changed. Only fully
// unattached keys qualify: attached keys have their label embedded in
// vault manifests, and renaming would desynchronize registry and manifest.
func CanEditLabel(assocs []string) bool {
	return len(assocs) == 0
}

// DaysRemaining returns the whole days left in the grace period for a key
// deactivated at deactivatedAt, clamped to [0, GraceDays]. It equals
// GraceDays at the moment of deactivation and never increases as now
// advances.
func DaysRemaining(deactivatedAt, now time.Time) int {
	elapsed := int(now.Sub(deactivatedAt).Hours() / 24)
	remaining := GraceDays - elapsed
	if remaining < 0 {
		return 0
	}
	if remaining > GraceDays {
		return GraceDays
	}
	return remaining
}

// PurgeDue reports whether the grace period has fully elapsed.
func PurgeDue(deactivatedAt, now time.Time) bool {
	return !now.Before(deactivatedAt.AddDate(0, 0, GraceDays))
}

// DisplayLabel truncates label to maxLen characters plus an ellipsis.
// Labels at or under the limit are returned unchanged; the function is
// limit-agnostic and callers pick the limit for their rendering context.
func DisplayLabel(label string, maxLen int) string {
	if maxLen <= 0 {
		return label
	}
	runes := []rune(label)
	if len(runes) <= maxLen {
		return label
	}
	return string(runes[:maxLen]) + "..."
}
