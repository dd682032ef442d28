// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

// Package registry is the unified store for all encryption key metadata.
// Every key, whatever its backing material, lives in a single JSON
// registry file together with its lifecycle state, status history and
// vault associations.
package registry

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/keywarden/keywarden/internal/lifecycle"
)

// KeyKind discriminates the backing material of a key entry.
type KeyKind string

const (
	// KindPassphrase is a passphrase-protected key stored as an
	// encrypted file under the keys directory.
	KindPassphrase KeyKind = "passphrase"
	// KindYubiKey is a hardware token; only metadata lives here.
	KindYubiKey KeyKind = "yubikey"
	// KindRecipient is a public-key-only entry for encrypting to
	// someone else. No private material exists locally.
	KindRecipient KeyKind = "recipient"
)

// MaxLabelLen is the longest label the registry accepts, in runes.
const MaxLabelLen = 128

// StatusHistoryEntry records one lifecycle transition.
type StatusHistoryEntry struct {
	Status    lifecycle.Status `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Reason    string           `json:"reason"`
	ChangedBy string           `json:"changed_by"`
}

// KeyEntry is one key in the registry. Kind selects which of the
// per-kind fields are meaningful; the lifecycle fields apply to all
// kinds uniformly.
type KeyEntry struct {
	ID        string     `json:"id"`
	Kind      KeyKind    `json:"type"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`

	// Passphrase and recipient keys.
	PublicKey string `json:"public_key,omitempty"`
	// Passphrase keys: encrypted key file, relative to the keys dir.
	KeyFilename string `json:"key_filename,omitempty"`

	// YubiKey entries.
	Serial          string `json:"serial,omitempty"`
	Slot            uint8  `json:"slot,omitempty"`
	PIVSlot         uint8  `json:"piv_slot,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
	IdentityTag     string `json:"identity_tag,omitempty"`
	Model           string `json:"model,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`

	Status            lifecycle.Status     `json:"lifecycle_status"`
	StatusHistory     []StatusHistoryEntry `json:"status_history"`
	VaultAssociations []string             `json:"vault_associations"`

	// Set while Status is deactivated, nil otherwise. Marks the start
	// of the grace period.
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	// Status the key held before deactivation, for restore.
	PreviousStatus lifecycle.Status `json:"previous_lifecycle_status,omitempty"`
}

// NewKeyID returns a fresh registry key id.
func NewKeyID() string {
	return uuid.NewString()
}

// ValidateLabel checks a proposed key label.
func ValidateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("key label must not be empty")
	}
	if utf8.RuneCountInString(label) > MaxLabelLen {
		return fmt.Errorf("key label exceeds %d characters", MaxLabelLen)
	}
	return nil
}

// EncryptionRecipient returns the public key string used when
// encrypting to this key, per kind.
func (e *KeyEntry) EncryptionRecipient() string {
	if e.Kind == KindYubiKey {
		return e.Recipient
	}
	return e.PublicKey
}

// Deactivate starts the grace period. Only active or suspended keys may
// be deactivated; the prior status is kept so a restore can return the
// key where it was.
func (e *KeyEntry) Deactivate(reason, changedBy string, now time.Time) error {
	if e.Status != lifecycle.StatusActive && e.Status != lifecycle.StatusSuspended {
		return fmt.Errorf("cannot deactivate key in %s state, only active or suspended keys can be deactivated", string(e.Status))
	}
	e.PreviousStatus = e.Status
	e.Status = lifecycle.StatusDeactivated
	t := now
	e.DeactivatedAt = &t
	e.StatusHistory = append(e.StatusHistory, StatusHistoryEntry{
		Status:    lifecycle.StatusDeactivated,
		Timestamp: now,
		Reason:    reason,
		ChangedBy: changedBy,
	})
	return nil
}

// Restore returns a deactivated key to the status it held before
// deactivation. Registries written before the grace period existed may
// lack a recorded previous status; those keys restore to active when
// attached to a vault and suspended otherwise.
func (e *KeyEntry) Restore(reason, changedBy string, now time.Time) error {
	if e.Status != lifecycle.StatusDeactivated {
		return fmt.Errorf("cannot restore key in %s state, only deactivated keys can be restored", string(e.Status))
	}
	restoreTo := e.PreviousStatus
	if restoreTo == "" {
		if len(e.VaultAssociations) > 0 {
			restoreTo = lifecycle.StatusActive
		} else {
			restoreTo = lifecycle.StatusSuspended
		}
	}
	e.Status = restoreTo
	e.DeactivatedAt = nil
	e.PreviousStatus = ""
	e.StatusHistory = append(e.StatusHistory, StatusHistoryEntry{
		Status:    restoreTo,
		Timestamp: now,
		Reason:    reason,
		ChangedBy: changedBy,
	})
	return nil
}

// Destroy transitions the key to destroyed immediately, bypassing any
// grace period and clearing deactivation metadata. Destroyed keys
// cannot be destroyed again; compromised keys need the security
// workflow instead.
func (e *KeyEntry) Destroy(reason, changedBy string, now time.Time) error {
	switch e.Status {
	case lifecycle.StatusDestroyed:
		return fmt.Errorf("key is already destroyed")
	case lifecycle.StatusCompromised:
		return fmt.Errorf("compromised keys require the security workflow")
	}
	e.Status = lifecycle.StatusDestroyed
	e.DeactivatedAt = nil
	e.PreviousStatus = ""
	e.StatusHistory = append(e.StatusHistory, StatusHistoryEntry{
		Status:    lifecycle.StatusDestroyed,
		Timestamp: now,
		Reason:    reason,
		ChangedBy: changedBy,
	})
	return nil
}

// repairDeactivation restores the pairing between the deactivated
// status and its timestamp after an external registry edit. A
// deactivated entry missing the timestamp takes it from its most
// recent deactivation history entry, or from now so the grace period
// restarts instead of never ending. A leftover timestamp on any other
// status is dropped.
func (e *KeyEntry) repairDeactivation(now time.Time) {
	if e.Status != lifecycle.StatusDeactivated {
		e.DeactivatedAt = nil
		return
	}
	if e.DeactivatedAt != nil {
		return
	}
	for i := len(e.StatusHistory) - 1; i >= 0; i-- {
		if e.StatusHistory[i].Status == lifecycle.StatusDeactivated {
			t := e.StatusHistory[i].Timestamp
			e.DeactivatedAt = &t
			return
		}
	}
	t := now
	e.DeactivatedAt = &t
}

// AttachVault records an association with vaultID. Idempotent.
func (e *KeyEntry) AttachVault(vaultID string) {
	for _, id := range e.VaultAssociations {
		if id == vaultID {
			return
		}
	}
	e.VaultAssociations = append(e.VaultAssociations, vaultID)
}

// DetachVault removes the association with vaultID if present.
func (e *KeyEntry) DetachVault(vaultID string) {
	out := e.VaultAssociations[:0]
	for _, id := range e.VaultAssociations {
		if id != vaultID {
			out = append(out, id)
		}
	}
	e.VaultAssociations = out
}
