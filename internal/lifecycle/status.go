// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

// Package lifecycle holds the key lifecycle state model and the pure
// eligibility derivations the admin UI renders from. Nothing in this
// package touches disk or the wire; everything is a function of a key
// snapshot and, where relevant, vault statistics.
package lifecycle

import "fmt"

// Status is the lifecycle state of a key, following the NIST SP 800-57
// state set used by the registry.
type Status string

const (
	// StatusPreActivation means the key was generated but never attached.
	StatusPreActivation Status = "pre_activation"
	// StatusActive means the key is attached and available for operations.
	StatusActive Status = "active"
	// StatusSuspended means the key is temporarily disabled but recoverable.
	StatusSuspended Status = "suspended"
	// StatusDeactivated means the key is disabled and scheduled for purge
	// after the grace period unless restored.
	StatusDeactivated Status = "deactivated"
	// StatusCompromised means a breach was detected; the key must not be used.
	StatusCompromised Status = "compromised"
	// StatusDestroyed means key material is gone; only metadata remains.
	StatusDestroyed Status = "destroyed"
)

// ParseStatus validates a wire/disk status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPreActivation, StatusActive, StatusSuspended,
		StatusDeactivated, StatusCompromised, StatusDestroyed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown lifecycle status %q", s)
}

// CanTransitionTo reports whether moving from s to target is a valid
// lifecycle transition. Self-transitions are invalid; callers wanting
// idempotent commands check for the target state before transitioning.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPreActivation:
		return target == StatusActive || target == StatusDestroyed
	case StatusActive:
		return target == StatusSuspended || target == StatusDeactivated || target == StatusCompromised
	case StatusSuspended:
		return target == StatusActive || target == StatusDeactivated || target == StatusCompromised
	case StatusDeactivated:
		return target == StatusActive || target == StatusSuspended || target == StatusDestroyed
	case StatusCompromised:
		return target == StatusDestroyed
	case StatusDestroyed:
		return false
	}
	return false
}

// DisplayText returns the short badge text shown on key cards.
func (s Status) DisplayText() string {
	switch s {
	case StatusPreActivation:
		return "New"
	case StatusActive:
		return "Active"
	case StatusSuspended:
		return "Suspended"
	case StatusDeactivated:
		return "Deactivated"
	case StatusCompromised:
		return "Compromised"
	case StatusDestroyed:
		return "Destroyed"
	}
	return string(s)
}

// Description returns the long-form explanation used in the details view.
func (s Status) Description() string {
	switch s {
	case StatusPreActivation:
		return "Key generated but never used"
	case StatusActive:
		return "Key is active and available for operations"
	case StatusSuspended:
		return "Key is temporarily disabled"
	case StatusDeactivated:
		return "Key is deactivated and will be purged after the grace period"
	case StatusCompromised:
		return "Key has been compromised and must not be used"
	case StatusDestroyed:
		return "Key material has been destroyed; only metadata remains"
	}
	return string(s)
}

// IsOperational reports whether the key may be used for encryption.
func (s Status) IsOperational() bool {
	return s == StatusActive
}

// CanAttachToVault reports whether a key in this state may be attached
// to a vault.
func (s Status) CanAttachToVault() bool {
	switch s {
	case StatusPreActivation, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusDestroyed
}

func (s Status) String() string {
	return s.DisplayText()
}
