// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package lifecycle

import "testing"

func TestValidTransitions(t *testing.T) {
	valid := []struct{ from, to Status }{
		{StatusPreActivation, StatusActive},
		{StatusPreActivation, StatusDestroyed},
		{StatusActive, StatusSuspended},
		{StatusActive, StatusDeactivated},
		{StatusActive, StatusCompromised},
		{StatusSuspended, StatusActive},
		{StatusSuspended, StatusDeactivated},
		{StatusSuspended, StatusCompromised},
		{StatusDeactivated, StatusActive},    // restore within grace period
		{StatusDeactivated, StatusSuspended}, // restore to previous state
		{StatusDeactivated, StatusDestroyed},
		{StatusCompromised, StatusDestroyed},
	}
	for _, tc := range valid {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be valid", tc.from, tc.to)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	invalid := []struct{ from, to Status }{
		// Cannot go backward to pre-activation
		{StatusActive, StatusPreActivation},
		{StatusDeactivated, StatusPreActivation},
		// Cannot skip states
		{StatusPreActivation, StatusSuspended},
		{StatusPreActivation, StatusDeactivated},
		{StatusPreActivation, StatusCompromised},
		// Destroyed is final
		{StatusDestroyed, StatusActive},
		{StatusDestroyed, StatusPreActivation},
		{StatusDestroyed, StatusSuspended},
		{StatusDestroyed, StatusDestroyed},
		// No self-transitions
		{StatusActive, StatusActive},
		{StatusDeactivated, StatusDeactivated},
	}
	for _, tc := range invalid {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be invalid", tc.from, tc.to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{
		"pre_activation", "active", "suspended",
		"deactivated", "compromised", "destroyed",
	} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseStatus("registered"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestOperationalStatus(t *testing.T) {
	if !StatusActive.IsOperational() {
		t.Error("active keys should be operational")
	}
	for _, s := range []Status{
		StatusPreActivation, StatusSuspended, StatusDeactivated,
		StatusCompromised, StatusDestroyed,
	} {
		if s.IsOperational() {
			t.Errorf("%s should not be operational", s)
		}
	}
}

func TestVaultAttachmentEligibility(t *testing.T) {
	attachable := map[Status]bool{
		StatusPreActivation: true,
		StatusActive:        true,
		StatusSuspended:     true,
		StatusDeactivated:   false,
		StatusCompromised:   false,
		StatusDestroyed:     false,
	}
	for s, want := range attachable {
		if got := s.CanAttachToVault(); got != want {
			t.Errorf("%s.CanAttachToVault() = %v, want %v", s, got, want)
		}
	}
}

func TestDisplayText(t *testing.T) {
	if got := StatusPreActivation.DisplayText(); got != "New" {
		t.Errorf("DisplayText() = %q, want %q", got, "New")
	}
	if got := StatusActive.String(); got != "Active" {
		t.Errorf("String() = %q, want %q", got, "Active")
	}
}
