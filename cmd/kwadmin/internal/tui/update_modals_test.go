// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keywarden/keywarden/internal/confirm"
	"github.com/keywarden/keywarden/internal/lifecycle"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel() Model {
	m := NewModel("/tmp/test.sock", "")
	m.connectionState = ConnectionConnected
	deactivatedAt := time.Now().UTC().Add(-48 * time.Hour)
	m.keys = []KeyInfo{
		{KeyID: "key-1", Kind: "passphrase", Label: "backup", Status: lifecycle.StatusActive},
		{KeyID: "key-2", Kind: "yubikey", Label: "work", Status: lifecycle.StatusActive,
			VaultAssociations: []string{"vault-1"}},
		{KeyID: "key-3", Kind: "recipient", Label: "old", Status: lifecycle.StatusDeactivated,
			DeactivatedAt: &deactivatedAt},
	}
	m.vaultStats = map[string]lifecycle.VaultStats{
		"vault-1": {VaultID: "vault-1", EncryptionCount: 3},
	}
	return m
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	res, cmd := m.Update(msg)
	next, ok := res.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", res)
	}
	return next, cmd
}

func typeString(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = apply(t, m, key(string(r)))
	}
	return m
}

func TestDeactivateDialogOpensForEligibleKey(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0

	m, _ = apply(t, m, key("d"))

	if m.viewState != ViewDeactivateConfirm {
		t.Fatalf("viewState = %v, want ViewDeactivateConfirm", m.viewState)
	}
	if m.deactKeyID != "key-1" {
		t.Errorf("deactKeyID = %q, want key-1", m.deactKeyID)
	}
	if m.deactGate.RequiresPhrase() {
		t.Error("plain deactivation must not require a confirmation phrase")
	}
}

func TestDeactivateBlockedForKeyWithEncryptedData(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 1 // attached to vault-1 which has encryptions

	m, _ = apply(t, m, key("d"))

	if m.viewState != ViewKeyList {
		t.Fatalf("viewState = %v, want ViewKeyList", m.viewState)
	}
	if m.lastError == "" {
		t.Error("expected an error explaining why deactivation is blocked")
	}
}

func TestDeactivateBlockedForDeactivatedKey(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 2

	m, _ = apply(t, m, key("d"))

	if m.viewState != ViewKeyList {
		t.Fatalf("viewState = %v, want ViewKeyList", m.viewState)
	}
	if m.lastError != "key is already deactivated" {
		t.Errorf("lastError = %q", m.lastError)
	}
}

func TestImmediateCheckboxTogglesPhraseRequirement(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("d"))

	m.deactFocus.Focus(focusImmediate)
	m, _ = apply(t, m, key(" "))

	if !m.deactImmediate {
		t.Fatal("checkbox should be set")
	}
	if !m.deactGate.RequiresPhrase() {
		t.Fatal("immediate deactivation must require the confirmation phrase")
	}

	// Enter with an empty phrase must not fire the command
	m.deactFocus.Focus(focusConfirmBtn)
	m, cmd := apply(t, m, key("enter"))
	if cmd != nil {
		t.Fatal("submit fired without the confirmation phrase")
	}
	if m.deactGate.State() == confirm.GateSubmitting {
		t.Fatal("gate must not be submitting")
	}

	// Unchecking relaxes the gate again
	m.deactFocus.Focus(focusImmediate)
	m, _ = apply(t, m, key(" "))
	if m.deactGate.RequiresPhrase() {
		t.Error("unchecking the box should relax the phrase requirement")
	}
}

func TestDeactivateSubmitWithMatchingPhrase(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("d"))

	m.deactFocus.Focus(focusImmediate)
	m, _ = apply(t, m, key(" "))

	m.deactFocus.Focus(focusPhrase)
	m = typeString(t, m, "DELETE backup")

	m.deactFocus.Focus(focusConfirmBtn)
	m, cmd := apply(t, m, key("enter"))

	if cmd == nil {
		t.Fatal("matching phrase should fire the command")
	}
	if m.deactGate.State() != confirm.GateSubmitting {
		t.Fatalf("gate state = %v, want submitting", m.deactGate.State())
	}

	// A second enter while in flight is a no-op
	_, cmd = apply(t, m, key("enter"))
	if cmd != nil {
		t.Error("re-entrant submit while in flight must be a no-op")
	}
}

func TestDeactivateFailureKeepsDialogOpen(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("d"))
	if !m.deactGate.Submit() {
		t.Fatal("plain gate should submit")
	}

	m, _ = apply(t, m, DeactivateResultMsg{Success: false, Error: "registry locked"})

	if m.viewState != ViewDeactivateConfirm {
		t.Fatalf("dialog closed on failure; viewState = %v", m.viewState)
	}
	if m.deactGate.State() != confirm.GateError {
		t.Errorf("gate state = %v, want error", m.deactGate.State())
	}
	if m.deactGate.ErrMsg() != "registry locked" {
		t.Errorf("ErrMsg = %q", m.deactGate.ErrMsg())
	}
}

func TestDeactivateSuccessClosesAfterRefresh(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("d"))
	m.deactGate.Submit()

	m, _ = apply(t, m, DeactivateResultMsg{Success: true, KeyID: "key-1", NewStatus: "deactivated"})

	// Dialog stays open until the refreshed list arrives
	if m.viewState != ViewDeactivateConfirm {
		t.Fatalf("dialog closed before the list refresh; viewState = %v", m.viewState)
	}
	if !m.pendingClose {
		t.Fatal("pendingClose should be set")
	}

	m, _ = apply(t, m, KeysListMsg{Keys: m.keys, VaultStats: m.vaultStats})

	if m.viewState != ViewKeyList {
		t.Fatalf("viewState = %v, want ViewKeyList after refresh", m.viewState)
	}
	if m.deactGate != nil {
		t.Error("dialog state should be cleared on close")
	}
}

func TestEscRefusedWhileSubmitting(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("d"))
	m.deactGate.Submit()

	m, _ = apply(t, m, key("esc"))

	if m.viewState != ViewDeactivateConfirm {
		t.Fatal("esc must not close the dialog while a command is in flight")
	}
}

func TestDeleteRequiresExactPhrase(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("x"))

	if m.viewState != ViewDeleteConfirm {
		t.Fatalf("viewState = %v, want ViewDeleteConfirm", m.viewState)
	}

	// Wrong case does not arm the gate
	m = typeString(t, m, "delete backup")
	m.deleteFocus.Focus(focusConfirmBtn)
	m, cmd := apply(t, m, key("enter"))
	if cmd != nil {
		t.Fatal("mismatched phrase must not fire the command")
	}

	// Clear and retype exactly
	m.deleteGate.SetInput("")
	m.deleteFocus.Focus(focusPhrase)
	m = typeString(t, m, "DELETE backup")
	m, cmd = apply(t, m, key("enter"))
	if cmd == nil {
		t.Fatal("exact phrase should fire the command")
	}
	if m.deleteGate.State() != confirm.GateSubmitting {
		t.Fatalf("gate state = %v, want submitting", m.deleteGate.State())
	}
}

func TestDeleteFailurePreservesTypedPhrase(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("x"))
	m = typeString(t, m, "DELETE backup")
	m, _ = apply(t, m, key("enter"))

	m, _ = apply(t, m, DeleteResultMsg{Success: false, Error: "io error"})

	if m.deleteGate.Input() != "DELETE backup" {
		t.Errorf("typed phrase lost on failure: %q", m.deleteGate.Input())
	}

	// Retry succeeds without retyping
	m.deleteFocus.Focus(focusConfirmBtn)
	_, cmd := apply(t, m, key("enter"))
	if cmd == nil {
		t.Error("retry after failure should fire the command")
	}
}

func TestRestoreOnlyOfferedForDeactivatedKeys(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0

	m, _ = apply(t, m, key("u"))
	if m.viewState != ViewKeyList {
		t.Fatal("restore must not open for an active key")
	}
	if m.lastError != "only deactivated keys can be restored" {
		t.Errorf("lastError = %q", m.lastError)
	}

	m.selectedKey = 2
	m, _ = apply(t, m, key("u"))
	if m.viewState != ViewRestoreConfirm {
		t.Fatalf("viewState = %v, want ViewRestoreConfirm", m.viewState)
	}

	// y is a quick confirm
	m, cmd := apply(t, m, key("y"))
	if cmd == nil {
		t.Fatal("y should fire the restore command")
	}
	if m.restoreGate.State() != confirm.GateSubmitting {
		t.Fatalf("gate state = %v, want submitting", m.restoreGate.State())
	}
}

func TestEditLabelBlockedForAttachedKey(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 1

	m, _ = apply(t, m, key("l"))

	if m.viewState != ViewKeyList {
		t.Fatal("rename must not open for an attached key")
	}
	if m.lastError != "keys attached to a vault cannot be renamed" {
		t.Errorf("lastError = %q", m.lastError)
	}
}

func TestEditLabelSameLabelIsNoOp(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("l"))

	// Input is prefilled with the current label; enter closes without a command
	m, cmd := apply(t, m, key("enter"))
	if cmd != nil {
		t.Fatal("unchanged label must not fire a command")
	}
	if m.viewState != ViewKeyList {
		t.Fatalf("viewState = %v, want ViewKeyList", m.viewState)
	}
}

func TestEditLabelEmptyRejected(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("l"))

	for range "backup" {
		m, _ = apply(t, m, key("backspace"))
	}
	m, cmd := apply(t, m, key("enter"))

	if cmd != nil {
		t.Fatal("empty label must not fire a command")
	}
	if m.editGate.State() != confirm.GateError {
		t.Fatalf("gate state = %v, want error", m.editGate.State())
	}
}

func TestEditLabelInputCappedAtLimit(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("l"))

	m = typeString(t, m, "-this-is-a-very-long-label-suffix")

	if got := len([]rune(m.editInput)); got > maxNewLabelRunes {
		t.Errorf("editInput length = %d, want <= %d", got, maxNewLabelRunes)
	}
}

func TestEditLabelSubmitSendsTrimmedLabel(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("l"))

	for range "backup" {
		m, _ = apply(t, m, key("backspace"))
	}
	m = typeString(t, m, "  archive ")
	m, cmd := apply(t, m, key("enter"))

	if cmd == nil {
		t.Fatal("valid rename should fire the command")
	}
	if m.editGate.State() != confirm.GateSubmitting {
		t.Fatalf("gate state = %v, want submitting", m.editGate.State())
	}
}

func TestExportSaveIndicatorGenerationGuard(t *testing.T) {
	m := newTestModel()
	m.viewState = ViewExportDisplay
	m.exportSaveStatus = "Saved to /tmp/x.pub"
	m.exportSaveGen = 2

	// Stale timer from an earlier save must not clear the newer status
	m, _ = apply(t, m, saveStatusExpiredMsg{gen: 1})
	if m.exportSaveStatus == "" {
		t.Fatal("stale timer cleared a newer save status")
	}

	m, _ = apply(t, m, saveStatusExpiredMsg{gen: 2})
	if m.exportSaveStatus != "" {
		t.Error("matching timer should clear the save status")
	}
}

func TestRequestTimeoutFailsInFlightDialog(t *testing.T) {
	m := newTestModel()
	m.selectedKey = 0
	m, _ = apply(t, m, key("d"))
	res, _ := m.submitDeactivate()
	m = res.(Model)

	m, _ = apply(t, m, requestTimeoutMsg{gen: m.requestGen})

	if m.deactGate.State() != confirm.GateError {
		t.Fatalf("gate state = %v, want error after timeout", m.deactGate.State())
	}
	if m.deactGate.ErrMsg() != "request timed out" {
		t.Errorf("ErrMsg = %q", m.deactGate.ErrMsg())
	}

	// A stale timeout for an older request is ignored
	m.deactGate.SetInput("")
	m.deactGate.Submit()
	m, _ = apply(t, m, requestTimeoutMsg{gen: m.requestGen - 1})
	if m.deactGate.State() != confirm.GateSubmitting {
		t.Error("stale timeout must not fail the current request")
	}
}

func TestFilteredKeys(t *testing.T) {
	m := newTestModel()

	tests := []struct {
		filter string
		want   int
	}{
		{"", 3},
		{"backup", 1},
		{"BACK", 1},
		{"yubikey", 1},
		{"nomatch", 0},
	}

	for _, tt := range tests {
		m.filterInput = tt.filter
		if got := len(m.filteredKeys()); got != tt.want {
			t.Errorf("filteredKeys(%q) = %d keys, want %d", tt.filter, got, tt.want)
		}
	}
}

func TestKeysChangedTriggersRelist(t *testing.T) {
	m := newTestModel()
	_, cmd := apply(t, m, KeysChangedMsg{KeyCount: 4})
	if cmd == nil {
		t.Fatal("keys_changed should trigger a key list refresh")
	}
}
