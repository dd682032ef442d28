// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package confirm

import "testing"

func TestPhraseGateExactMatch(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		input     string
		canSubmit bool
	}{
		{"exact match", "Laptop Key", "DELETE Laptop Key", true},
		{"empty input", "Laptop Key", "", false},
		{"wrong case verb", "Laptop Key", "delete Laptop Key", false},
		{"wrong case label", "Laptop Key", "DELETE laptop key", false},
		{"trailing space", "Laptop Key", "DELETE Laptop Key ", false},
		{"leading space", "Laptop Key", " DELETE Laptop Key", false},
		{"label only", "Laptop Key", "Laptop Key", false},
		{"unicode label exact", "Clé maître", "DELETE Clé maître", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPhraseGate(tt.label)
			g.SetInput(tt.input)
			if got := g.CanSubmit(); got != tt.canSubmit {
				t.Errorf("CanSubmit() = %v, want %v", got, tt.canSubmit)
			}
			if got := g.Submit(); got != tt.canSubmit {
				t.Errorf("Submit() = %v, want %v", got, tt.canSubmit)
			}
		})
	}
}

func TestPlainGateSubmitsWithoutPhrase(t *testing.T) {
	g := NewGate()
	if !g.CanSubmit() {
		t.Fatal("plain gate should allow submit immediately")
	}
	if !g.Submit() {
		t.Fatal("Submit() refused on plain gate")
	}
	if g.State() != GateSubmitting {
		t.Errorf("state = %v, want submitting", g.State())
	}
}

func TestSubmitWhileInFlightIsNoop(t *testing.T) {
	g := NewPhraseGate("k1")
	g.SetInput(ConfirmPhrase("k1"))
	if !g.Submit() {
		t.Fatal("first submit refused")
	}
	if g.Submit() {
		t.Error("second submit should be refused while in flight")
	}
	if g.State() != GateSubmitting {
		t.Errorf("state = %v, want submitting", g.State())
	}
}

func TestFailPreservesInputAndAllowsRetry(t *testing.T) {
	g := NewPhraseGate("backup")
	g.SetInput("DELETE backup")
	g.Submit()
	g.Fail("daemon unavailable")

	if g.State() != GateError {
		t.Fatalf("state = %v, want error", g.State())
	}
	if g.ErrMsg() != "daemon unavailable" {
		t.Errorf("ErrMsg() = %q", g.ErrMsg())
	}
	if g.Input() != "DELETE backup" {
		t.Errorf("input not preserved after failure: %q", g.Input())
	}
	if !g.Submit() {
		t.Error("retry after failure should be allowed without re-typing")
	}
	g.Succeed()
	if g.State() != GateDone {
		t.Errorf("state = %v, want done", g.State())
	}
	if g.Submit() {
		t.Error("submit after success must be refused")
	}
}

func TestEditingClearsError(t *testing.T) {
	g := NewPhraseGate("k")
	g.SetInput("DELETE k")
	g.Submit()
	g.Fail("timeout")
	g.SetInput("DELETE k")
	if g.ErrMsg() != "" {
		t.Errorf("error not cleared on edit: %q", g.ErrMsg())
	}
}

func TestCancelBlockedWhileSubmitting(t *testing.T) {
	g := NewGate()
	g.Submit()
	if g.Cancel() {
		t.Error("cancel must not take effect while a command is in flight")
	}
	g.Fail("boom")
	if !g.Cancel() {
		t.Error("cancel should succeed after the command settled")
	}
	if g.Input() != "" || g.ErrMsg() != "" {
		t.Error("cancel should clear transient state")
	}
}

func TestCancelAfterSuccessLeavesGateTerminal(t *testing.T) {
	g := NewPhraseGate("k")
	g.SetInput("DELETE k")
	g.Submit()
	g.Succeed()
	if !g.Cancel() {
		t.Error("cancel after success should let the dialog close")
	}
	if g.State() != GateDone {
		t.Errorf("state after cancel = %v, want done", g.State())
	}
	if g.Submit() {
		t.Error("a finished gate must refuse further submits")
	}
}

func TestInputFrozenWhileSubmitting(t *testing.T) {
	g := NewPhraseGate("k")
	g.SetInput("DELETE k")
	g.Submit()
	g.SetInput("mutated")
	if g.Input() != "DELETE k" {
		t.Errorf("input changed during submit: %q", g.Input())
	}
}

func TestRequireAndRelaxPhrase(t *testing.T) {
	g := NewGate()
	if !g.CanSubmit() {
		t.Fatal("plain gate should be submittable")
	}

	g.RequirePhrase("mobile")
	if g.State() != GateAwaitingText {
		t.Errorf("state = %v, want awaiting_text", g.State())
	}
	if g.CanSubmit() {
		t.Error("submit must be blocked until the phrase is typed")
	}

	g.SetInput("DELETE mobile")
	if !g.CanSubmit() {
		t.Error("exact phrase should unblock submit")
	}

	g.RelaxPhrase()
	g.SetInput("")
	if !g.CanSubmit() {
		t.Error("relaxed gate should submit without phrase")
	}
}

func TestFocusTrapCycles(t *testing.T) {
	const (
		fieldInput = iota
		fieldConfirm
		fieldCancel
	)
	trap := NewFocusTrap([]int{fieldInput, fieldConfirm, fieldCancel}, fieldCancel)
	if trap.Current() != fieldCancel {
		t.Fatalf("initial focus = %d, want cancel", trap.Current())
	}

	trap.Next()
	if trap.Current() != fieldInput {
		t.Errorf("Next() did not wrap to first element: %d", trap.Current())
	}
	trap.Prev()
	if trap.Current() != fieldCancel {
		t.Errorf("Prev() did not wrap to last element: %d", trap.Current())
	}

	for i := 0; i < 3; i++ {
		trap.Next()
	}
	if trap.Current() != fieldCancel {
		t.Errorf("full cycle should return to start, got %d", trap.Current())
	}
}

func TestFocusTrapSetElementsKeepsFocus(t *testing.T) {
	trap := NewFocusTrap([]int{0, 2}, 2)
	trap.SetElements([]int{0, 1, 2})
	if trap.Current() != 2 {
		t.Errorf("focus lost across element change: %d", trap.Current())
	}
	trap.SetElements([]int{0, 1})
	if trap.Current() != 0 {
		t.Errorf("vanished element should fall back to first: %d", trap.Current())
	}
}
