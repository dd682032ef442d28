// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

// Package confirm implements the gate that stands between the user and
// permanently destructive key operations, plus the keyboard focus trap
// used by the dialogs that host it. Both are plain state machines with
// no rendering dependencies so they can be tested without a terminal.
package confirm

import "fmt"

// GateState is the state of one confirmation gate instance.
type GateState int

const (
	// GateIdle: dialog open, no confirmation text required or not yet started.
	GateIdle GateState = iota
	// GateAwaitingText: the user must type the exact confirmation phrase.
	GateAwaitingText
	// GateSubmitting: one command is in flight; further submits are no-ops.
	GateSubmitting
	// GateError: the last submit failed; input is preserved for retry.
	GateError
	// GateDone: the command succeeded; the instance accepts nothing further.
	GateDone
)

func (s GateState) String() string {
	switch s {
	case GateIdle:
		return "idle"
	case GateAwaitingText:
		return "awaiting_text"
	case GateSubmitting:
		return "submitting"
	case GateError:
		return "error"
	case GateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ConfirmPhrase returns the literal text the user must type to arm a
// permanent deletion of the key with the given label.
func ConfirmPhrase(label string) string {
	return "DELETE " + label
}

// Gate guards a single destructive action behind exact-phrase
// confirmation. One Gate per dialog instance; a reopened dialog gets a
// fresh Gate.
type Gate struct {
	state    GateState
	required string // empty means no phrase needed
	input    string
	errMsg   string
}

// NewGate creates a gate that requires no confirmation phrase. Used for
// reversible actions (grace-period deactivation, restore, label update).
func NewGate() *Gate {
	return &Gate{state: GateIdle}
}

// NewPhraseGate creates a gate that requires the exact phrase for label
// before Submit is permitted. Used for permanent deletion and for
// deactivation with the immediate-delete flag set.
func NewPhraseGate(label string) *Gate {
	return &Gate{state: GateAwaitingText, required: ConfirmPhrase(label)}
}

// State returns the current gate state.
func (g *Gate) State() GateState { return g.state }

// Input returns the confirmation text typed so far.
func (g *Gate) Input() string { return g.input }

// ErrMsg returns the message from the last failed submit, if any.
func (g *Gate) ErrMsg() string { return g.errMsg }

// RequiresPhrase reports whether this gate demands typed confirmation.
func (g *Gate) RequiresPhrase() bool { return g.required != "" }

// SetInput replaces the confirmation text. Ignored while submitting or
// after success. Editing clears a previous error message.
func (g *Gate) SetInput(text string) {
	if g.state == GateSubmitting || g.state == GateDone {
		return
	}
	g.input = text
	g.errMsg = ""
}

// RequirePhrase switches an idle gate into phrase mode, e.g. when the
// user checks the immediate-delete box on the deactivate dialog.
func (g *Gate) RequirePhrase(label string) {
	if g.state == GateSubmitting || g.state == GateDone {
		return
	}
	g.required = ConfirmPhrase(label)
	g.state = GateAwaitingText
	g.errMsg = ""
}

// RelaxPhrase returns a phrase gate to the no-confirmation mode, e.g.
// when the immediate-delete box is unchecked again. Typed input is kept
// in case the box is re-checked.
func (g *Gate) RelaxPhrase() {
	if g.state == GateSubmitting || g.state == GateDone {
		return
	}
	g.required = ""
	g.state = GateIdle
	g.errMsg = ""
}

// CanSubmit reports whether Submit would fire. The phrase comparison is
// byte-exact: case matters and surrounding whitespace is not trimmed.
func (g *Gate) CanSubmit() bool {
	switch g.state {
	case GateSubmitting, GateDone:
		return false
	}
	if g.required == "" {
		return true
	}
	return g.input == g.required
}

// Submit moves the gate to Submitting. Returns true when the caller
// should issue the external command; false means the submit was refused
// (phrase mismatch, already in flight, or already done) and no command
// must be sent.
func (g *Gate) Submit() bool {
	if !g.CanSubmit() {
		return false
	}
	g.state = GateSubmitting
	g.errMsg = ""
	return true
}

// Fail records a failed submit. The dialog stays interactive and the
// typed confirmation text is preserved so the user can retry without
// re-typing.
func (g *Gate) Fail(msg string) {
	if g.state != GateSubmitting {
		return
	}
	g.errMsg = msg
	g.state = GateError
}

// Succeed marks the command as completed. The gate is terminal after
// this; no further submits are possible from this instance.
func (g *Gate) Succeed() {
	if g.state != GateSubmitting {
		return
	}
	g.state = GateDone
	g.errMsg = ""
}

// Cancel aborts the dialog, clearing transient input and error state.
// Ignored while a command is in flight: the UI must not report closed
// while a mutation is still pending. Done is terminal, so a cancel
// there leaves the gate untouched; the dialog may still close. Returns
// true when the caller may close the dialog.
func (g *Gate) Cancel() bool {
	switch g.state {
	case GateSubmitting:
		return false
	case GateDone:
		return true
	}
	g.input = ""
	g.errMsg = ""
	if g.required != "" {
		g.state = GateAwaitingText
	} else {
		g.state = GateIdle
	}
	return true
}
