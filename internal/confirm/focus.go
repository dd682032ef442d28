// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package confirm

// FocusTrap cycles keyboard focus among a dialog's interactive elements.
// Tab moves forward and wraps, shift+tab moves backward and wraps; focus
// never leaves the set. Element identities are small ints owned by the
// dialog that builds the trap.
type FocusTrap struct {
	elems []int
	pos   int
}

// NewFocusTrap builds a trap over the given elements, focusing initial.
// If initial is not present the first element gets focus. A dialog with
// destructive buttons should pass its cancel element as initial.
func NewFocusTrap(elems []int, initial int) *FocusTrap {
	t := &FocusTrap{elems: elems}
	for i, e := range elems {
		if e == initial {
			t.pos = i
			break
		}
	}
	return t
}

// Current returns the focused element, or -1 for an empty trap.
func (t *FocusTrap) Current() int {
	if len(t.elems) == 0 {
		return -1
	}
	return t.elems[t.pos]
}

// Next advances focus, wrapping from the last element to the first.
func (t *FocusTrap) Next() {
	if len(t.elems) == 0 {
		return
	}
	t.pos = (t.pos + 1) % len(t.elems)
}

// Prev moves focus backward, wrapping from the first element to the last.
func (t *FocusTrap) Prev() {
	if len(t.elems) == 0 {
		return
	}
	t.pos = (t.pos - 1 + len(t.elems)) % len(t.elems)
}

// Focus moves focus directly to elem if it is in the set.
func (t *FocusTrap) Focus(elem int) {
	for i, e := range t.elems {
		if e == elem {
			t.pos = i
			return
		}
	}
}

// SetElements replaces the element set, keeping the currently focused
// element when it survives the change. Used when a dialog's interactive
// surface changes shape, e.g. a checkbox revealing a text input.
func (t *FocusTrap) SetElements(elems []int) {
	cur := t.Current()
	t.elems = elems
	t.pos = 0
	for i, e := range elems {
		if e == cur {
			t.pos = i
			return
		}
	}
}
