// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package command

import (
	"errors"
	"fmt"
)

// ErrCode classifies a command failure for callers that present errors
// to the user differently from internal faults.
type ErrCode string

const (
	ErrInvalidInput    ErrCode = "invalid_input"
	ErrKeyNotFound     ErrCode = "key_not_found"
	ErrInvalidKeyState ErrCode = "invalid_key_state"
	ErrInternal        ErrCode = "internal_error"
)

// Error is a classified command failure.
type Error struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the error code, defaulting to internal_error for
// unclassified failures.
func CodeOf(err error) ErrCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrInternal
}

func errInvalid(msg string) *Error {
	return &Error{Code: ErrInvalidInput, Message: msg}
}

func errNotFound(keyID string) *Error {
	return &Error{Code: ErrKeyNotFound, Message: fmt.Sprintf("key %q not found", keyID)}
}

func errState(err error) *Error {
	return &Error{Code: ErrInvalidKeyState, Message: err.Error()}
}

func errInternal(msg string, err error) *Error {
	return &Error{Code: ErrInternal, Message: msg, Err: err}
}
