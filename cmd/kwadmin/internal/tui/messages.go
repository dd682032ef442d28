// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

import (
	"github.com/keywarden/keywarden/internal/protocol"
)

// Re-export protocol message type constants for convenience within the tui package.
// This allows other files in this package to use these constants without the protocol prefix.
const (
	// Key management message types
	MsgTypeListKeys          = protocol.MsgTypeListKeys
	MsgTypeKeysList          = protocol.MsgTypeKeysList
	MsgTypeDeactivateKey     = protocol.MsgTypeDeactivateKey
	MsgTypeDeactivateResult  = protocol.MsgTypeDeactivateResult
	MsgTypeDeleteKey         = protocol.MsgTypeDeleteKey
	MsgTypeDeleteResult      = protocol.MsgTypeDeleteResult
	MsgTypeRestoreKey        = protocol.MsgTypeRestoreKey
	MsgTypeRestoreResult     = protocol.MsgTypeRestoreResult
	MsgTypeUpdateLabel       = protocol.MsgTypeUpdateLabel
	MsgTypeUpdateLabelResult = protocol.MsgTypeUpdateLabelResult
	MsgTypeGetKeyDetails     = protocol.MsgTypeGetKeyDetails
	MsgTypeKeyDetails        = protocol.MsgTypeKeyDetails
	MsgTypeExportKey         = protocol.MsgTypeExportKey
	MsgTypeExportResult      = protocol.MsgTypeExportResult

	// Daemon state message types
	MsgTypeStatus = protocol.MsgTypeStatus
	MsgTypeError  = protocol.MsgTypeError

	// Server-initiated notification message types
	MsgTypeKeysChanged = protocol.MsgTypeKeysChanged
)

// Type aliases for protocol message types (wire format types)
type (
	BaseMessage              = protocol.BaseMessage
	ListKeysMessage          = protocol.ListKeysMessage
	KeysListMessage          = protocol.KeysListMessage
	DeactivateKeyMessage     = protocol.DeactivateKeyMessage
	DeactivateResultMessage  = protocol.DeactivateResultMessage
	DeleteKeyMessage         = protocol.DeleteKeyMessage
	DeleteResultMessage      = protocol.DeleteResultMessage
	RestoreKeyMessage        = protocol.RestoreKeyMessage
	RestoreResultMessage     = protocol.RestoreResultMessage
	UpdateLabelMessage       = protocol.UpdateLabelMessage
	UpdateLabelResultMessage = protocol.UpdateLabelResultMessage
	GetKeyDetailsMessage     = protocol.GetKeyDetailsMessage
	KeyDetailsMessage        = protocol.KeyDetailsMessage
	ExportKeyMessage         = protocol.ExportKeyMessage
	ExportResultMessage      = protocol.ExportResultMessage
	StatusMessage            = protocol.StatusMessage
	ErrorMessage             = protocol.ErrorMessage
	KeysChangedMessage       = protocol.KeysChangedMessage
	StatusHistoryInfo        = protocol.StatusHistoryInfo
	VaultInfo                = protocol.VaultInfo
)
