// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

// Package protocol defines the message types shared between kwardend
// (daemon) and kwadmin/TUI (client).
// This is the single source of truth for the wire protocol.
package protocol

import "time"

// Message type constants
const (
	// Key management message types
	MsgTypeListKeys          = "list_keys"
	MsgTypeKeysList          = "keys_list"
	MsgTypeDeactivateKey     = "deactivate_key"
	MsgTypeDeactivateResult  = "deactivate_result"
	MsgTypeDeleteKey         = "delete_key"
	MsgTypeDeleteResult      = "delete_result"
	MsgTypeRestoreKey        = "restore_key"
	MsgTypeRestoreResult     = "restore_result"
	MsgTypeUpdateLabel       = "update_label"
	MsgTypeUpdateLabelResult = "update_label_result"
	MsgTypeGetKeyDetails     = "get_key_details"
	MsgTypeKeyDetails        = "key_details"
	MsgTypeExportKey         = "export_key"
	MsgTypeExportResult      = "export_result"

	// Daemon state message types
	MsgTypeStatus = "status"
	MsgTypeError  = "error"

	// Server-initiated notification message types
	MsgTypeKeysChanged = "keys_changed" // Sent when the registry changes on disk
)

// BaseMessage is the base structure for all IPC messages
type BaseMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"` // Unique request ID for correlation
}

// ListKeysMessage requests the key list from the daemon
type ListKeysMessage struct {
	BaseMessage
}

// StatusHistoryInfo is one lifecycle transition in the wire protocol
type StatusHistoryInfo struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	ChangedBy string    `json:"changed_by"`
}

// KeyInfo represents a single key in the wire protocol
type KeyInfo struct {
	KeyID             string     `json:"key_id"`
	KeyType           string     `json:"key_type"` // "passphrase", "yubikey", "recipient"
	Label             string     `json:"label"`
	Status            string     `json:"status"` // Lifecycle status: "active", "deactivated", etc.
	PublicKey         string     `json:"public_key,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUsed          *time.Time `json:"last_used,omitempty"`
	VaultAssociations []string   `json:"vault_associations,omitempty"`
	DeactivatedAt     *time.Time `json:"deactivated_at,omitempty"`
}

// VaultInfo carries per-vault statistics in the wire protocol.
// Eligibility derivations on the client read the encryption count.
type VaultInfo struct {
	VaultID         string `json:"vault_id"`
	Name            string `json:"name,omitempty"`
	EncryptionCount int    `json:"encryption_count"`
}

// KeysListMessage contains the key list plus the vault statistics
// snapshot the client derives eligibility from
type KeysListMessage struct {
	BaseMessage
	Keys   []KeyInfo   `json:"keys"`
	Vaults []VaultInfo `json:"vaults,omitempty"`
}

// DeactivateKeyMessage requests deactivation of a key.
// With DeleteImmediately set the grace period is skipped and the key is
// destroyed outright.
type DeactivateKeyMessage struct {
	BaseMessage
	KeyID             string `json:"key_id"`
	Reason            string `json:"reason,omitempty"`
	DeleteImmediately bool   `json:"delete_immediately,omitempty"`
}

// DeactivateResultMessage contains the result of key deactivation
type DeactivateResultMessage struct {
	BaseMessage
	Success             bool       `json:"success"`
	KeyID               string     `json:"key_id,omitempty"`
	NewStatus           string     `json:"new_status,omitempty"`
	DeactivatedAt       *time.Time `json:"deactivated_at,omitempty"`
	DeletionScheduledAt *time.Time `json:"deletion_scheduled_at,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// DeleteKeyMessage requests permanent deletion of a key
type DeleteKeyMessage struct {
	BaseMessage
	KeyID  string `json:"key_id"`
	Reason string `json:"reason,omitempty"`
}

// DeleteResultMessage contains the result of key deletion
type DeleteResultMessage struct {
	BaseMessage
	Success   bool       `json:"success"`
	KeyID     string     `json:"key_id,omitempty"`
	NewStatus string     `json:"new_status,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// RestoreKeyMessage requests restoration of a deactivated key
type RestoreKeyMessage struct {
	BaseMessage
	KeyID string `json:"key_id"`
}

// RestoreResultMessage contains the result of key restoration
type RestoreResultMessage struct {
	BaseMessage
	Success   bool   `json:"success"`
	KeyID     string `json:"key_id,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UpdateLabelMessage requests a key rename
type UpdateLabelMessage struct {
	BaseMessage
	KeyID    string `json:"key_id"`
	NewLabel string `json:"new_label"`
}

// UpdateLabelResultMessage contains the result of a rename
type UpdateLabelResultMessage struct {
	BaseMessage
	Success      bool   `json:"success"`
	KeyID        string `json:"key_id,omitempty"`
	UpdatedLabel string `json:"updated_label,omitempty"`
	Error        string `json:"error,omitempty"`
}

// GetKeyDetailsMessage requests detailed information about a key
type GetKeyDetailsMessage struct {
	BaseMessage
	KeyID string `json:"key_id"`
}

// KeyDetailsMessage contains detailed information about a key,
// including its full status history
type KeyDetailsMessage struct {
	BaseMessage
	Success       bool                `json:"success"`
	Key           *KeyInfo            `json:"key,omitempty"`
	StatusHistory []StatusHistoryInfo `json:"status_history,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// ExportKeyMessage requests the public key material of a key for export
type ExportKeyMessage struct {
	BaseMessage
	KeyID string `json:"key_id"`
}

// ExportResultMessage contains the exportable public key material
type ExportResultMessage struct {
	BaseMessage
	Success   bool   `json:"success"`
	KeyID     string `json:"key_id,omitempty"`
	Label     string `json:"label,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusMessage is sent to communicate daemon status
type StatusMessage struct {
	BaseMessage
	State    string `json:"state"`
	KeyCount int    `json:"key_count"`
}

// ErrorMessage is sent for error conditions
type ErrorMessage struct {
	BaseMessage
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// KeysChangedMessage is sent by the daemon to notify clients that the
// registry changed on disk and the key list should be refreshed
type KeysChangedMessage struct {
	BaseMessage
	KeyCount int `json:"key_count"` // Number of keys after reload
}
