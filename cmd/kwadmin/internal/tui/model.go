// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/keywarden/keywarden/internal/confirm"
	"github.com/keywarden/keywarden/internal/lifecycle"
)

// ViewState represents the current UI state
type ViewState int

const (
	ViewKeyList           ViewState = iota
	ViewKeyDetails                  // Key metadata and full status history
	ViewDeactivateConfirm           // Deactivate dialog (reason, immediate checkbox)
	ViewDeleteConfirm               // Permanent delete dialog (typed confirmation)
	ViewRestoreConfirm              // Restore dialog for deactivated keys
	ViewEditLabel                   // Rename dialog for unattached keys
	ViewExportDisplay               // Public key / recipient export modal
)

// ConnectionState represents IPC connection status
type ConnectionState int

const (
	ConnectionDisconnected ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
)

// Focus trap element identities shared by the dialogs
const (
	focusCancel = iota
	focusConfirmBtn
	focusReason
	focusImmediate
	focusPhrase
	focusLabelInput
)

// KeyInfo holds the snapshot of one registry key as received from the daemon
type KeyInfo struct {
	KeyID             string
	Kind              string // "passphrase", "yubikey", "recipient"
	Label             string
	Status            lifecycle.Status
	PublicKey         string
	CreatedAt         time.Time
	LastUsed          *time.Time
	VaultAssociations []string
	DeactivatedAt     *time.Time
}

// Model is the main TUI application model
type Model struct {
	// Current view state
	viewState ViewState

	// Connection state
	connectionState ConnectionState
	ipcPath         string
	dataDir         string // KEYWARDEN_DATA directory

	// Daemon state
	registryState string
	keyCount      int

	// Key list snapshot (keys plus the vault statistics the eligibility
	// derivations read)
	keys         []KeyInfo
	vaultStats   map[string]lifecycle.VaultStats
	selectedKey  int
	scrollOffset int

	// Key list filter
	filterInput  string // Current filter text
	filterActive bool   // True when filter input is focused

	// Deactivate dialog state
	deactKeyID     string
	deactLabel     string
	deactReason    string
	deactImmediate bool // Skip the grace period and destroy outright
	deactGate      *confirm.Gate
	deactFocus     *confirm.FocusTrap

	// Delete dialog state
	deleteKeyID string
	deleteLabel string
	deleteGate  *confirm.Gate
	deleteFocus *confirm.FocusTrap

	// Restore dialog state
	restoreKeyID string
	restoreLabel string
	restoreGate  *confirm.Gate
	restoreFocus *confirm.FocusTrap

	// Edit-label dialog state
	editKeyID    string
	editOldLabel string
	editInput    string
	editGate     *confirm.Gate
	editFocus    *confirm.FocusTrap

	// Export modal state
	exportKeyID      string
	exportLabel      string
	exportKind       string
	exportPublicKey  string
	exportSaveStatus string
	exportSaveGen    int // Generation guard so a stale timer never clears a newer status

	// Key details state
	detailsKey      *KeyInfo
	detailsHistory  []StatusHistoryInfo
	detailsViewport viewport.Model // Scrollable viewport for the status history

	// Refresh-first close: a mutation succeeded and the dialog closes once
	// the refreshed key list arrives, never before
	pendingClose bool

	// Per-request timeout generation; a timeout tick from an older request
	// is ignored
	requestGen int

	// Error message shown in the status bar
	lastError string

	// Screen dimensions
	width  int
	height int

	// Quit flag
	quitting bool
}

// NewModel creates a new TUI model
func NewModel(ipcPath, dataDir string) Model {
	return Model{
		viewState:       ViewKeyList,
		connectionState: ConnectionDisconnected,
		ipcPath:         ipcPath,
		dataDir:         dataDir,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ConnectCmd(m.ipcPath),
		tea.EnterAltScreen,
	)
}

// Tea messages for async operations

// ConnectedMsg is sent when IPC connection is established
type ConnectedMsg struct{}

// DisconnectedMsg is sent when IPC connection is lost
type DisconnectedMsg struct {
	Error error
}

// DaemonStatusMsg is sent when daemon status is received
type DaemonStatusMsg struct {
	State    string
	KeyCount int
}

// KeysListMsg is sent when the key list snapshot is received
type KeysListMsg struct {
	Keys       []KeyInfo
	VaultStats map[string]lifecycle.VaultStats
}

// KeysChangedMsg is sent when the daemon notifies that the registry changed.
// This triggers a refresh of the key list
type KeysChangedMsg struct {
	KeyCount int
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Error error
}

// DeactivateResultMsg is sent when key deactivation completes
type DeactivateResultMsg struct {
	Success             bool
	KeyID               string
	NewStatus           string
	DeletionScheduledAt *time.Time
	Error               string
}

// DeleteResultMsg is sent when key deletion completes
type DeleteResultMsg struct {
	Success bool
	KeyID   string
	Error   string
}

// RestoreResultMsg is sent when key restoration completes
type RestoreResultMsg struct {
	Success   bool
	KeyID     string
	NewStatus string
	Error     string
}

// UpdateLabelResultMsg is sent when a rename completes
type UpdateLabelResultMsg struct {
	Success      bool
	KeyID        string
	UpdatedLabel string
	Error        string
}

// KeyDetailsMsg is sent when key details are retrieved
type KeyDetailsMsg struct {
	Success       bool
	Key           *KeyInfo
	StatusHistory []StatusHistoryInfo
	Error         string
}

// ExportResultMsg is sent when the exportable public material is received
type ExportResultMsg struct {
	Success   bool
	KeyID     string
	Label     string
	PublicKey string
	Error     string
}

// saveStatusExpiredMsg reverts the export "saved" indicator after its
// display window
type saveStatusExpiredMsg struct {
	gen int
}

// requestTimeoutMsg fires when an in-flight dialog command exceeded the
// client-side deadline
type requestTimeoutMsg struct {
	gen int
}
