// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

// Core update loop and message handling.
// View-specific handlers are in update_*.go files.

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keywarden/keywarden/internal/confirm"
)

// requestTimeout is the client-side deadline for one in-flight dialog
// command. On expiry the dialog leaves the submitting state with a
// transport error and the user may retry.
const requestTimeout = 30 * time.Second

// Update handles all TUI events and messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ConnectedMsg:
		m.connectionState = ConnectionConnected
		m.lastError = ""
		// Server sends status first; request the key list right away
		return m, tea.Batch(WaitForMessageCmd(), SendListKeysCmd())

	case DisconnectedMsg:
		m.connectionState = ConnectionDisconnected
		if msg.Error != nil {
			m.lastError = msg.Error.Error()
		}
		// A dialog waiting on a reply will never get one
		if g := m.activeGate(); g != nil && g.State() == confirm.GateSubmitting {
			g.Fail("connection lost")
		}
		return m, nil

	case ReconnectingMsg:
		m.connectionState = ConnectionConnecting
		return m, WaitForMessageCmd()

	case DaemonStatusMsg:
		m.registryState = msg.State
		m.keyCount = msg.KeyCount
		return m, WaitForMessageCmd()

	case KeysListMsg:
		m.keys = msg.Keys
		m.vaultStats = msg.VaultStats
		m.keyCount = len(msg.Keys)
		// Ensure selectedKey and scrollOffset are within bounds
		if m.selectedKey >= len(m.keys) {
			m.selectedKey = len(m.keys) - 1
			if m.selectedKey < 0 {
				m.selectedKey = 0
			}
		}
		if m.scrollOffset > m.selectedKey {
			m.scrollOffset = m.selectedKey
		}
		// After a successful mutation the dialog closes only once the
		// refreshed list is in, so the list never flashes stale state
		if m.pendingClose {
			m = m.closeActiveDialog()
		}
		return m, WaitForMessageCmd()

	case KeysChangedMsg:
		// Server notified us that the registry changed - request updated list
		return m, tea.Batch(WaitForMessageCmd(), SendListKeysCmd())

	case ErrorMsg:
		// Transport errors surface in the open dialog like domain errors do
		if g := m.activeGate(); g != nil && g.State() == confirm.GateSubmitting {
			g.Fail(msg.Error.Error())
		} else {
			m.lastError = msg.Error.Error()
		}
		return m, WaitForMessageCmd()

	case DeactivateResultMsg:
		if m.viewState != ViewDeactivateConfirm || m.deactGate == nil {
			return m, WaitForMessageCmd()
		}
		if msg.Success {
			m.deactGate.Succeed()
			m.pendingClose = true
			return m, tea.Batch(WaitForMessageCmd(), SendListKeysCmd())
		}
		m.deactGate.Fail(msg.Error)
		return m, WaitForMessageCmd()

	case DeleteResultMsg:
		if m.viewState != ViewDeleteConfirm || m.deleteGate == nil {
			return m, WaitForMessageCmd()
		}
		if msg.Success {
			m.deleteGate.Succeed()
			m.pendingClose = true
			return m, tea.Batch(WaitForMessageCmd(), SendListKeysCmd())
		}
		m.deleteGate.Fail(msg.Error)
		return m, WaitForMessageCmd()

	case RestoreResultMsg:
		if m.viewState != ViewRestoreConfirm || m.restoreGate == nil {
			return m, WaitForMessageCmd()
		}
		if msg.Success {
			m.restoreGate.Succeed()
			m.pendingClose = true
			return m, tea.Batch(WaitForMessageCmd(), SendListKeysCmd())
		}
		m.restoreGate.Fail(msg.Error)
		return m, WaitForMessageCmd()

	case UpdateLabelResultMsg:
		if m.viewState != ViewEditLabel || m.editGate == nil {
			return m, WaitForMessageCmd()
		}
		if msg.Success {
			m.editGate.Succeed()
			m.pendingClose = true
			return m, tea.Batch(WaitForMessageCmd(), SendListKeysCmd())
		}
		m.editGate.Fail(msg.Error)
		return m, WaitForMessageCmd()

	case KeyDetailsMsg:
		if msg.Success && msg.Key != nil {
			m.detailsKey = msg.Key
			m.detailsHistory = msg.StatusHistory
			m.initDetailsViewport()
			m.viewState = ViewKeyDetails
		} else {
			m.lastError = msg.Error
		}
		return m, WaitForMessageCmd()

	case ExportResultMsg:
		if msg.Success {
			m.exportKeyID = msg.KeyID
			m.exportLabel = msg.Label
			m.exportPublicKey = msg.PublicKey
			m.exportSaveStatus = ""
			m.viewState = ViewExportDisplay
		} else {
			m.lastError = msg.Error
		}
		return m, WaitForMessageCmd()

	case saveStatusExpiredMsg:
		// A newer save bumped the generation; this timer is stale
		if msg.gen == m.exportSaveGen {
			m.exportSaveStatus = ""
		}
		return m, nil

	case requestTimeoutMsg:
		if msg.gen == m.requestGen {
			if g := m.activeGate(); g != nil && g.State() == confirm.GateSubmitting {
				g.Fail("request timed out")
			}
		}
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input based on current view
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit handling
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	// Global reconnect handling when disconnected
	if m.connectionState == ConnectionDisconnected && msg.String() == "c" {
		m.connectionState = ConnectionConnecting
		m.lastError = ""
		return m, ReconnectCmd(m.ipcPath)
	}

	// View-specific handling
	switch m.viewState {
	case ViewKeyList:
		return m.handleKeyListKeys(msg)
	case ViewKeyDetails:
		return m.handleKeyDetailsKeys(msg)
	case ViewDeactivateConfirm:
		return m.handleDeactivateConfirmKeys(msg)
	case ViewDeleteConfirm:
		return m.handleDeleteConfirmKeys(msg)
	case ViewRestoreConfirm:
		return m.handleRestoreConfirmKeys(msg)
	case ViewEditLabel:
		return m.handleEditLabelKeys(msg)
	case ViewExportDisplay:
		return m.handleExportDisplayKeys(msg)
	}

	return m, nil
}

// activeGate returns the confirmation gate of the open dialog, or nil
// when no gated dialog is open.
func (m Model) activeGate() *confirm.Gate {
	switch m.viewState {
	case ViewDeactivateConfirm:
		return m.deactGate
	case ViewDeleteConfirm:
		return m.deleteGate
	case ViewRestoreConfirm:
		return m.restoreGate
	case ViewEditLabel:
		return m.editGate
	}
	return nil
}

// closeActiveDialog clears the state of the open dialog and returns to
// the key list.
func (m Model) closeActiveDialog() Model {
	switch m.viewState {
	case ViewDeactivateConfirm:
		m.deactKeyID = ""
		m.deactLabel = ""
		m.deactReason = ""
		m.deactImmediate = false
		m.deactGate = nil
		m.deactFocus = nil
	case ViewDeleteConfirm:
		m.deleteKeyID = ""
		m.deleteLabel = ""
		m.deleteGate = nil
		m.deleteFocus = nil
	case ViewRestoreConfirm:
		m.restoreKeyID = ""
		m.restoreLabel = ""
		m.restoreGate = nil
		m.restoreFocus = nil
	case ViewEditLabel:
		m.editKeyID = ""
		m.editOldLabel = ""
		m.editInput = ""
		m.editGate = nil
		m.editFocus = nil
	}
	m.pendingClose = false
	m.viewState = ViewKeyList
	return m
}

// startRequestTimeout arms the client-side deadline for the command that
// was just submitted.
func (m *Model) startRequestTimeout() tea.Cmd {
	m.requestGen++
	gen := m.requestGen
	return tea.Tick(requestTimeout, func(time.Time) tea.Msg {
		return requestTimeoutMsg{gen: gen}
	})
}
