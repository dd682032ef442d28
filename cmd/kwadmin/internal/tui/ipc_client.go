// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keywarden/keywarden/internal/lifecycle"
)

// ReconnectingMsg is sent when attempting to reconnect
type ReconnectingMsg struct {
	Delay time.Duration
}

// IPCClient manages the IPC connection to kwardend
type IPCClient struct {
	conn   net.Conn
	reader *bufio.Reader
	path   string

	// Mutex for connection state
	mu        sync.Mutex
	connected bool

	// Channel for incoming messages to forward to TUI
	msgChan chan tea.Msg

	// Done channel for shutdown
	done chan struct{}

	// Reconnection state
	reconnecting   bool
	reconnectDelay time.Duration
	maxDelay       time.Duration
}

// NewIPCClient creates a new IPC client
func NewIPCClient(path string) *IPCClient {
	return &IPCClient{
		path:           path,
		msgChan:        make(chan tea.Msg, 10),
		done:           make(chan struct{}),
		reconnectDelay: 1 * time.Second,
		maxDelay:       30 * time.Second,
	}
}

// Connect establishes the IPC connection
func (c *IPCClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	conn, err := net.Dial("unix", c.path)
	if err != nil {
		return fmt.Errorf("failed to connect to IPC socket: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected = true

	// Start message reader goroutine
	go c.readMessages()

	return nil
}

// Disconnect closes the IPC connection
func (c *IPCClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connected = false
}

// sendMessage sends a message over IPC
func (c *IPCClient) sendMessage(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = c.conn.Write(data)
	return err
}

// readMessages reads messages from IPC and forwards them to the TUI
func (c *IPCClient) readMessages() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.msgChan <- DisconnectedMsg{Error: nil}
		go c.reconnect()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				c.msgChan <- DisconnectedMsg{Error: err}
			}
			return
		}

		// Trim newline
		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}

		// Parse base message to determine type
		var base BaseMessage
		if err := json.Unmarshal(line, &base); err != nil {
			c.msgChan <- ErrorMsg{Error: fmt.Errorf("invalid message: %w", err)}
			continue
		}

		switch base.Type {
		case MsgTypeStatus:
			var status StatusMessage
			if err := json.Unmarshal(line, &status); err != nil {
				continue
			}
			c.msgChan <- DaemonStatusMsg{
				State:    status.State,
				KeyCount: status.KeyCount,
			}

		case MsgTypeError:
			var errMsg ErrorMessage
			if err := json.Unmarshal(line, &errMsg); err != nil {
				continue
			}
			c.msgChan <- ErrorMsg{Error: fmt.Errorf("%s", errMsg.Error)}

		case MsgTypeKeysList:
			var keysList KeysListMessage
			if err := json.Unmarshal(line, &keysList); err != nil {
				continue
			}
			keys := make([]KeyInfo, 0, len(keysList.Keys))
			for _, k := range keysList.Keys {
				keys = append(keys, KeyInfo{
					KeyID:             k.KeyID,
					Kind:              k.KeyType,
					Label:             k.Label,
					Status:            lifecycle.Status(k.Status),
					PublicKey:         k.PublicKey,
					CreatedAt:         k.CreatedAt,
					LastUsed:          k.LastUsed,
					VaultAssociations: k.VaultAssociations,
					DeactivatedAt:     k.DeactivatedAt,
				})
			}
			stats := make(map[string]lifecycle.VaultStats, len(keysList.Vaults))
			for _, v := range keysList.Vaults {
				stats[v.VaultID] = lifecycle.VaultStats{
					VaultID:         v.VaultID,
					EncryptionCount: v.EncryptionCount,
				}
			}
			c.msgChan <- KeysListMsg{Keys: keys, VaultStats: stats}

		case MsgTypeDeactivateResult:
			var result DeactivateResultMessage
			if err := json.Unmarshal(line, &result); err != nil {
				continue
			}
			c.msgChan <- DeactivateResultMsg{
				Success:             result.Success,
				KeyID:               result.KeyID,
				NewStatus:           result.NewStatus,
				DeletionScheduledAt: result.DeletionScheduledAt,
				Error:               result.Error,
			}

		case MsgTypeDeleteResult:
			var result DeleteResultMessage
			if err := json.Unmarshal(line, &result); err != nil {
				continue
			}
			c.msgChan <- DeleteResultMsg{
				Success: result.Success,
				KeyID:   result.KeyID,
				Error:   result.Error,
			}

		case MsgTypeRestoreResult:
			var result RestoreResultMessage
			if err := json.Unmarshal(line, &result); err != nil {
				continue
			}
			c.msgChan <- RestoreResultMsg{
				Success:   result.Success,
				KeyID:     result.KeyID,
				NewStatus: result.NewStatus,
				Error:     result.Error,
			}

		case MsgTypeUpdateLabelResult:
			var result UpdateLabelResultMessage
			if err := json.Unmarshal(line, &result); err != nil {
				continue
			}
			c.msgChan <- UpdateLabelResultMsg{
				Success:      result.Success,
				KeyID:        result.KeyID,
				UpdatedLabel: result.UpdatedLabel,
				Error:        result.Error,
			}

		case MsgTypeKeyDetails:
			var details KeyDetailsMessage
			if err := json.Unmarshal(line, &details); err != nil {
				continue
			}
			msg := KeyDetailsMsg{
				Success:       details.Success,
				StatusHistory: details.StatusHistory,
				Error:         details.Error,
			}
			if details.Key != nil {
				msg.Key = &KeyInfo{
					KeyID:             details.Key.KeyID,
					Kind:              details.Key.KeyType,
					Label:             details.Key.Label,
					Status:            lifecycle.Status(details.Key.Status),
					PublicKey:         details.Key.PublicKey,
					CreatedAt:         details.Key.CreatedAt,
					LastUsed:          details.Key.LastUsed,
					VaultAssociations: details.Key.VaultAssociations,
					DeactivatedAt:     details.Key.DeactivatedAt,
				}
			}
			c.msgChan <- msg

		case MsgTypeExportResult:
			var result ExportResultMessage
			if err := json.Unmarshal(line, &result); err != nil {
				continue
			}
			c.msgChan <- ExportResultMsg{
				Success:   result.Success,
				KeyID:     result.KeyID,
				Label:     result.Label,
				PublicKey: result.PublicKey,
				Error:     result.Error,
			}

		case MsgTypeKeysChanged:
			var keysChanged KeysChangedMessage
			if err := json.Unmarshal(line, &keysChanged); err != nil {
				continue
			}
			c.msgChan <- KeysChangedMsg{
				KeyCount: keysChanged.KeyCount,
			}
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
func (c *IPCClient) reconnect() {
	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	delay := c.reconnectDelay
	c.mu.Unlock()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		// Wait before attempting reconnection
		time.Sleep(delay)

		// Check if we're still supposed to reconnect
		c.mu.Lock()
		if c.connected {
			c.reconnecting = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		// Attempt connection
		err := c.Connect()
		if err == nil {
			// Success - reset delay and exit
			c.mu.Lock()
			c.reconnecting = false
			c.reconnectDelay = 1 * time.Second
			c.mu.Unlock()

			c.msgChan <- ConnectedMsg{}
			return
		}

		// Failed - increase delay with exponential backoff
		c.mu.Lock()
		delay = delay * 2
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
		c.mu.Unlock()

		// Notify TUI of reconnection attempt
		c.msgChan <- ReconnectingMsg{Delay: delay}
	}
}

// ListenForMessages returns a tea.Cmd that listens for IPC messages
func (c *IPCClient) ListenForMessages() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.msgChan:
			return msg
		case <-c.done:
			return nil
		}
	}
}

// Global client instance (for use with tea.Cmd functions)
var globalIPCClient *IPCClient

// SetGlobalIPCClient sets the global IPC client
func SetGlobalIPCClient(client *IPCClient) {
	globalIPCClient = client
}

// ConnectCmd returns a tea.Cmd that connects to the daemon via IPC
func ConnectCmd(ipcPath string) tea.Cmd {
	return func() tea.Msg {
		client := NewIPCClient(ipcPath)
		SetGlobalIPCClient(client)

		if err := client.Connect(); err != nil {
			return DisconnectedMsg{Error: err}
		}
		return ConnectedMsg{}
	}
}

// ReconnectCmd returns a tea.Cmd that forces a reconnection attempt
func ReconnectCmd(ipcPath string) tea.Cmd {
	return func() tea.Msg {
		// Close existing client if any
		if globalIPCClient != nil {
			globalIPCClient.Disconnect()
		}

		// Create new client and connect
		client := NewIPCClient(ipcPath)
		SetGlobalIPCClient(client)

		if err := client.Connect(); err != nil {
			return DisconnectedMsg{Error: err}
		}
		return ConnectedMsg{}
	}
}

// WaitForMessageCmd returns a tea.Cmd that waits for the next message
func WaitForMessageCmd() tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return nil
		}
		return globalIPCClient.ListenForMessages()()
	}
}

// SendListKeys sends a request to list all keys
func (c *IPCClient) SendListKeys() error {
	msg := ListKeysMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeListKeys,
			ID:   fmt.Sprintf("list-%d", time.Now().UnixNano()),
		},
	}
	return c.sendMessage(msg)
}

// SendDeactivateKey sends a deactivation request
func (c *IPCClient) SendDeactivateKey(keyID, reason string, deleteImmediately bool) error {
	msg := DeactivateKeyMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeDeactivateKey,
			ID:   fmt.Sprintf("deact-%d", time.Now().UnixNano()),
		},
		KeyID:             keyID,
		Reason:            reason,
		DeleteImmediately: deleteImmediately,
	}
	return c.sendMessage(msg)
}

// SendDeleteKey sends a permanent delete request
func (c *IPCClient) SendDeleteKey(keyID, reason string) error {
	msg := DeleteKeyMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeDeleteKey,
			ID:   fmt.Sprintf("del-%d", time.Now().UnixNano()),
		},
		KeyID:  keyID,
		Reason: reason,
	}
	return c.sendMessage(msg)
}

// SendRestoreKey sends a restore request for a deactivated key
func (c *IPCClient) SendRestoreKey(keyID string) error {
	msg := RestoreKeyMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeRestoreKey,
			ID:   fmt.Sprintf("restore-%d", time.Now().UnixNano()),
		},
		KeyID: keyID,
	}
	return c.sendMessage(msg)
}

// SendUpdateLabel sends a rename request
func (c *IPCClient) SendUpdateLabel(keyID, newLabel string) error {
	msg := UpdateLabelMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeUpdateLabel,
			ID:   fmt.Sprintf("label-%d", time.Now().UnixNano()),
		},
		KeyID:    keyID,
		NewLabel: newLabel,
	}
	return c.sendMessage(msg)
}

// SendGetKeyDetails sends a request for detailed key information
func (c *IPCClient) SendGetKeyDetails(keyID string) error {
	msg := GetKeyDetailsMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeGetKeyDetails,
			ID:   fmt.Sprintf("details-%d", time.Now().UnixNano()),
		},
		KeyID: keyID,
	}
	return c.sendMessage(msg)
}

// SendExportKey sends a request for a key's public export material
func (c *IPCClient) SendExportKey(keyID string) error {
	msg := ExportKeyMessage{
		BaseMessage: BaseMessage{
			Type: MsgTypeExportKey,
			ID:   fmt.Sprintf("exp-%d", time.Now().UnixNano()),
		},
		KeyID: keyID,
	}
	return c.sendMessage(msg)
}

// SendListKeysCmd returns a tea.Cmd that sends a list keys request
func SendListKeysCmd() tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendListKeys(); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}

// SendDeactivateKeyCmd returns a tea.Cmd that sends a deactivation request
func SendDeactivateKeyCmd(keyID, reason string, deleteImmediately bool) tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendDeactivateKey(keyID, reason, deleteImmediately); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}

// SendDeleteKeyCmd returns a tea.Cmd that sends a permanent delete request
func SendDeleteKeyCmd(keyID, reason string) tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendDeleteKey(keyID, reason); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}

// SendRestoreKeyCmd returns a tea.Cmd that sends a restore request
func SendRestoreKeyCmd(keyID string) tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendRestoreKey(keyID); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}

// SendUpdateLabelCmd returns a tea.Cmd that sends a rename request
func SendUpdateLabelCmd(keyID, newLabel string) tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendUpdateLabel(keyID, newLabel); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}

// SendGetKeyDetailsCmd returns a tea.Cmd that sends a get key details request
func SendGetKeyDetailsCmd(keyID string) tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendGetKeyDetails(keyID); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}

// SendExportKeyCmd returns a tea.Cmd that sends an export request
func SendExportKeyCmd(keyID string) tea.Cmd {
	return func() tea.Msg {
		if globalIPCClient == nil {
			return ErrorMsg{Error: fmt.Errorf("not connected")}
		}
		if err := globalIPCClient.SendExportKey(keyID); err != nil {
			return ErrorMsg{Error: err}
		}
		return nil
	}
}
