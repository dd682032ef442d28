// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/keywarden/keywarden/internal/command"
	"github.com/keywarden/keywarden/internal/protocol"
	"github.com/keywarden/keywarden/internal/registry"
	"github.com/keywarden/keywarden/internal/util"
)

// IPCServer handles Unix socket connections for local IPC.
// Unlike a signing daemon there is no session state to guard, so any
// number of admin clients may connect; notifications are broadcast to
// all of them.
type IPCServer struct {
	listener net.Listener
	path     string

	svc      *command.Service
	storeDir string
	audit    *AuditLogger

	clients    map[net.Conn]struct{}
	clientLock sync.Mutex
}

// NewIPCServer creates a new IPC server.
func NewIPCServer(path string, svc *command.Service, storeDir string, audit *AuditLogger) *IPCServer {
	return &IPCServer{
		path:     path,
		svc:      svc,
		storeDir: storeDir,
		audit:    audit,
		clients:  make(map[net.Conn]struct{}),
	}
}

// Start begins listening on the Unix socket.
func (s *IPCServer) Start() error {
	// Security: Check for symlink attacks and ownership issues before removing
	if err := s.validateSocketPath(); err != nil {
		return err
	}

	// Warn if socket path is in a world-writable directory
	s.warnIfInsecureDirectory()

	// Remove existing socket file if present
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on IPC socket: %w", err)
	}

	// Set socket permissions (only owner can access)
	if err := os.Chmod(s.path, 0600); err != nil {
		_ = listener.Close() // Best-effort cleanup
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	go s.acceptLoop()
	return nil
}

// validateSocketPath checks for symlink attacks and ownership issues.
// This prevents an attacker from:
// 1. Creating a symlink at the socket path pointing to a sensitive file
// 2. Replacing a socket with one they control
func (s *IPCServer) validateSocketPath() error {
	info, err := os.Lstat(s.path)
	if os.IsNotExist(err) {
		// Socket doesn't exist yet - safe to create
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat socket path: %w", err)
	}

	// Check for symlink attack
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("SECURITY: socket path is a symlink (possible attack): %s", s.path)
	}

	// Verify ownership - socket must be owned by current user
	stat, ok := info.Sys().(*syscall.Stat_t)
	if ok {
		uid := os.Getuid()
		if uid < 0 {
			return fmt.Errorf("invalid UID: %d", uid)
		}
		currentUID := uint32(uid) // #nosec G115 - UIDs on Linux are 32-bit, safe conversion
		if stat.Uid != currentUID {
			return fmt.Errorf("SECURITY: socket owned by different user (uid %d, expected %d): %s",
				stat.Uid, currentUID, s.path)
		}
	}

	return nil
}

// warnIfInsecureDirectory prints a warning if the socket is in a world-writable directory.
func (s *IPCServer) warnIfInsecureDirectory() {
	dir := filepath.Dir(s.path)

	// Check for common world-writable directories
	if strings.HasPrefix(dir, "/tmp") || strings.HasPrefix(dir, "/var/tmp") {
		fmt.Printf("⚠️  WARNING: IPC socket in world-writable directory: %s\n", s.path)
		fmt.Printf("   Consider using $XDG_RUNTIME_DIR or $KEYWARDEN_DATA for better security\n")
		return
	}

	// Check actual directory permissions
	info, err := os.Stat(dir)
	if err != nil {
		return // Can't check, skip warning
	}

	// Check if directory is world-writable (others have write permission)
	if info.Mode().Perm()&0002 != 0 {
		fmt.Printf("⚠️  WARNING: IPC socket directory is world-writable: %s\n", dir)
		fmt.Printf("   This may allow other users to interfere with the socket\n")
	}
}

// Stop closes the IPC server.
func (s *IPCServer) Stop() {
	if s.listener != nil {
		_ = s.listener.Close() // Best-effort cleanup
	}
	s.clientLock.Lock()
	for conn := range s.clients {
		_ = conn.Close() // Best-effort cleanup
	}
	s.clients = make(map[net.Conn]struct{})
	s.clientLock.Unlock()
	// Clean up socket file
	_ = os.Remove(s.path) // Best-effort cleanup
}

// acceptLoop accepts incoming IPC connections.
func (s *IPCServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed
			return
		}

		s.clientLock.Lock()
		s.clients[conn] = struct{}{}
		s.clientLock.Unlock()

		fmt.Println("✓ kwadmin client connected via IPC")
		go s.handleClient(conn)
	}
}

// handleClient handles a single IPC client connection.
func (s *IPCServer) handleClient(conn net.Conn) {
	defer func() {
		s.clientLock.Lock()
		delete(s.clients, conn)
		s.clientLock.Unlock()
		_ = conn.Close() // Best-effort cleanup
		fmt.Println("kwadmin client disconnected")
	}()

	ipcConn := &IPCConn{conn: conn, reader: bufio.NewReader(conn)}

	// Send initial status on connect
	s.sendStatus(ipcConn)

	// Message loop
	for {
		line, err := ipcConn.reader.ReadBytes('\n')
		if err != nil {
			return
		}

		// Trim newline
		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}

		// Parse base message
		var base protocol.BaseMessage
		if err := json.Unmarshal(line, &base); err != nil {
			s.sendError(ipcConn, "", "invalid message format", "")
			continue
		}

		// Handle message based on type
		s.handleMessage(ipcConn, base.Type, base.ID, line)
	}
}

// sendStatus sends the current daemon status.
func (s *IPCServer) sendStatus(conn *IPCConn) {
	keyCount := 0
	if reg, err := registry.Load(s.storeDir); err == nil {
		keyCount = len(reg.Keys)
	}

	status := protocol.StatusMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeStatus},
		State:       "ready",
		KeyCount:    keyCount,
	}
	_ = conn.WriteJSON(status)
}

// sendError sends an error message.
func (s *IPCServer) sendError(conn *IPCConn, requestID, errMsg, code string) {
	msg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeError,
			ID:   requestID,
		},
		Error: errMsg,
		Code:  code,
	}
	_ = conn.WriteJSON(msg)
}

// handleMessage routes messages to the appropriate handler.
func (s *IPCServer) handleMessage(conn *IPCConn, msgType, requestID string, raw []byte) {
	switch msgType {
	case protocol.MsgTypeListKeys:
		var msg protocol.ListKeysMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid list keys message", "")
			return
		}
		s.handleListKeys(conn, msg.ID)

	case protocol.MsgTypeDeactivateKey:
		var msg protocol.DeactivateKeyMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid deactivate key message", "")
			return
		}
		s.handleDeactivateKey(conn, &msg)

	case protocol.MsgTypeDeleteKey:
		var msg protocol.DeleteKeyMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid delete key message", "")
			return
		}
		s.handleDeleteKey(conn, &msg)

	case protocol.MsgTypeRestoreKey:
		var msg protocol.RestoreKeyMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid restore key message", "")
			return
		}
		s.handleRestoreKey(conn, &msg)

	case protocol.MsgTypeUpdateLabel:
		var msg protocol.UpdateLabelMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid update label message", "")
			return
		}
		s.handleUpdateLabel(conn, &msg)

	case protocol.MsgTypeGetKeyDetails:
		var msg protocol.GetKeyDetailsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid get key details message", "")
			return
		}
		s.handleGetKeyDetails(conn, &msg)

	case protocol.MsgTypeExportKey:
		var msg protocol.ExportKeyMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, requestID, "invalid export key message", "")
			return
		}
		s.handleExportKey(conn, &msg)

	default:
		s.sendError(conn, requestID, "unknown message type: "+msgType, "")
	}
}

// keyInfoFromEntry converts a registry entry to its wire representation.
func keyInfoFromEntry(e *registry.KeyEntry) protocol.KeyInfo {
	return protocol.KeyInfo{
		KeyID:             e.ID,
		KeyType:           string(e.Kind),
		Label:             e.Label,
		Status:            string(e.Status),
		PublicKey:         e.EncryptionRecipient(),
		CreatedAt:         e.CreatedAt,
		LastUsed:          e.LastUsed,
		VaultAssociations: e.VaultAssociations,
		DeactivatedAt:     e.DeactivatedAt,
	}
}

// handleListKeys handles key listing requests. The reply carries the
// vault statistics snapshot alongside the keys so the client can derive
// eligibility without a second round trip.
func (s *IPCServer) handleListKeys(conn *IPCConn, requestID string) {
	reg, err := registry.Load(s.storeDir)
	if err != nil {
		s.sendError(conn, requestID, "failed to load key registry: "+err.Error(), string(command.ErrInternal))
		return
	}

	stats, err := registry.LoadVaultStats(s.storeDir)
	if err != nil {
		util.Logger.Warn("failed to load vault statistics", "error", err)
		stats = nil
	}

	entries := reg.Sorted()
	keysList := make([]protocol.KeyInfo, 0, len(entries))
	for _, e := range entries {
		keysList = append(keysList, keyInfoFromEntry(e))
	}

	vaults := make([]protocol.VaultInfo, 0, len(stats))
	for _, v := range stats {
		vaults = append(vaults, protocol.VaultInfo{
			VaultID:         v.VaultID,
			EncryptionCount: v.EncryptionCount,
		})
	}

	result := protocol.KeysListMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeKeysList,
			ID:   requestID,
		},
		Keys:   keysList,
		Vaults: vaults,
	}
	_ = conn.WriteJSON(result)
}

// handleDeactivateKey handles key deactivation requests.
func (s *IPCServer) handleDeactivateKey(conn *IPCConn, msg *protocol.DeactivateKeyMessage) {
	result := protocol.DeactivateResultMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeDeactivateResult,
			ID:   msg.ID,
		},
	}

	res, err := s.svc.DeactivateKey(msg.KeyID, msg.Reason, msg.DeleteImmediately)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		s.audit.Log(AuditEntry{Event: AuditCommandFailed, KeyID: msg.KeyID, Error: err.Error(), Principal: "user"})
		_ = conn.WriteJSON(result)
		return
	}

	result.Success = true
	result.KeyID = res.KeyID
	result.NewStatus = string(res.NewStatus)
	result.DeactivatedAt = &res.DeactivatedAt
	result.DeletionScheduledAt = res.DeletionScheduledAt
	_ = conn.WriteJSON(result)

	event := AuditKeyDeactivated
	if msg.DeleteImmediately {
		event = AuditKeyDeleted
	}
	s.audit.Log(AuditEntry{
		Event:     event,
		KeyID:     res.KeyID,
		Label:     res.Label,
		NewStatus: string(res.NewStatus),
		Reason:    msg.Reason,
		Principal: "user",
	})
	s.NotifyKeysChanged()
}

// handleDeleteKey handles permanent key deletion requests.
func (s *IPCServer) handleDeleteKey(conn *IPCConn, msg *protocol.DeleteKeyMessage) {
	result := protocol.DeleteResultMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeDeleteResult,
			ID:   msg.ID,
		},
	}

	res, err := s.svc.DeleteKey(msg.KeyID, msg.Reason)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		s.audit.Log(AuditEntry{Event: AuditCommandFailed, KeyID: msg.KeyID, Error: err.Error(), Principal: "user"})
		_ = conn.WriteJSON(result)
		return
	}

	result.Success = true
	result.KeyID = res.KeyID
	result.NewStatus = string(res.NewStatus)
	result.DeletedAt = &res.DeletedAt
	_ = conn.WriteJSON(result)

	s.audit.Log(AuditEntry{
		Event:     AuditKeyDeleted,
		KeyID:     res.KeyID,
		Label:     res.Label,
		NewStatus: string(res.NewStatus),
		Reason:    msg.Reason,
		Principal: "user",
	})
	s.NotifyKeysChanged()
}

// handleRestoreKey handles key restoration requests.
func (s *IPCServer) handleRestoreKey(conn *IPCConn, msg *protocol.RestoreKeyMessage) {
	result := protocol.RestoreResultMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeRestoreResult,
			ID:   msg.ID,
		},
	}

	res, err := s.svc.RestoreKey(msg.KeyID)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		s.audit.Log(AuditEntry{Event: AuditCommandFailed, KeyID: msg.KeyID, Error: err.Error(), Principal: "user"})
		_ = conn.WriteJSON(result)
		return
	}

	result.Success = true
	result.KeyID = res.KeyID
	result.NewStatus = string(res.NewStatus)
	_ = conn.WriteJSON(result)

	s.audit.Log(AuditEntry{
		Event:     AuditKeyRestored,
		KeyID:     res.KeyID,
		Label:     res.Label,
		NewStatus: string(res.NewStatus),
		Principal: "user",
	})
	s.NotifyKeysChanged()
}

// handleUpdateLabel handles key rename requests.
func (s *IPCServer) handleUpdateLabel(conn *IPCConn, msg *protocol.UpdateLabelMessage) {
	result := protocol.UpdateLabelResultMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeUpdateLabelResult,
			ID:   msg.ID,
		},
	}

	res, err := s.svc.UpdateKeyLabel(msg.KeyID, msg.NewLabel)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		s.audit.Log(AuditEntry{Event: AuditCommandFailed, KeyID: msg.KeyID, Error: err.Error(), Principal: "user"})
		_ = conn.WriteJSON(result)
		return
	}

	result.Success = true
	result.KeyID = res.KeyID
	result.UpdatedLabel = res.UpdatedLabel
	_ = conn.WriteJSON(result)

	s.audit.Log(AuditEntry{
		Event:     AuditLabelUpdated,
		KeyID:     res.KeyID,
		Label:     res.UpdatedLabel,
		Principal: "user",
	})
	s.NotifyKeysChanged()
}

// handleGetKeyDetails handles key detail requests.
func (s *IPCServer) handleGetKeyDetails(conn *IPCConn, msg *protocol.GetKeyDetailsMessage) {
	result := protocol.KeyDetailsMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeKeyDetails,
			ID:   msg.ID,
		},
	}

	reg, err := registry.Load(s.storeDir)
	if err != nil {
		result.Success = false
		result.Error = "failed to load key registry: " + err.Error()
		_ = conn.WriteJSON(result)
		return
	}

	entry := reg.Get(msg.KeyID)
	if entry == nil {
		result.Success = false
		result.Error = fmt.Sprintf("key %q not found", msg.KeyID)
		_ = conn.WriteJSON(result)
		return
	}

	info := keyInfoFromEntry(entry)
	history := make([]protocol.StatusHistoryInfo, 0, len(entry.StatusHistory))
	for _, h := range entry.StatusHistory {
		history = append(history, protocol.StatusHistoryInfo{
			Status:    string(h.Status),
			Timestamp: h.Timestamp,
			Reason:    h.Reason,
			ChangedBy: h.ChangedBy,
		})
	}

	result.Success = true
	result.Key = &info
	result.StatusHistory = history
	_ = conn.WriteJSON(result)
}

// handleExportKey handles export requests for a key's public material.
func (s *IPCServer) handleExportKey(conn *IPCConn, msg *protocol.ExportKeyMessage) {
	result := protocol.ExportResultMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeExportResult,
			ID:   msg.ID,
		},
	}

	reg, err := registry.Load(s.storeDir)
	if err != nil {
		result.Success = false
		result.Error = "failed to load key registry: " + err.Error()
		_ = conn.WriteJSON(result)
		return
	}

	entry := reg.Get(msg.KeyID)
	if entry == nil {
		result.Success = false
		result.Error = fmt.Sprintf("key %q not found", msg.KeyID)
		_ = conn.WriteJSON(result)
		return
	}

	pub := entry.EncryptionRecipient()
	if pub == "" {
		result.Success = false
		result.Error = "key has no exportable public material"
		_ = conn.WriteJSON(result)
		return
	}

	result.Success = true
	result.KeyID = entry.ID
	result.Label = entry.Label
	result.PublicKey = pub
	_ = conn.WriteJSON(result)

	s.audit.Log(AuditEntry{
		Event:     AuditKeyExported,
		KeyID:     entry.ID,
		Label:     entry.Label,
		Principal: "user",
	})
}

// NotifyKeysChanged broadcasts a keys_changed notification to all
// connected IPC clients so they refresh their key lists.
func (s *IPCServer) NotifyKeysChanged() {
	keyCount := 0
	if reg, err := registry.Load(s.storeDir); err == nil {
		keyCount = len(reg.Keys)
	}

	msg := protocol.KeysChangedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeKeysChanged},
		KeyCount:    keyCount,
	}

	s.clientLock.Lock()
	conns := make([]net.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientLock.Unlock()

	for _, conn := range conns {
		ipcConn := &IPCConn{conn: conn, reader: nil}
		_ = ipcConn.WriteJSON(msg) // Best-effort notification
	}
}

// IPCConn wraps a net.Conn with JSON read/write methods.
type IPCConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

// WriteJSON writes a JSON message followed by newline.
func (c *IPCConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.conn.Write(data)
	return err
}
