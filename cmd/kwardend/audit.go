// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/keywarden/keywarden/internal/fsutil"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const maxAuditLogSize = 10 * 1024 * 1024 // 10 MB

const (
	AuditKeyDeactivated AuditEventType = "KEY_DEACTIVATED"
	AuditKeyDeleted     AuditEventType = "KEY_DELETED"
	AuditKeyRestored    AuditEventType = "KEY_RESTORED"
	AuditKeyPurged      AuditEventType = "KEY_PURGED"
	AuditLabelUpdated   AuditEventType = "LABEL_UPDATED"
	AuditKeyExported    AuditEventType = "KEY_EXPORTED"
	AuditRegistryReload AuditEventType = "REGISTRY_RELOAD"
	AuditServerStart    AuditEventType = "SERVER_START"
	AuditServerStop     AuditEventType = "SERVER_STOP"
	AuditCommandFailed  AuditEventType = "COMMAND_FAILED"
)

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     AuditEventType `json:"event"`
	KeyID     string         `json:"key_id,omitempty"`
	Label     string         `json:"label,omitempty"`
	NewStatus string         `json:"new_status,omitempty"`
	Reason    string         `json:"reason,omitempty"`     // User-supplied or system reason
	Error     string         `json:"error,omitempty"`      // For failed commands
	KeyCount  int            `json:"key_count,omitempty"`  // For registry reload events
	Principal string         `json:"principal,omitempty"`  // "user" or "system"
}

// AuditLogger handles append-only audit logging
type AuditLogger struct {
	file    *os.File
	mu      sync.Mutex
	path    string
	written uint64
}

// NewAuditLogger creates a new audit logger
// Log file is opened in append-only mode
func NewAuditLogger(path string) (*AuditLogger, error) {
	// Open file in append-only mode, create if not exists
	file, err := fsutil.CreateFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	var written uint64
	if info, err := file.Stat(); err == nil {
		written = uint64(info.Size())
	}

	return &AuditLogger{file: file, path: path, written: written}, nil
}

// Log writes an audit entry
func (a *AuditLogger) Log(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Set timestamp if not provided
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	// Encode as JSON (one line per entry)
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to marshal audit entry: %v\n", err)
		return
	}

	// Rotate if this write would exceed the size limit
	line := append(data, '\n')
	if a.written+uint64(len(line)) > maxAuditLogSize {
		if err := a.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to rotate audit log: %v\n", err)
			// Continue writing to current file
		}
	}

	// Write with newline
	if _, err := a.file.Write(line); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write audit entry: %v\n", err)
		return
	}
	a.written += uint64(len(line))

	// Sync to disk immediately (important for audit trails)
	_ = a.file.Sync()
}

// rotate archives the current log file and opens a fresh one.
// Must be called with a.mu held.
func (a *AuditLogger) rotate() error {
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	if err := os.Rename(a.path, a.path+".1"); err != nil {
		// Reopen the original path so logging can continue
		a.file, _ = fsutil.CreateFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY)
		return fmt.Errorf("archive current log: %w", err)
	}

	file, err := fsutil.CreateFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY)
	if err != nil {
		return fmt.Errorf("open fresh log: %w", err)
	}
	a.file = file
	a.written = 0
	return nil
}

// Close closes the audit log file
func (a *AuditLogger) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		_ = a.file.Close()
	}
}
