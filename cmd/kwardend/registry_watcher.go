// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keywarden/keywarden/internal/registry"
)

// startRegistryWatcher starts a file system watcher for the store
// directory. When registry.json or vaults.json changes on disk (an
// external tool edited the store) connected clients are told to refresh.
func startRegistryWatcher(ctx context.Context, storeDir string, ipc *IPCServer, audit *AuditLogger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory, not the file: atomic writes replace the
	// registry file by rename, which drops a watch on the file itself.
	if err := watcher.Add(storeDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch store directory: %w", err)
	}

	fmt.Println("✓ File watcher enabled - clients will be notified on registry changes")

	go func() {
		defer func() { _ = watcher.Close() }()

		// Debounce timer to avoid rapid notification storms
		var debounceTimer *time.Timer
		const debounceDelay = 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				// Shutdown signal received
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				name := filepath.Base(event.Name)
				if name != filepath.Base(registry.RegistryPath(storeDir)) &&
					name != filepath.Base(registry.VaultsPath(storeDir)) {
					continue
				}

				// React to Create, Write, Remove, and Rename events
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					// Reset debounce timer
					if debounceTimer != nil {
						debounceTimer.Stop()
					}

					debounceTimer = time.AfterFunc(debounceDelay, func() {
						keyCount := 0
						if reg, err := registry.Load(storeDir); err == nil {
							keyCount = len(reg.Keys)
						} else {
							fmt.Printf("⚠️  Error reloading registry: %v\n", err)
							return
						}
						audit.Log(AuditEntry{Event: AuditRegistryReload, KeyCount: keyCount, Principal: "system"})
						ipc.NotifyKeysChanged()
					})
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Printf("⚠️  File watcher error: %v\n", err)
			}
		}
	}()

	return nil
}
