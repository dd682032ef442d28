// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/keywarden/keywarden/internal/command"
	"github.com/keywarden/keywarden/internal/fsutil"
	"github.com/keywarden/keywarden/internal/registry"
	"github.com/keywarden/keywarden/internal/util"
	"github.com/keywarden/keywarden/internal/version"
)

func main() {
	// Handle early-exit flags before any other output
	printVersion := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("d", "", "Data directory (required, or set KEYWARDEN_DATA)")
	flag.Parse()
	if *printVersion {
		fmt.Printf("kwardend %s\n", version.String())
		os.Exit(0)
	}

	// Resolve data directory from -d flag or KEYWARDEN_DATA env var
	resolvedDataDir := util.RequireDataDir(*dataDir)

	util.InitLogger()

	fmt.Println("Keywarden - Key Lifecycle Daemon")
	fmt.Println("============================================")
	fmt.Printf("Data directory: %s\n", resolvedDataDir)

	// Load config file from data directory
	config := util.LoadServerConfig(resolvedDataDir)
	storeDir := config.EffectiveStoreDir(resolvedDataDir)

	if err := fsutil.MkdirAll(storeDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create store directory %s: %v\n", storeDir, err)
		os.Exit(1)
	}
	if err := fsutil.MkdirAll(registry.KeysDir(storeDir)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create keys directory: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Store directory: %s\n", storeDir)

	// Parse purge interval from config
	purgeInterval, err := util.ParsePurgeInterval(config.PurgeInterval)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Invalid purge_interval in config: %v, sweeping disabled\n", err)
		purgeInterval = 0
	}
	if purgeInterval == 0 {
		fmt.Println("⚠️  Grace period sweep: disabled (expired keys are never purged automatically)")
	} else {
		fmt.Printf("Grace period sweep: every %s\n", purgeInterval)
	}

	// Audit log
	if err := fsutil.MkdirAll(filepath.Dir(config.AuditLogPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create audit log directory: %v\n", err)
		os.Exit(1)
	}
	auditLog, err := NewAuditLogger(config.AuditLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open audit log: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Audit logging enabled (%s)\n", config.AuditLogPath)

	// Validate the registry loads before serving
	reg, err := registry.Load(storeDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load key registry: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Key registry loaded (%d keys)\n", len(reg.Keys))

	svc := command.NewService(storeDir, util.Logger)

	// IPC server
	ipcServer := NewIPCServer(config.IPCPath, svc, storeDir, auditLog)
	if err := ipcServer.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start IPC server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ IPC listening on %s\n", config.IPCPath)

	auditLog.Log(AuditEntry{Event: AuditServerStart, KeyCount: len(reg.Keys), Principal: "system"})

	// Background workers share one context, cancelled on shutdown
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Registry file watcher
	if config.ShouldWatchStore() {
		if err := startRegistryWatcher(workerCtx, storeDir, ipcServer, auditLog); err != nil {
			fmt.Printf("⚠️  Warning: Failed to start file watcher: %v\n", err)
			fmt.Println("Clients will not be notified of external registry changes")
		}
	}

	// Grace period sweeper
	if purgeInterval > 0 {
		startSweeper(workerCtx, svc, ipcServer, auditLog, purgeInterval)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\n\n[*] Shutdown signal received, cleaning up...")

	workerCancel()

	fmt.Println("[*] Shutting down IPC server...")
	ipcServer.Stop()

	auditLog.Log(AuditEntry{Event: AuditServerStop, Principal: "system"})
	auditLog.Close()

	fmt.Println("[✓] Shutdown complete")
}
