// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/keywarden/keywarden/internal/command"
)

// startSweeper periodically destroys deactivated keys whose grace
// period has elapsed. Runs once at startup, then every interval until
// the context is cancelled.
func startSweeper(ctx context.Context, svc *command.Service, ipc *IPCServer, audit *AuditLogger, interval time.Duration) {
	sweep := func() {
		purged, err := svc.PurgeExpired()
		if err != nil {
			fmt.Printf("⚠️  Error sweeping expired keys: %v\n", err)
			return
		}
		if len(purged) == 0 {
			return
		}
		for _, id := range purged {
			audit.Log(AuditEntry{
				Event:     AuditKeyPurged,
				KeyID:     id,
				NewStatus: "destroyed",
				Reason:    "grace period expired",
				Principal: "system",
			})
		}
		ipc.NotifyKeysChanged()
	}

	go func() {
		sweep()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
}
