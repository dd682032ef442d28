// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

// Package command implements the key management operations exposed over
// IPC: deactivation with a grace period, permanent deletion, restore and
// label updates. Every operation loads the registry, mutates it and
// saves it atomically; registry updates always land before key files are
// touched so a crash never leaves the registry claiming material that
// was already removed.
package command

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/keywarden/keywarden/internal/lifecycle"
	"github.com/keywarden/keywarden/internal/registry"
)

// MaxNewLabelLen caps labels set through rename. The registry itself
// tolerates longer labels from older versions.
const MaxNewLabelLen = 24

// Service executes key management commands against the store under
// DataDir. Now is swappable for tests and defaults to time.Now.
type Service struct {
	DataDir string
	Log     *slog.Logger
	Now     func() time.Time
}

// NewService builds a Service over dataDir.
func NewService(dataDir string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{DataDir: dataDir, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

// DeactivateResult reports a completed deactivation.
type DeactivateResult struct {
	KeyID     string
	Label     string
	NewStatus lifecycle.Status
	// Start of the grace period. For immediate deletion this is the
	// destruction time.
	DeactivatedAt time.Time
	// End of the grace period; nil when the key was destroyed outright.
	DeletionScheduledAt *time.Time
}

// DeactivateKey deactivates a key, starting the grace period, or
// destroys it outright when deleteImmediately is set. Deactivating an
// already deactivated key (or immediately deleting an already destroyed
// one) succeeds without changing anything.
func (s *Service) DeactivateKey(keyID, reason string, deleteImmediately bool) (*DeactivateResult, error) {
	if keyID == "" {
		return nil, errInvalid("key id must not be empty")
	}

	reg, err := registry.Load(s.DataDir)
	if err != nil {
		return nil, errInternal("failed to load key registry", err)
	}
	entry := reg.Get(keyID)
	if entry == nil {
		return nil, errNotFound(keyID)
	}

	if deleteImmediately {
		if reason == "" {
			reason = "user requested immediate deletion"
		}
		return s.destroyAndSave(reg, entry, reason)
	}

	if reason == "" {
		reason = "user requested deactivation"
	}

	// Idempotent: a second deactivation returns the existing schedule.
	if entry.Status == lifecycle.StatusDeactivated && entry.DeactivatedAt != nil {
		scheduled := entry.DeactivatedAt.AddDate(0, 0, lifecycle.GraceDays)
		s.Log.Info("key already deactivated", "key_id", keyID)
		return &DeactivateResult{
			KeyID:               keyID,
			Label:               entry.Label,
			NewStatus:           lifecycle.StatusDeactivated,
			DeactivatedAt:       *entry.DeactivatedAt,
			DeletionScheduledAt: &scheduled,
		}, nil
	}

	now := s.Now()
	if err := entry.Deactivate(reason, "user", now); err != nil {
		return nil, errState(err)
	}
	if err := reg.Save(s.DataDir); err != nil {
		return nil, errInternal("failed to save registry", err)
	}

	scheduled := now.AddDate(0, 0, lifecycle.GraceDays)
	s.Log.Info("key deactivated",
		"key_id", keyID,
		"deletion_scheduled_at", scheduled.Format(time.RFC3339))
	return &DeactivateResult{
		KeyID:               keyID,
		Label:               entry.Label,
		NewStatus:           lifecycle.StatusDeactivated,
		DeactivatedAt:       now,
		DeletionScheduledAt: &scheduled,
	}, nil
}

// DeleteResult reports a completed permanent deletion.
type DeleteResult struct {
	KeyID     string
	Label     string
	NewStatus lifecycle.Status
	DeletedAt time.Time
}

// DeleteKey destroys a key permanently. The registry entry stays,
// marked destroyed, as a tombstone for the audit trail; the encrypted
// key file is removed from disk. Deleting an already destroyed key
// succeeds. Destruction does not re-encrypt anything: copies of the key
// file made earlier can still open old envelopes.
func (s *Service) DeleteKey(keyID, reason string) (*DeleteResult, error) {
	if keyID == "" {
		return nil, errInvalid("key id must not be empty")
	}

	reg, err := registry.Load(s.DataDir)
	if err != nil {
		return nil, errInternal("failed to load key registry", err)
	}
	entry := reg.Get(keyID)
	if entry == nil {
		return nil, errNotFound(keyID)
	}
	if reason == "" {
		reason = "user requested permanent deletion"
	}

	res, err := s.destroyAndSave(reg, entry, reason)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{
		KeyID:     res.KeyID,
		Label:     res.Label,
		NewStatus: res.NewStatus,
		DeletedAt: res.DeactivatedAt,
	}, nil
}

// destroyAndSave marks the entry destroyed, saves the registry, then
// removes the key file. Registry first: if the file removal fails the
// registry still records the destruction and the file can be cleaned up
// by hand.
func (s *Service) destroyAndSave(reg *registry.Registry, entry *registry.KeyEntry, reason string) (*DeactivateResult, error) {
	now := s.Now()

	if entry.Status == lifecycle.StatusDestroyed {
		s.Log.Info("key already destroyed", "key_id", entry.ID)
		return &DeactivateResult{
			KeyID:         entry.ID,
			Label:         entry.Label,
			NewStatus:     lifecycle.StatusDestroyed,
			DeactivatedAt: now,
		}, nil
	}

	var keyFile string
	if entry.Kind == registry.KindPassphrase && entry.KeyFilename != "" {
		keyFile = filepath.Join(registry.KeysDir(s.DataDir), entry.KeyFilename)
	}

	if err := entry.Destroy(reason, "user", now); err != nil {
		return nil, errState(err)
	}
	if err := reg.Save(s.DataDir); err != nil {
		return nil, errInternal("failed to save registry", err)
	}

	if keyFile != "" {
		if err := os.Remove(keyFile); err != nil && !os.IsNotExist(err) {
			s.Log.Warn("failed to remove key file, registry already updated",
				"key_id", entry.ID, "path", keyFile, "error", err)
		}
	}

	s.Log.Info("key destroyed", "key_id", entry.ID)
	return &DeactivateResult{
		KeyID:         entry.ID,
		Label:         entry.Label,
		NewStatus:     lifecycle.StatusDestroyed,
		DeactivatedAt: now,
	}, nil
}

// RestoreResult reports a completed restore.
type RestoreResult struct {
	KeyID      string
	Label      string
	NewStatus  lifecycle.Status
	RestoredAt time.Time
}

// RestoreKey returns a deactivated key to its pre-deactivation status.
// Unlike deactivation this is not idempotent: restoring a key that is
// not deactivated is an error.
func (s *Service) RestoreKey(keyID string) (*RestoreResult, error) {
	if keyID == "" {
		return nil, errInvalid("key id must not be empty")
	}

	reg, err := registry.Load(s.DataDir)
	if err != nil {
		return nil, errInternal("failed to load key registry", err)
	}
	entry := reg.Get(keyID)
	if entry == nil {
		return nil, errNotFound(keyID)
	}

	now := s.Now()
	if err := entry.Restore("user restored key", "user", now); err != nil {
		return nil, errState(err)
	}
	if err := reg.Save(s.DataDir); err != nil {
		return nil, errInternal("failed to save registry", err)
	}

	s.Log.Info("key restored", "key_id", keyID, "status", string(entry.Status))
	return &RestoreResult{
		KeyID:      keyID,
		Label:      entry.Label,
		NewStatus:  entry.Status,
		RestoredAt: now,
	}, nil
}

// UpdateLabelResult reports a completed rename.
type UpdateLabelResult struct {
	KeyID        string
	UpdatedLabel string
}

// UpdateKeyLabel renames a key. Only unattached keys can be renamed:
// labels of attached keys are embedded in vault manifests and renaming
// would desynchronize them. Labels stay unique across the registry.
// Renaming to the current label succeeds without a registry write.
func (s *Service) UpdateKeyLabel(keyID, newLabel string) (*UpdateLabelResult, error) {
	if keyID == "" {
		return nil, errInvalid("key id must not be empty")
	}
	trimmed := strings.TrimSpace(newLabel)
	if trimmed == "" {
		return nil, errInvalid("new label must not be empty")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxNewLabelLen {
		return nil, errInvalid(fmt.Sprintf("label is too long (%d characters, maximum %d)", n, MaxNewLabelLen))
	}

	reg, err := registry.Load(s.DataDir)
	if err != nil {
		return nil, errInternal("failed to load key registry", err)
	}
	entry := reg.Get(keyID)
	if entry == nil {
		return nil, errNotFound(keyID)
	}

	if len(entry.VaultAssociations) > 0 {
		return nil, &Error{
			Code:    ErrInvalidKeyState,
			Message: "cannot rename a key that is attached to vaults",
		}
	}

	if trimmed == entry.Label {
		s.Log.Info("label unchanged", "key_id", keyID)
		return &UpdateLabelResult{KeyID: keyID, UpdatedLabel: trimmed}, nil
	}

	if dup := reg.FindByLabel(trimmed); dup != nil && dup.ID != keyID {
		return nil, errInvalid(fmt.Sprintf("a key labeled %q already exists", trimmed))
	}

	old := entry.Label
	entry.Label = trimmed
	if err := reg.Save(s.DataDir); err != nil {
		return nil, errInternal("failed to save registry", err)
	}

	s.Log.Info("key label updated", "key_id", keyID, "old_label", old, "new_label", trimmed)
	return &UpdateLabelResult{KeyID: keyID, UpdatedLabel: trimmed}, nil
}

// PurgeExpired destroys every deactivated key whose grace period has
// elapsed. Returns the ids of purged keys. Used by the daemon sweeper.
func (s *Service) PurgeExpired() ([]string, error) {
	reg, err := registry.Load(s.DataDir)
	if err != nil {
		return nil, errInternal("failed to load key registry", err)
	}

	now := s.Now()
	var purged []string
	var files []string
	for _, entry := range reg.Sorted() {
		if entry.Status != lifecycle.StatusDeactivated || entry.DeactivatedAt == nil {
			continue
		}
		if !lifecycle.PurgeDue(*entry.DeactivatedAt, now) {
			continue
		}
		if entry.Kind == registry.KindPassphrase && entry.KeyFilename != "" {
			files = append(files, filepath.Join(registry.KeysDir(s.DataDir), entry.KeyFilename))
		}
		if err := entry.Destroy("grace period expired", "system", now); err != nil {
			s.Log.Warn("failed to destroy expired key", "key_id", entry.ID, "error", err)
			continue
		}
		purged = append(purged, entry.ID)
	}
	if len(purged) == 0 {
		return nil, nil
	}

	if err := reg.Save(s.DataDir); err != nil {
		return nil, errInternal("failed to save registry", err)
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			s.Log.Warn("failed to remove key file during purge", "path", f, "error", err)
		}
	}

	s.Log.Info("purged expired keys", "count", len(purged))
	return purged, nil
}
