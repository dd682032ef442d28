// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package command

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keywarden/keywarden/internal/fsutil"
	"github.com/keywarden/keywarden/internal/lifecycle"
	"github.com/keywarden/keywarden/internal/registry"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewService(dir, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	return svc, dir
}

func seedKey(t *testing.T, dir string, e *registry.KeyEntry) string {
	t.Helper()
	reg, err := registry.Load(dir)
	require.NoError(t, err)
	id := reg.Add(e)
	require.NoError(t, reg.Save(dir))
	return id
}

func seedKeyFile(t *testing.T, dir, filename string) string {
	t.Helper()
	keysDir := registry.KeysDir(dir)
	require.NoError(t, fsutil.MkdirAll(keysDir))
	path := filepath.Join(keysDir, filename)
	require.NoError(t, os.WriteFile(path, []byte("AGE-SECRET-KEY-TEST"), 0600))
	return path
}

func activeKey(label string, vaults ...string) *registry.KeyEntry {
	return &registry.KeyEntry{
		Kind:              registry.KindPassphrase,
		Label:             label,
		CreatedAt:         time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		PublicKey:         "age1test",
		KeyFilename:       label + ".agekey.enc",
		Status:            lifecycle.StatusActive,
		VaultAssociations: vaults,
	}
}

func TestDeactivateKeyStartsGracePeriod(t *testing.T) {
	svc, dir := newTestService(t)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	id := seedKey(t, dir, activeKey("laptop", "vault-1"))

	res, err := svc.DeactivateKey(id, "", false)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDeactivated, res.NewStatus)
	assert.True(t, res.DeactivatedAt.Equal(now))
	require.NotNil(t, res.DeletionScheduledAt)
	assert.True(t, res.DeletionScheduledAt.Equal(now.AddDate(0, 0, 30)))

	reg, err := registry.Load(dir)
	require.NoError(t, err)
	e := reg.Get(id)
	assert.Equal(t, lifecycle.StatusDeactivated, e.Status)
	assert.Equal(t, lifecycle.StatusActive, e.PreviousStatus)
	require.NotNil(t, e.DeactivatedAt)
}

func TestDeactivateKeyIsIdempotent(t *testing.T) {
	svc, dir := newTestService(t)
	first := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return first }
	id := seedKey(t, dir, activeKey("laptop"))

	_, err := svc.DeactivateKey(id, "", false)
	require.NoError(t, err)

	// Second call a day later reports the original schedule.
	svc.Now = func() time.Time { return first.Add(24 * time.Hour) }
	res, err := svc.DeactivateKey(id, "", false)
	require.NoError(t, err)
	assert.True(t, res.DeactivatedAt.Equal(first))
	require.NotNil(t, res.DeletionScheduledAt)
	assert.True(t, res.DeletionScheduledAt.Equal(first.AddDate(0, 0, 30)))

	reg, err := registry.Load(dir)
	require.NoError(t, err)
	assert.Len(t, reg.Get(id).StatusHistory, 1, "idempotent call must not append history")
}

func TestDeactivateImmediateDestroysAndRemovesFile(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("laptop", "vault-1"))
	keyFile := seedKeyFile(t, dir, "laptop.agekey.enc")

	res, err := svc.DeactivateKey(id, "", true)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDestroyed, res.NewStatus)
	assert.Nil(t, res.DeletionScheduledAt)

	_, statErr := os.Stat(keyFile)
	assert.True(t, os.IsNotExist(statErr), "key file should be removed")

	reg, err := registry.Load(dir)
	require.NoError(t, err)
	e := reg.Get(id)
	require.NotNil(t, e, "destroyed entry stays as a tombstone")
	assert.Equal(t, lifecycle.StatusDestroyed, e.Status)
	assert.Nil(t, e.DeactivatedAt)
}

func TestDeleteKeyIsIdempotentOnDestroyed(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("laptop"))

	_, err := svc.DeleteKey(id, "no longer needed")
	require.NoError(t, err)
	res, err := svc.DeleteKey(id, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDestroyed, res.NewStatus)
}

func TestDeleteKeySurvivesMissingKeyFile(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("laptop"))

	res, err := svc.DeleteKey(id, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDestroyed, res.NewStatus)
}

func TestDeleteKeyRejectsCompromised(t *testing.T) {
	svc, dir := newTestService(t)
	e := activeKey("hot")
	e.Status = lifecycle.StatusCompromised
	id := seedKey(t, dir, e)

	_, err := svc.DeleteKey(id, "")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidKeyState, CodeOf(err))
}

func TestRestoreKeyReturnsPreviousStatus(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("laptop", "vault-1"))

	_, err := svc.DeactivateKey(id, "", false)
	require.NoError(t, err)

	res, err := svc.RestoreKey(id)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, res.NewStatus)

	// Not idempotent: restoring an active key fails.
	_, err = svc.RestoreKey(id)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidKeyState, CodeOf(err))
}

func TestUpdateKeyLabel(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("old name"))

	res, err := svc.UpdateKeyLabel(id, "  new name  ")
	require.NoError(t, err)
	assert.Equal(t, "new name", res.UpdatedLabel)

	reg, err := registry.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "new name", reg.Get(id).Label)
}

func TestUpdateKeyLabelRejectsAttachedKeys(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("attached", "vault-1"))

	_, err := svc.UpdateKeyLabel(id, "renamed")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidKeyState, CodeOf(err))
}

func TestUpdateKeyLabelValidation(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("k"))

	_, err := svc.UpdateKeyLabel(id, "   ")
	assert.Equal(t, ErrInvalidInput, CodeOf(err))

	_, err = svc.UpdateKeyLabel(id, "abcdefghijklmnopqrstuvwxy")
	assert.Equal(t, ErrInvalidInput, CodeOf(err))

	_, err = svc.UpdateKeyLabel("", "ok")
	assert.Equal(t, ErrInvalidInput, CodeOf(err))

	_, err = svc.UpdateKeyLabel("missing", "ok")
	assert.Equal(t, ErrKeyNotFound, CodeOf(err))
}

func TestUpdateKeyLabelSameLabelIsNoop(t *testing.T) {
	svc, dir := newTestService(t)
	id := seedKey(t, dir, activeKey("same"))

	res, err := svc.UpdateKeyLabel(id, "same")
	require.NoError(t, err)
	assert.Equal(t, "same", res.UpdatedLabel)
}

func TestUpdateKeyLabelRejectsDuplicate(t *testing.T) {
	svc, dir := newTestService(t)
	seedKey(t, dir, activeKey("alpha"))
	id := seedKey(t, dir, activeKey("beta"))

	_, err := svc.UpdateKeyLabel(id, "alpha")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidInput, CodeOf(err))
	assert.Contains(t, err.Error(), "already exists")

	// Other labels still go through.
	res, err := svc.UpdateKeyLabel(id, "gamma")
	require.NoError(t, err)
	assert.Equal(t, "gamma", res.UpdatedLabel)
}

func TestPurgeExpired(t *testing.T) {
	svc, dir := newTestService(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	fresh := activeKey("fresh")
	freshAt := now.AddDate(0, 0, -5)
	fresh.Status = lifecycle.StatusDeactivated
	fresh.DeactivatedAt = &freshAt
	freshID := seedKey(t, dir, fresh)

	expired := activeKey("expired")
	expiredAt := now.AddDate(0, 0, -31)
	expired.Status = lifecycle.StatusDeactivated
	expired.DeactivatedAt = &expiredAt
	expiredID := seedKey(t, dir, expired)
	keyFile := seedKeyFile(t, dir, "expired.agekey.enc")

	svc.Now = func() time.Time { return now }
	purged, err := svc.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, []string{expiredID}, purged)

	_, statErr := os.Stat(keyFile)
	assert.True(t, os.IsNotExist(statErr))

	reg, err := registry.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDestroyed, reg.Get(expiredID).Status)
	assert.Equal(t, lifecycle.StatusDeactivated, reg.Get(freshID).Status)

	// Nothing left to purge.
	purged, err = svc.PurgeExpired()
	require.NoError(t, err)
	assert.Empty(t, purged)
}

func TestPurgeExpiredAfterExternalRegistryEdit(t *testing.T) {
	svc, dir := newTestService(t)

	// A hand-edited registry can hold a deactivated key without its
	// grace-period timestamp. Load repairs the pair so the key neither
	// escapes the sweeper nor wedges further deactivation.
	raw := `{
  "schema": "keywarden.registry/2",
  "keys": {
    "k-edited": {"type": "recipient", "label": "edited", "public_key": "age1x", "lifecycle_status": "deactivated"}
  }
}`
	require.NoError(t, os.WriteFile(registry.RegistryPath(dir), []byte(raw), 0600))

	// Deactivating again reports a schedule instead of failing.
	res, err := svc.DeactivateKey("k-edited", "", false)
	require.NoError(t, err)
	require.NotNil(t, res.DeletionScheduledAt)

	// Decades later the key is purged like any other deactivated key.
	svc.Now = func() time.Time { return time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC) }
	purged, err := svc.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, []string{"k-edited"}, purged)
}
