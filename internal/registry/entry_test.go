// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package registry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keywarden/keywarden/internal/lifecycle"
)

func newActiveKey(label string, vaults ...string) *KeyEntry {
	return &KeyEntry{
		ID:                NewKeyID(),
		Kind:              KindPassphrase,
		Label:             label,
		CreatedAt:         time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		PublicKey:         "age1example",
		KeyFilename:       label + ".agekey.enc",
		Status:            lifecycle.StatusActive,
		VaultAssociations: vaults,
	}
}

func TestDeactivateStoresPreviousStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	e := newActiveKey("laptop")
	require.NoError(t, e.Deactivate("user requested", "user", now))

	assert.Equal(t, lifecycle.StatusDeactivated, e.Status)
	assert.Equal(t, lifecycle.StatusActive, e.PreviousStatus)
	require.NotNil(t, e.DeactivatedAt)
	assert.True(t, e.DeactivatedAt.Equal(now))
	require.Len(t, e.StatusHistory, 1)
	assert.Equal(t, "user requested", e.StatusHistory[0].Reason)
	assert.Equal(t, "user", e.StatusHistory[0].ChangedBy)
}

func TestDeactivateRejectsWrongStates(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []lifecycle.Status{
		lifecycle.StatusPreActivation,
		lifecycle.StatusDeactivated,
		lifecycle.StatusCompromised,
		lifecycle.StatusDestroyed,
	} {
		e := newActiveKey("k")
		e.Status = status
		err := e.Deactivate("r", "user", now)
		assert.Error(t, err, "deactivate should fail from %s", status)
	}
}

func TestRestoreReturnsToPreviousStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	e := newActiveKey("backup")
	e.Status = lifecycle.StatusSuspended
	require.NoError(t, e.Deactivate("cleanup", "user", now))
	require.NoError(t, e.Restore("changed my mind", "user", now.Add(time.Hour)))

	assert.Equal(t, lifecycle.StatusSuspended, e.Status)
	assert.Nil(t, e.DeactivatedAt)
	assert.Equal(t, lifecycle.Status(""), e.PreviousStatus)
}

func TestRestoreFallbackWithoutPreviousStatus(t *testing.T) {
	now := time.Now().UTC()

	attached := newActiveKey("attached", "vault-1")
	attached.Status = lifecycle.StatusDeactivated
	require.NoError(t, attached.Restore("r", "user", now))
	assert.Equal(t, lifecycle.StatusActive, attached.Status)

	loose := newActiveKey("loose")
	loose.Status = lifecycle.StatusDeactivated
	require.NoError(t, loose.Restore("r", "user", now))
	assert.Equal(t, lifecycle.StatusSuspended, loose.Status)
}

func TestRestoreIsNotIdempotent(t *testing.T) {
	now := time.Now().UTC()
	e := newActiveKey("k")
	require.NoError(t, e.Deactivate("r", "user", now))
	require.NoError(t, e.Restore("r", "user", now))
	assert.Error(t, e.Restore("r", "user", now), "second restore must fail")
}

func TestDestroyClearsGraceMetadata(t *testing.T) {
	now := time.Now().UTC()
	e := newActiveKey("k")
	require.NoError(t, e.Deactivate("r", "user", now))
	require.NoError(t, e.Destroy("grace expired", "system", now))

	assert.Equal(t, lifecycle.StatusDestroyed, e.Status)
	assert.Nil(t, e.DeactivatedAt)
	assert.Equal(t, lifecycle.Status(""), e.PreviousStatus)
}

func TestDestroyRejectsDestroyedAndCompromised(t *testing.T) {
	now := time.Now().UTC()

	gone := newActiveKey("gone")
	gone.Status = lifecycle.StatusDestroyed
	assert.Error(t, gone.Destroy("r", "user", now))

	bad := newActiveKey("bad")
	bad.Status = lifecycle.StatusCompromised
	assert.Error(t, bad.Destroy("r", "user", now))
}

func TestVaultAssociations(t *testing.T) {
	e := newActiveKey("k")
	e.AttachVault("v1")
	e.AttachVault("v2")
	e.AttachVault("v1")
	assert.Equal(t, []string{"v1", "v2"}, e.VaultAssociations)

	e.DetachVault("v1")
	assert.Equal(t, []string{"v2"}, e.VaultAssociations)
	e.DetachVault("missing")
	assert.Equal(t, []string{"v2"}, e.VaultAssociations)
}

func TestValidateLabel(t *testing.T) {
	assert.NoError(t, ValidateLabel("My Laptop Key"))
	assert.Error(t, ValidateLabel(""))
	assert.NoError(t, ValidateLabel(strings.Repeat("é", MaxLabelLen)))
	assert.Error(t, ValidateLabel(strings.Repeat("a", MaxLabelLen+1)))
}

func TestEncryptionRecipientPerKind(t *testing.T) {
	pass := newActiveKey("p")
	assert.Equal(t, "age1example", pass.EncryptionRecipient())

	yk := &KeyEntry{Kind: KindYubiKey, Recipient: "age1yubikey1abc"}
	assert.Equal(t, "age1yubikey1abc", yk.EncryptionRecipient())

	rec := &KeyEntry{Kind: KindRecipient, PublicKey: "age1peer"}
	assert.Equal(t, "age1peer", rec.EncryptionRecipient())
}
