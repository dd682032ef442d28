// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/keywarden/keywarden/internal/fsutil"
	"github.com/keywarden/keywarden/internal/lifecycle"
)

// Schema identifies the registry file format.
const Schema = "keywarden.registry/2"

const (
	registryFile = "registry.json"
	vaultsFile   = "vaults.json"
	keysDirName  = "keys"
)

// Registry is the central store of key metadata, persisted as a single
// JSON file under the data directory.
type Registry struct {
	Schema string               `json:"schema"`
	Keys   map[string]*KeyEntry `json:"keys"`
}

// New returns an empty registry with the current schema.
func New() *Registry {
	return &Registry{
		Schema: Schema,
		Keys:   make(map[string]*KeyEntry),
	}
}

// RegistryPath returns the registry file path under dataDir.
func RegistryPath(dataDir string) string {
	return filepath.Join(dataDir, registryFile)
}

// VaultsPath returns the vault statistics file path under dataDir.
func VaultsPath(dataDir string) string {
	return filepath.Join(dataDir, vaultsFile)
}

// KeysDir returns the directory holding encrypted key files.
func KeysDir(dataDir string) string {
	return filepath.Join(dataDir, keysDirName)
}

// Load reads the registry from dataDir, returning a fresh empty
// registry when the file does not exist yet.
func Load(dataDir string) (*Registry, error) {
	path := RegistryPath(dataDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read key registry %s: %w", path, err)
	}
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse key registry %s: %w", path, err)
	}
	if r.Keys == nil {
		r.Keys = make(map[string]*KeyEntry)
	}
	now := time.Now().UTC()
	for id, e := range r.Keys {
		if e.ID == "" {
			e.ID = id
		}
		if e.Status == "" {
			e.Status = lifecycle.StatusPreActivation
		}
		if _, err := lifecycle.ParseStatus(string(e.Status)); err != nil {
			return nil, fmt.Errorf("invalid entry %s in key registry %s: %w", id, path, err)
		}
		e.repairDeactivation(now)
	}
	return &r, nil
}

// Save writes the registry atomically under dataDir with owner-only
// permissions.
func (r *Registry) Save(dataDir string) error {
	if err := fsutil.MkdirAll(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", dataDir, err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode key registry: %w", err)
	}
	if err := fsutil.AtomicWriteFile(RegistryPath(dataDir), data); err != nil {
		return fmt.Errorf("failed to write key registry: %w", err)
	}
	return nil
}

// Get returns the entry for id, or nil when absent.
func (r *Registry) Get(id string) *KeyEntry {
	return r.Keys[id]
}

// Add inserts a new entry, assigning an id when missing.
func (r *Registry) Add(e *KeyEntry) string {
	if e.ID == "" {
		e.ID = NewKeyID()
	}
	r.Keys[e.ID] = e
	return e.ID
}

// Sorted returns all entries ordered by label, then id for stability.
func (r *Registry) Sorted() []*KeyEntry {
	out := make([]*KeyEntry, 0, len(r.Keys))
	for _, e := range r.Keys {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindByLabel returns the first entry with the given label, or nil.
func (r *Registry) FindByLabel(label string) *KeyEntry {
	for _, e := range r.Sorted() {
		if e.Label == label {
			return e
		}
	}
	return nil
}

// VaultRecord is one vault's summary in the vaults file. The encryption
// count tracks how many envelopes were sealed with keys of that vault;
// a nonzero count marks the vault's keys as used.
type VaultRecord struct {
	VaultID         string `json:"vault_id"`
	Name            string `json:"name"`
	EncryptionCount int    `json:"encryption_count"`
}

// VaultIndex is the persisted vault statistics file.
type VaultIndex struct {
	Schema string        `json:"schema"`
	Vaults []VaultRecord `json:"vaults"`
}

// VaultIndexSchema identifies the vaults file format.
const VaultIndexSchema = "keywarden.vaults/1"

// LoadVaultStats reads the vaults file and returns per-vault statistics
// keyed by vault id. A missing file yields an empty map: eligibility
// derivations treat absent statistics as fail-safe.
func LoadVaultStats(dataDir string) (map[string]lifecycle.VaultStats, error) {
	path := VaultsPath(dataDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]lifecycle.VaultStats{}, nil
		}
		return nil, fmt.Errorf("failed to read vault index %s: %w", path, err)
	}
	var idx VaultIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse vault index %s: %w", path, err)
	}
	stats := make(map[string]lifecycle.VaultStats, len(idx.Vaults))
	for _, v := range idx.Vaults {
		stats[v.VaultID] = lifecycle.VaultStats{
			VaultID:         v.VaultID,
			EncryptionCount: v.EncryptionCount,
		}
	}
	return stats, nil
}

// SaveVaultIndex writes the vault statistics file atomically.
func SaveVaultIndex(dataDir string, idx *VaultIndex) error {
	if err := fsutil.MkdirAll(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", dataDir, err)
	}
	if idx.Schema == "" {
		idx.Schema = VaultIndexSchema
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vault index: %w", err)
	}
	if err := fsutil.AtomicWriteFile(VaultsPath(dataDir), data); err != nil {
		return fmt.Errorf("failed to write vault index: %w", err)
	}
	return nil
}
