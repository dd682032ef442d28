// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

// Package fsutil provides filesystem helpers for the keywarden store.
// The store holds key material and metadata for a single user, so
// everything is owner-only (0600 files, 0700 dirs).
package fsutil

import (
	"fmt"
	"os"
)

// StoreDirPerm is the permission mode for store directories.
const StoreDirPerm os.FileMode = 0700

// StoreFilePerm is the permission mode for store files.
const StoreFilePerm os.FileMode = 0600

// MkdirAll creates a directory and all parents with store permissions.
// Unlike os.MkdirAll, this explicitly sets permissions after creation to
// bypass umask restrictions.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, StoreDirPerm); err != nil {
		return err
	}
	return os.Chmod(path, StoreDirPerm)
}

// WriteFile writes data to a file with store permissions.
// Unlike os.WriteFile, this explicitly sets permissions after creation to
// bypass umask restrictions.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, StoreFilePerm); err != nil {
		return err
	}
	return os.Chmod(path, StoreFilePerm)
}

// CreateFile opens a file for writing with store permissions.
// Returns the opened file. Caller is responsible for closing it.
func CreateFile(path string, flag int) (*os.File, error) {
	f, err := os.OpenFile(path, flag, StoreFilePerm)
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(StoreFilePerm); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return f, nil
}
