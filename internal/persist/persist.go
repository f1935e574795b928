// Package persist reads and writes the store's snapshot document: a JSON
// array of entries, most recent first.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/clipd/internal/store"
)

// File is a snapshot location on disk.
type File struct {
	Path string
}

// Save writes the snapshot atomically: temp file in the target directory,
// then rename. Clipboard history is private, so the file is 0600 and its
// directory 0700.
func (f File) Save(entries []store.Entry) error {
	if f.Path == "" {
		return fmt.Errorf("no db path configured")
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".clipd-db-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("set db permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, f.Path); err != nil {
		return fmt.Errorf("replace db file: %w", err)
	}
	return nil
}

// Load reads a snapshot back. A missing or unreadable file is the caller's
// problem to report; load is only triggered explicitly.
func (f File) Load() ([]store.Entry, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("no db path configured")
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read db file: %w", err)
	}

	var entries []store.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return entries, nil
}
