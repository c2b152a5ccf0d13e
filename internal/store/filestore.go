// Package store persists the token response and diagnostic payload
// snapshots as JSON files under a single data directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnthonyMosley/OpenStreamKit/internal/kick"
)

const (
	tokenFile        = "token.json"
	subscriptionFile = "last_subscription.json"
)

// FileStore writes JSON files under a fixed base directory. Writes go
// through a temp file plus rename so a crash cannot leave a truncated
// file behind.
type FileStore struct {
	dir string
}

func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadToken reads the persisted token response. A missing file is a
// normal first-run condition and returns (nil, nil). A file that exists
// but does not parse is a corruption the caller must treat as fatal.
func (s *FileStore) LoadToken() (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token map[string]any
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("token file %s is corrupt: %w", tokenFile, err)
	}
	return token, nil
}

// SaveToken overwrites the persisted token response wholesale.
func (s *FileStore) SaveToken(token map[string]any) error {
	return s.writeJSON(tokenFile, token)
}

// SaveSubscriptionResult persists the raw outcome of the last
// subscription attempt for offline inspection.
func (s *FileStore) SaveSubscriptionResult(result *kick.SubscriptionResult) error {
	return s.writeJSON(subscriptionFile, result)
}

// DumpPayload persists a raw webhook payload snapshot, overwriting any
// previous contents. Used only when debug dumps are enabled.
func (s *FileStore) DumpPayload(name string, payload map[string]any) error {
	return s.writeJSON(name, payload)
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
