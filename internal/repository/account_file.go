// Package repository provides the durable backends of the user ledger.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dice-casino-bot/internal/model"
)

// ErrMalformedStorage means the stored account table exists but cannot be decoded.
var ErrMalformedStorage = errors.New("malformed account storage")

// FileAccountStore keeps the whole account table in one JSON object keyed by
// the stringified user id. Every save rewrites the file.
type FileAccountStore struct {
	path string
}

// NewFileAccountStore creates a store backed by the file at path.
func NewFileAccountStore(path string) *FileAccountStore {
	return &FileAccountStore{path: path}
}

// Path returns the backing file path.
func (s *FileAccountStore) Path() string {
	return s.path
}

// Load reads the account table. A missing file is an empty table; the parent
// directory is created so later saves succeed.
func (s *FileAccountStore) Load(ctx context.Context) (map[model.UserID]*model.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := s.ensureDir(); err != nil {
				return nil, err
			}
			return make(map[model.UserID]*model.Account), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	accounts := make(map[model.UserID]*model.Account)
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedStorage, s.path, err)
	}

	for id, acc := range accounts {
		if acc == nil {
			delete(accounts, id)
			continue
		}
		// Older files may lack the id inside the record.
		acc.UserID = id
	}

	return accounts, nil
}

// Save rewrites the file with the full table via a temp file and rename.
func (s *FileAccountStore) Save(ctx context.Context, accounts map[model.UserID]*model.Account) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write accounts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	return nil
}

func (s *FileAccountStore) ensureDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return nil
}
