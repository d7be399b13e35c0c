// Package snapshot keeps the single exercise snapshot slot of each trainee,
// either as a JSON file on disk or as a JSON value in Redis.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"fcetrainer/internal/models"
)

// FileStore writes one <trainee>.json file per trainee under dir
type FileStore struct {
	dir string
}

// NewFileStore creates dir when needed and returns a store rooted there
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps a trainee ID to its file. Only UUIDs are accepted so an ID can
// never point outside dir.
func (s *FileStore) path(traineeID string) (string, error) {
	id, err := uuid.Parse(traineeID)
	if err != nil {
		return "", fmt.Errorf("invalid trainee ID %q: %w", traineeID, err)
	}
	return filepath.Join(s.dir, id.String()+".json"), nil
}

// Save overwrites the trainee's snapshot
func (s *FileStore) Save(traineeID string, snapshot models.Snapshot) error {
	path, err := s.path(traineeID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load returns the trainee's snapshot when it is tagged with part, or nil
func (s *FileStore) Load(traineeID string, part models.Part) (*models.Snapshot, error) {
	snapshot, err := s.read(traineeID)
	if err != nil || snapshot == nil {
		return nil, err
	}
	if snapshot.ActivePart != part {
		return nil, nil
	}
	return snapshot, nil
}

// Delete removes the trainee's snapshot if it is tagged with part
func (s *FileStore) Delete(traineeID string, part models.Part) error {
	snapshot, err := s.read(traineeID)
	if err != nil || snapshot == nil || snapshot.ActivePart != part {
		return err
	}

	path, err := s.path(traineeID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) read(traineeID string) (*models.Snapshot, error) {
	path, err := s.path(traineeID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", filepath.Base(path), err)
	}
	return &snapshot, nil
}
