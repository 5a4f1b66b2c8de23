package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"backend/internal/apperr"
	"backend/internal/model"
)

// FileStore keeps the whole record collection in one JSON file. Every
// mutation is a read-modify-write of the full collection under an exclusive
// lock, and the rewrite goes through a temp file + rename so a reader never
// sees a torn file.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore initializes the collection file if absent.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("filestore: create data dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeCollection(path, []model.Procedure{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("filestore: stat collection: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Create(ctx context.Context, rec *model.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readCollection(s.path)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == rec.ID {
			return fmt.Errorf("%w: procedure %s already exists", apperr.ErrConflict, rec.ID)
		}
	}
	records = append(records, *rec)
	return writeCollection(s.path, records)
}

func (s *FileStore) FindByID(ctx context.Context, id string) (*model.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := readCollection(s.path)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: procedure %s", apperr.ErrNotFound, id)
}

func (s *FileStore) ListAll(ctx context.Context) ([]model.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCollection(s.path)
}

func (s *FileStore) ListByOwner(ctx context.Context, identity string) ([]model.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := readCollection(s.path)
	if err != nil {
		return nil, err
	}
	mine := make([]model.Procedure, 0)
	for _, r := range records {
		if r.CreatedBy == identity {
			mine = append(mine, r)
		}
	}
	return mine, nil
}

func (s *FileStore) ReplaceVersion(ctx context.Context, id string, rec *model.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readCollection(s.path)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			records[i] = *rec
			return writeCollection(s.path, records)
		}
	}
	return fmt.Errorf("%w: procedure %s", apperr.ErrNotFound, id)
}

func readCollection(path string) ([]model.Procedure, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: read collection: %w", err)
	}
	var records []model.Procedure
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("filestore: decode collection: %w", err)
	}
	return records, nil
}

func writeCollection(path string, records []model.Procedure) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode collection: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".procedures-*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("filestore: write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("filestore: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("filestore: replace collection: %w", err)
	}
	return nil
}
