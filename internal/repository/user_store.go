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

// UserStore is the principal directory: a flat JSON file of registered
// users, mirroring the record collection's locking and rewrite discipline.
type UserStore struct {
	path string
	mu   sync.RWMutex
}

func NewUserStore(path string) (*UserStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("userstore: create data dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeUsers(path, []model.User{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("userstore: stat directory file: %w", err)
	}
	return &UserStore{path: path}, nil
}

// Create registers a new user. Email and national id must both be unused.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := readUsers(s.path)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email == user.Email || u.NationalID == user.NationalID {
			return fmt.Errorf("%w: user already exists", apperr.ErrConflict)
		}
	}
	users = append(users, *user)
	return writeUsers(s.path, users)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := readUsers(s.path)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, email)
}

// FindByCredentials returns the user matching both email and national id,
// the pair the login flow identifies people by.
func (s *UserStore) FindByCredentials(ctx context.Context, email, nationalID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := readUsers(s.path)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email && users[i].NationalID == nationalID {
			u := users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: no user with those credentials", apperr.ErrNotFound)
}

// SetSessionActive flips the session flag kept in the directory.
func (s *UserStore) SetSessionActive(ctx context.Context, email string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := readUsers(s.path)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == email {
			users[i].SessionActive = active
			return writeUsers(s.path, users)
		}
	}
	return fmt.Errorf("%w: user %s", apperr.ErrNotFound, email)
}

func readUsers(path string) ([]model.User, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("userstore: read directory: %w", err)
	}
	var users []model.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("userstore: decode directory: %w", err)
	}
	return users, nil
}

func writeUsers(path string, users []model.User) error {
	raw, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("userstore: encode directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".users-*.tmp")
	if err != nil {
		return fmt.Errorf("userstore: temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("userstore: write directory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("userstore: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("userstore: replace directory: %w", err)
	}
	return nil
}
