// Package filestore keeps client state in a single JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/mcc-client/storage"
)

const fileName = "state.json"

var _ storage.Repo = (*Store)(nil)

// Store persists every key into one file, rewritten atomically on each change.
type Store struct {
	path string
	lock sync.Mutex
}

// New returns a Store writing to <dir>/state.json. The directory is created on
// first write.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, fileName)}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return []byte(v), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = string(value)
	return s.write(values)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

func (s *Store) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
