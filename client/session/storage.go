package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Storage persists the session State between runs.
type Storage interface {
	// Load returns the zero State when nothing was saved yet.
	Load() (State, error)
	Save(st State) error
	Clear() error
}

// FileStorage keeps the State as JSON in a single file.
type FileStorage struct {
	path string
}

var _ Storage = (*FileStorage)(nil)

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultPath is the session file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locating config dir")
	}
	return filepath.Join(dir, "shule", "session.json"), nil
}

func (fs *FileStorage) Path() string { return fs.path }

func (fs *FileStorage) Load() (State, error) {
	var st State
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, errors.Wrap(err, "reading session")
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, errors.Wrap(err, "decoding session")
	}
	return st, nil
}

func (fs *FileStorage) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	return errors.Wrap(os.WriteFile(fs.path, data, 0o600), "writing session")
}

func (fs *FileStorage) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session")
	}
	return nil
}

// MemoryStorage keeps the State in memory; for tests.
type MemoryStorage struct {
	mu    sync.Mutex
	state *State
	saves int
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load() (State, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.state == nil {
		return State{}, nil
	}
	return *ms.state, nil
}

func (ms *MemoryStorage) Save(st State) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.state = &st
	ms.saves++
	return nil
}

func (ms *MemoryStorage) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.state = nil
	return nil
}

// Saves returns how many times the State was saved.
func (ms *MemoryStorage) Saves() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.saves
}
