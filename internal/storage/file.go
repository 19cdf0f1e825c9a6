package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	linkerr "github.com/arcano/walletlink/pkg/errors"
)

const (
	// stateFilePermissions is the permission mode for the state file.
	stateFilePermissions = 0o600

	// stateDirPermissions is the permission mode for the state directory.
	stateDirPermissions = 0o750
)

var (
	// ErrCorruptStore indicates the state file could not be parsed.
	ErrCorruptStore = errors.New("state file is corrupted")

	// ErrPassphraseRequired indicates an encrypted state file was opened without a passphrase.
	ErrPassphraseRequired = errors.New("state file is encrypted and no passphrase was given")
)

// fileState is the on-disk layout of the state file.
type fileState struct {
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileStore is a KV persisted as one JSON document, optionally age-encrypted.
// Every mutation rewrites the file atomically before returning.
type FileStore struct {
	mu         sync.RWMutex
	path       string
	passphrase string
	values     map[string]string
}

var _ KV = (*FileStore)(nil)

// OpenFileStore loads the store at path. A missing file yields an empty store.
// A corrupt file is moved aside; the returned store is empty and usable, and
// the error wraps ErrCorruptStore.
func OpenFileStore(path, passphrase string) (*FileStore, error) {
	s := &FileStore{path: path, passphrase: passphrase, values: make(map[string]string)}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, linkerr.WithCause(linkerr.ErrStorage, fmt.Errorf("reading state file: %w", err))
	}

	if isEncrypted(data) {
		if passphrase == "" {
			return nil, linkerr.WithCause(linkerr.ErrStorage, ErrPassphraseRequired)
		}
		data, err = decrypt(data, passphrase)
		if err != nil {
			return nil, linkerr.WithCause(linkerr.ErrStorage, err)
		}
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(path, corruptPath); renameErr != nil {
			return s, fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptStore, err, renameErr)
		}
		return s, fmt.Errorf("%w: %w (moved to %s)", ErrCorruptStore, err, corruptPath)
	}
	for k, v := range st.Values {
		s.values[k] = v
	}
	return s, nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key and writes the file.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if had && prev == value {
		return nil
	}
	s.values[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Remove deletes key and writes the file.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.flush(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// Encrypted reports whether writes are sealed with a passphrase.
func (s *FileStore) Encrypted() bool {
	return s.passphrase != ""
}

func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), stateDirPermissions); err != nil {
		return linkerr.WithCause(linkerr.ErrStorage, fmt.Errorf("creating state directory: %w", err))
	}

	data, err := json.MarshalIndent(fileState{Values: s.values, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return linkerr.WithCause(linkerr.ErrStorage, fmt.Errorf("marshaling state: %w", err))
	}

	if s.passphrase != "" {
		if data, err = encrypt(data, s.passphrase); err != nil {
			return linkerr.WithCause(linkerr.ErrStorage, err)
		}
	}

	if err := writeAtomic(s.path, data, stateFilePermissions); err != nil {
		return linkerr.WithCause(linkerr.ErrStorage, err)
	}
	return nil
}
