package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store is the non-volatile backing for the persisted record. Access is exclusive for the
// duration of each call.
type Store interface {
	// Load returns the first n bytes of the store
	Load(n int) ([]byte, error)
	// Save writes b at the start of the store
	Save(b []byte) error
	// Wipe overwrites the entire store with fill
	Wipe(fill byte) error
}

// MemoryStore is a fixed-capacity in-memory store that starts out erased
type MemoryStore struct {
	data []byte
}

// NewMemoryStore creates an erased store of the given capacity
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{data: bytes.Repeat([]byte{Erased}, capacity)}
}

func (m *MemoryStore) Load(n int) ([]byte, error) {
	if n > len(m.data) {
		return nil, fmt.Errorf("read %d bytes from %d byte store", n, len(m.data))
	}
	return bytes.Clone(m.data[:n]), nil
}

func (m *MemoryStore) Save(b []byte) error {
	if len(b) > len(m.data) {
		return fmt.Errorf("write %d bytes to %d byte store", len(b), len(m.data))
	}
	copy(m.data, b)
	return nil
}

func (m *MemoryStore) Wipe(fill byte) error {
	for i := range m.data {
		m.data[i] = fill
	}
	return nil
}

// Bytes exposes the raw contents, for inspection and fault injection
func (m *MemoryStore) Bytes() []byte {
	return m.data
}

// FileStore keeps the record in a file so the simulator survives restarts
type FileStore struct {
	path     string
	capacity int
}

// NewFileStore uses the file at path, which need not exist yet
func NewFileStore(path string, capacity int) *FileStore {
	return &FileStore{path: path, capacity: capacity}
}

// Load reads the file. A missing file reads as an erased store.
func (f *FileStore) Load(n int) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return bytes.Repeat([]byte{Erased}, n), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading store: %w", err)
	}
	if len(data) < n {
		data = append(data, bytes.Repeat([]byte{Erased}, n-len(data))...)
	}
	return data[:n], nil
}

func (f *FileStore) Save(b []byte) error {
	if len(b) > f.capacity {
		return fmt.Errorf("write %d bytes to %d byte store", len(b), f.capacity)
	}
	data, err := f.Load(f.capacity)
	if err != nil {
		return err
	}
	copy(data, b)
	return f.write(data)
}

func (f *FileStore) Wipe(fill byte) error {
	return f.write(bytes.Repeat([]byte{fill}, f.capacity))
}

func (f *FileStore) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("error creating store directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("error replacing store: %w", err)
	}
	return nil
}
