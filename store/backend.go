package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend is durable key-value storage for the state record.
type Backend interface {
	// Load returns the bytes stored under key, or ErrNoRecord.
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Close() error
}

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindDiskv  = "diskv"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// Open returns the backend of the given kind rooted at path. For "file" and
// "diskv" path is a directory; for "sqlite" it is the database file.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(path), nil
	case KindDiskv:
		return NewDiskvBackend(path), nil
	case KindSQLite:
		return NewSQLiteBackend(path)
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// FileBackend stores each key as <dir>/<key>.json, written atomically.
type FileBackend struct {
	mu  sync.Mutex
	dir string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecord
		}
		return nil, err
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target so a crash never leaves a half-written record.
func (b *FileBackend) Save(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return err
	}
	target := b.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (b *FileBackend) Close() error { return nil }

// MemoryBackend keeps records in process memory. Used for --ephemeral runs
// and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string][]byte
	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.records[key]
	if !ok {
		return nil, ErrNoRecord
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (b *MemoryBackend) Save(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SaveErr != nil {
		return b.SaveErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b.records[key] = cp
	return nil
}

// Put seeds a raw record.
func (b *MemoryBackend) Put(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[key] = data
}

// Len reports how many records are stored.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

func (b *MemoryBackend) Close() error { return nil }
