package store

import (
	"errors"
	"os"

	"github.com/peterbourgon/diskv/v3"
)

// DiskvBackend stores records as files in a diskv directory with a small
// read cache.
type DiskvBackend struct {
	d *diskv.Diskv
}

func NewDiskvBackend(basePath string) *DiskvBackend {
	return &DiskvBackend{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024, // 1MB
		TempDir:      basePath + ".tmp",
	})}
}

func (b *DiskvBackend) Load(key string) ([]byte, error) {
	data, err := b.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecord
		}
		return nil, err
	}
	return data, nil
}

func (b *DiskvBackend) Save(key string, data []byte) error {
	return b.d.Write(key, data)
}

func (b *DiskvBackend) Close() error { return nil }
