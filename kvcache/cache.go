// Package kvcache is a small expiring key-value cache on disk, used by the
// page's collaborators (wallpaper, weather) to remember fetched data.
package kvcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// Cache is the contract collaborators depend on.
type Cache interface {
	// Get decodes the value under key into v. found is false when the key is
	// absent or expired.
	Get(key string, v any) (found bool, err error)
	// Set stores v under key. A ttl of 0 never expires.
	Set(key string, v any, ttl time.Duration) error
	Delete(key string) error
}

type envelope struct {
	Expires time.Time       `json:"expires,omitempty"`
	Value   json.RawMessage `json:"value"`
}

// Disk is a Cache backed by a diskv directory.
type Disk struct {
	d   *diskv.Diskv
	now func() time.Time
}

// Open returns a Disk cache rooted at basePath.
func Open(basePath string) *Disk {
	return &Disk{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 512 * 1024,
			TempDir:      basePath + ".tmp",
		}),
		now: time.Now,
	}
}

func (c *Disk) Get(key string, v any) (bool, error) {
	raw, err := c.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Unreadable entries are treated as misses and dropped.
		_ = c.d.Erase(key)
		return false, nil
	}
	if !env.Expires.IsZero() && !c.now().Before(env.Expires) {
		_ = c.d.Erase(key)
		return false, nil
	}
	if err := json.Unmarshal(env.Value, v); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Disk) Set(key string, v any, ttl time.Duration) error {
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	env := envelope{Value: val}
	if ttl > 0 {
		env.Expires = c.now().Add(ttl)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.d.Write(key, raw)
}

func (c *Disk) Delete(key string) error {
	err := c.d.Erase(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Memory is an in-process Cache for tests and ephemeral runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]envelope
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]envelope), now: time.Now}
}

func (c *Memory) Get(key string, v any) (bool, error) {
	c.mu.Lock()
	env, ok := c.entries[key]
	if ok && !env.Expires.IsZero() && !c.now().Before(env.Expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(env.Value, v)
}

func (c *Memory) Set(key string, v any, ttl time.Duration) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	env := envelope{Value: val}
	if ttl > 0 {
		env.Expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = env
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
