// Package cache is a small file-backed TTL cache. Adapters use it for
// remote metadata that is expensive to refetch (policy ids, shop ids,
// category trees), never for listing state, which must stay fresh.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

type Cache struct {
	path    string
	entries map[string]Entry
	mu      sync.RWMutex
}

// New opens the cache at path, loading any existing entries. A corrupt
// file is discarded rather than failing startup.
func New(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]Entry),
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &c.entries); err != nil {
				c.entries = make(map[string]Entry)
			}
		}
	}

	return c, nil
}

// Get unmarshals the cached value for key into target. Returns false
// when the key is missing or expired.
func (c *Cache) Get(key string, target interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		return false, nil
	}

	expired := entry.TTL > 0 && time.Since(entry.Timestamp) > entry.TTL
	if !expired {
		err := json.Unmarshal(entry.Data, target)
		c.mu.RUnlock()
		if err != nil {
			return false, fmt.Errorf("unmarshal cache entry: %w", err)
		}
		return true, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if e, exists := c.entries[key]; exists && e.TTL > 0 && time.Since(e.Timestamp) > e.TTL {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	return false, nil
}

// Put stores value under key with the given TTL and persists to disk.
func (c *Cache) Put(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      data,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	c.mu.Unlock()

	return c.save()
}

func (c *Cache) save() error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
