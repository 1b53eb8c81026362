// Package cache stores fetched archive documents. Archive documents never change once
// published, so entries are keyed by URL alone.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/edgarseg/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error // ttl 0 = layer default
	Delete(key string) error
	Clear() error
}

// keyPrefix is bumped whenever the cached representation changes
const keyPrefix = "edgarseg:v1:doc:"

// DocumentKey generates the cache key for a document URL
func DocumentKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the configured cache: memory in front of disk, or memory only when no
// directory is set. It returns nil when caching is disabled.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}

	memory := NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	if cfg.Dir == "" {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.DiskTTL))
}
