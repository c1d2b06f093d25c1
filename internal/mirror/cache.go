package mirror

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Cache stores JSON snapshots in a Storage. Mirroring is best effort:
// failures are logged and never surface to callers.
type Cache struct {
	storage Storage
}

// NewCache wraps storage.
func NewCache(storage Storage) *Cache {
	return &Cache{storage: storage}
}

// Save serializes v under key.
func (c *Cache) Save(key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("mirror: encode failed")
		return
	}
	if err := c.storage.SetItem(key, string(raw)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("mirror: write failed")
	}
}

// Load decodes the snapshot under key into dst. It reports false when the
// key is absent or the snapshot cannot be decoded.
func (c *Cache) Load(key string, dst interface{}) bool {
	raw, ok, err := c.storage.GetItem(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("mirror: read failed")
		return false
	}
	if !ok || raw == "" || raw == "null" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("mirror: discarding undecodable snapshot")
		return false
	}
	return true
}

// Remove deletes the snapshot under key.
func (c *Cache) Remove(key string) {
	if err := c.storage.RemoveItem(key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("mirror: remove failed")
	}
}
