// Package mirror is the same-device persistence used as a fallback snapshot
// of each domain collection. Storage is synchronous and string-keyed.
package mirror

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Keys written by the session and stores. Each store owns its key.
const (
	KeyUser      = "user"
	KeyCart      = "cart"
	KeyFavorites = "favorites"
)

// Storage is a synchronous string-keyed, string-valued store.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Clear() error
}

// MemoryStorage keeps items in a concurrent map for the life of the process.
type MemoryStorage struct {
	items *xsync.MapOf[string, string]
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: xsync.NewMapOf[string, string]()}
}

func (s *MemoryStorage) GetItem(key string) (string, bool, error) {
	v, ok := s.items.Load(key)
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(key, value string) error {
	s.items.Store(key, value)
	return nil
}

func (s *MemoryStorage) RemoveItem(key string) error {
	s.items.Delete(key)
	return nil
}

func (s *MemoryStorage) Clear() error {
	s.items.Clear()
	return nil
}
