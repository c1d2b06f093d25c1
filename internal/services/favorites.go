package services

import (
	"context"
	"sync"
	"time"

	"etalase/internal/mirror"
	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/rs/zerolog/log"
)

// Favorites is the per-identity favorites list stored under favorites/{uid}/{entryId}.
// There is at most one entry per product.
type Favorites struct {
	observable

	remote   repositories.RemoteCollectionClient
	cache    *mirror.Cache
	identity IdentitySource
	now      func() time.Time

	mu      sync.RWMutex
	entries []models.FavoriteEntry
}

// NewFavorites creates an empty favorites store.
func NewFavorites(remote repositories.RemoteCollectionClient, cache *mirror.Cache, identity IdentitySource) *Favorites {
	return &Favorites{remote: remote, cache: cache, identity: identity, now: time.Now}
}

func favoritesPath(uid string, entry ...string) string {
	return repositories.Path(append([]string{"favorites", uid}, entry...)...)
}

// Fetch replaces the local entries with the identity's remote favorites.
func (f *Favorites) Fetch(ctx context.Context) error {
	done := f.begin()
	defer done()

	id := f.identity.Current()
	if id == nil {
		f.setEntries(nil)
		return nil
	}
	entries, err := f.read(ctx, id.ID)
	if err != nil {
		log.Warn().Err(err).Str("store", "favorites").Str("uid", id.ID).Msg("fetch failed")
		return f.record(err)
	}
	f.setEntries(entries)
	return nil
}

// AddFavorite marks product as favorite. It does nothing if it already is one.
func (f *Favorites) AddFavorite(ctx context.Context, product models.Product) error {
	id := f.identity.Current()
	if id == nil {
		return f.record(ErrNotAuthenticated)
	}
	if f.IsFavorite(product.ID) {
		return nil
	}
	done := f.begin()
	defer done()

	_, err := f.remote.AppendGenerateID(ctx, favoritesPath(id.ID), models.FavoriteEntry{
		ProductID: product.ID,
		Product:   product.Snapshot(),
		CreatedAt: f.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn().Err(err).Str("store", "favorites").Str("uid", id.ID).Msg("add failed")
		return f.record(err)
	}
	return f.Fetch(ctx)
}

// RemoveFavorite deletes every remote entry for productID. It does nothing
// for an anonymous identity.
func (f *Favorites) RemoveFavorite(ctx context.Context, productID string) error {
	id := f.identity.Current()
	if id == nil {
		return nil
	}
	done := f.begin()
	defer done()

	entries, err := f.read(ctx, id.ID)
	if err != nil {
		return f.record(err)
	}
	for _, e := range entries {
		if e.ProductID != productID {
			continue
		}
		if err := f.remote.Delete(ctx, favoritesPath(id.ID, e.ID)); err != nil {
			log.Warn().Err(err).Str("store", "favorites").Str("uid", id.ID).Msg("remove failed")
			return f.record(err)
		}
	}
	return f.Fetch(ctx)
}

// Toggle removes product from favorites if present, otherwise adds it.
// It reports whether the product is a favorite afterwards.
func (f *Favorites) Toggle(ctx context.Context, product models.Product) (bool, error) {
	if f.IsFavorite(product.ID) {
		if err := f.RemoveFavorite(ctx, product.ID); err != nil {
			return true, err
		}
		return f.IsFavorite(product.ID), nil
	}
	if err := f.AddFavorite(ctx, product); err != nil {
		return false, err
	}
	return f.IsFavorite(product.ID), nil
}

// IsFavorite reports whether productID is among the local entries.
func (f *Favorites) IsFavorite(productID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// Count returns the number of favorites.
func (f *Favorites) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Entries returns a copy of the favorites.
func (f *Favorites) Entries() []models.FavoriteEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.FavoriteEntry(nil), f.entries...)
}

// ClearLocal empties the in-memory and mirrored favorites.
func (f *Favorites) ClearLocal() {
	f.mu.Lock()
	f.entries = nil
	f.mu.Unlock()
	f.cache.Remove(mirror.KeyFavorites)
	f.record(nil)
	f.changed()
}

// Restore loads the mirrored favorites.
func (f *Favorites) Restore() {
	var entries []models.FavoriteEntry
	if !f.cache.Load(mirror.KeyFavorites, &entries) {
		return
	}
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
	f.changed()
}

func (f *Favorites) read(ctx context.Context, uid string) ([]models.FavoriteEntry, error) {
	stored, err := repositories.ReadCollection[models.FavoriteEntry](ctx, f.remote, favoritesPath(uid))
	if err != nil {
		return nil, err
	}
	entries := make([]models.FavoriteEntry, 0, len(stored))
	for _, s := range stored {
		e := s.Value
		e.ID = s.Key
		entries = append(entries, e)
	}
	return entries, nil
}

func (f *Favorites) setEntries(entries []models.FavoriteEntry) {
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
	if entries == nil {
		entries = []models.FavoriteEntry{}
	}
	f.cache.Save(mirror.KeyFavorites, entries)
	f.changed()
}
