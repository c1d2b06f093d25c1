package services_test

import (
	"context"
	"testing"

	"etalase/internal/models"
	"etalase/internal/repositories"
	"etalase/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavorites_ToggleTwiceRestores(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	require.NoError(t, f.favorites.AddFavorite(ctx, phone()))

	for _, p := range []models.Product{laptop(), phone()} {
		before := f.favorites.IsFavorite(p.ID)

		now, err := f.favorites.Toggle(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, !before, now)

		now, err = f.favorites.Toggle(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, before, now)
		assert.Equal(t, before, f.favorites.IsFavorite(p.ID))
	}
}

func TestFavorites_AddIsIdempotent(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")

	require.NoError(t, f.favorites.AddFavorite(ctx, laptop()))
	require.NoError(t, f.favorites.AddFavorite(ctx, laptop()))
	assert.Equal(t, 1, f.favorites.Count())

	entry := f.favorites.Entries()[0]
	assert.Equal(t, laptop().ID, entry.ProductID)
	assert.Equal(t, laptop().Name, entry.Product.Name)
	assert.NotEmpty(t, entry.CreatedAt)
}

func TestFavorites_RemoveDropsEveryEntryForProduct(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	id := f.register(t, "ana@example.com")

	// Duplicates written by another client.
	for i := 0; i < 2; i++ {
		_, err := f.remote.AppendGenerateID(ctx, repositories.Path("favorites", id.ID), models.FavoriteEntry{
			ProductID: laptop().ID,
			Product:   laptop().Snapshot(),
		})
		require.NoError(t, err)
	}
	require.NoError(t, f.favorites.AddFavorite(ctx, phone()))
	require.Equal(t, 3, f.favorites.Count())

	require.NoError(t, f.favorites.RemoveFavorite(ctx, laptop().ID))
	assert.Equal(t, 1, f.favorites.Count())
	assert.False(t, f.favorites.IsFavorite(laptop().ID))
	assert.True(t, f.favorites.IsFavorite(phone().ID))
}

func TestFavorites_Anonymous(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()

	assert.ErrorIs(t, f.favorites.AddFavorite(ctx, laptop()), services.ErrNotAuthenticated)
	assert.NoError(t, f.favorites.RemoveFavorite(ctx, laptop().ID))
	_, err := f.favorites.Toggle(ctx, laptop())
	assert.ErrorIs(t, err, services.ErrNotAuthenticated)
	assert.NoError(t, f.favorites.Fetch(ctx))
	assert.Zero(t, f.favorites.Count())
}

func TestFavorites_FetchFailureKeepsState(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	require.NoError(t, f.favorites.AddFavorite(ctx, laptop()))

	f.remote.failReads.Store(true)
	assert.ErrorIs(t, f.favorites.Fetch(ctx), services.ErrRemote)
	assert.Equal(t, 1, f.favorites.Count())
	assert.False(t, f.favorites.Loading())
}

func TestFavorites_Restore(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.register(t, "ana@example.com")
	require.NoError(t, f.favorites.AddFavorite(context.Background(), laptop()))

	fresh := services.NewFavorites(f.remote, f.cache, f.session)
	fresh.Restore()
	assert.True(t, fresh.IsFavorite(laptop().ID))
}
