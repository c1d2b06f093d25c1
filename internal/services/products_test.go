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

func seedCatalog(t *testing.T, remote repositories.RemoteCollectionClient) {
	t.Helper()
	ctx := context.Background()
	catalog := map[string]models.Product{
		"p1": {Name: "MacBook Air", Brand: "Apple", Category: "Laptops", Price: 1299, Featured: true},
		"p2": {Name: "Galaxy S21", Brand: "Samsung", Category: "Smartphones", Price: 799},
		"p3": {Name: "ZenBook 14", Brand: "Asus", Category: "Laptops", Price: 899},
		"p4": {Name: "WH-1000XM5", Brand: "Sony", Category: "Audio", Price: 349, Description: "Noise cancelling headphones", Featured: true},
		"p5": {Name: "K2 Pro", Brand: "Keychron", Category: "Gaming Peripherals", Price: 99},
		"p6": {Name: "Bravia XR", Brand: "Sony", Category: "Televisions", Price: 1499},
	}
	require.NoError(t, remote.Write(ctx, "products", catalog))
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestMatchesQuery(t *testing.T) {
	macbook := models.Product{Name: "MacBook Air", Category: "Laptops"}
	galaxy := models.Product{Name: "Galaxy S21", Category: "Smartphones"}
	zenbook := models.Product{Name: "ZenBook 14", Brand: "Asus", Category: "Laptops"}

	assert.True(t, services.MatchesQuery(macbook, "macbook"))
	assert.False(t, services.MatchesQuery(galaxy, "macbook"))
	assert.True(t, services.MatchesQuery(zenbook, "laptop"), "category synonym")
	assert.True(t, services.MatchesQuery(zenbook, "  ZENBOOK   laptop "), "tokens are case-insensitive")
	assert.False(t, services.MatchesQuery(zenbook, "zenbook headphone"), "every token must match")
	assert.True(t, services.MatchesQuery(galaxy, ""))
	assert.True(t, services.MatchesQuery(galaxy, "smart"), "token inside a synonym")
}

func TestProducts_SearchScenarios(t *testing.T) {
	remote := repositories.NewMemoryRemote()
	require.NoError(t, remote.Write(context.Background(), "products", map[string]models.Product{
		"a": {Name: "MacBook Air", Category: "Laptops"},
		"b": {Name: "Galaxy S21", Category: "Smartphones"},
	}))
	p := services.NewProducts(remote)
	require.NoError(t, p.FetchAll(context.Background()))

	p.SetSearchQuery("macbook")
	assert.Equal(t, []string{"a"}, ids(p.FilteredProducts()))

	p.SetSearchQuery("laptop")
	assert.Equal(t, []string{"a"}, ids(p.FilteredProducts()))
}

func TestProducts_Filters(t *testing.T) {
	remote := repositories.NewMemoryRemote()
	seedCatalog(t, remote)
	p := services.NewProducts(remote)
	require.NoError(t, p.FetchAll(context.Background()))
	require.Len(t, p.All(), 6)

	p.SetCategory("Laptops")
	assert.Equal(t, []string{"p1", "p3"}, ids(p.FilteredProducts()))

	p.SetCategory(models.AllCategoriesName)
	p.SetBrand("Sony")
	assert.Equal(t, []string{"p4", "p6"}, ids(p.FilteredProducts()))

	p.SetSearchQuery("headphone")
	assert.Equal(t, []string{"p4"}, ids(p.FilteredProducts()))

	p.ClearFilters()
	assert.Equal(t, services.Filter{Sort: services.SortDefault}, p.Filter())
	assert.Len(t, p.FilteredProducts(), 6)

	p.SetSortOption(services.SortPriceLow)
	assert.Equal(t, []string{"p5", "p4", "p2", "p3", "p1", "p6"}, ids(p.SortedAndFilteredProducts()))
	p.SetSortOption(services.SortPriceHigh)
	assert.Equal(t, []string{"p6", "p1", "p3", "p2", "p4", "p5"}, ids(p.SortedAndFilteredProducts()))
	p.SetSortOption(services.SortDefault)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5", "p6"}, ids(p.SortedAndFilteredProducts()))
}

func TestProducts_Views(t *testing.T) {
	remote := repositories.NewMemoryRemote()
	seedCatalog(t, remote)
	p := services.NewProducts(remote)
	require.NoError(t, p.FetchAll(context.Background()))

	assert.Equal(t, []string{"p1", "p4"}, ids(p.FeaturedProducts()))
	assert.Equal(t, []string{"Apple", "Samsung", "Asus", "Sony", "Keychron"}, p.Brands())
	assert.Equal(t, []string{"p1", "p3", "p4", "p5"}, ids(p.Recommendations("p2")))
}

func TestProducts_FetchCategories(t *testing.T) {
	remote := repositories.NewMemoryRemote()
	p := services.NewProducts(remote)
	require.NoError(t, p.FetchCategories(context.Background()))
	assert.Equal(t, []models.Category{{ID: models.AllCategoriesID, Name: models.AllCategoriesName}}, p.Categories())

	require.NoError(t, remote.Write(context.Background(), "categories", map[string]models.Category{
		"c1": {Name: "Laptops"},
		"c2": {Name: " all categories "},
		"c3": {Name: "Audio"},
	}))
	require.NoError(t, p.FetchCategories(context.Background()))
	assert.Equal(t, []models.Category{
		{ID: models.AllCategoriesID, Name: models.AllCategoriesName},
		{ID: "c1", Name: "Laptops"},
		{ID: "c3", Name: "Audio"},
	}, p.Categories())
}

func TestProducts_FetchOneIsCacheFirst(t *testing.T) {
	ctx := context.Background()
	remote := repositories.NewMemoryRemote()
	seedCatalog(t, remote)
	p := services.NewProducts(remote)

	got, err := p.FetchOne(ctx, "p2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Galaxy S21", got.Name)
	assert.Equal(t, "p2", p.Current().ID)

	require.NoError(t, p.FetchAll(ctx))
	require.NoError(t, remote.Delete(ctx, "products/p1"))
	got, err = p.FetchOne(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got, "served from the loaded catalog")

	got, err = p.FetchOne(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, p.Current())
}

func TestProducts_AddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	remote := repositories.NewMemoryRemote()
	p := services.NewProducts(remote)

	_, err := p.Add(ctx, models.Product{Name: "", Price: 10})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
	_, err = p.Add(ctx, models.Product{Name: "Cable", Price: -1})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	id, err := p.Add(ctx, models.Product{Name: "USB-C Cable", Brand: "Anker", Category: "Accessories", Price: 9.5})
	require.NoError(t, err)
	require.Len(t, p.All(), 1)
	assert.Equal(t, id, p.All()[0].ID)
	assert.NotNil(t, p.All()[0].CreatedAt)

	require.NoError(t, p.Update(ctx, id, models.Product{Name: "USB-C Cable 2m", Brand: "Anker", Category: "Accessories", Price: 11}))
	updated := p.All()[0]
	assert.Equal(t, "USB-C Cable 2m", updated.Name)
	assert.Equal(t, 11.0, updated.Price)
	assert.NotNil(t, updated.CreatedAt, "creation time survives updates")
	assert.NotNil(t, updated.UpdatedAt)

	require.NoError(t, p.Delete(ctx, id))
	assert.Empty(t, p.All())
}

func TestProducts_FetchFailureRecordsError(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.remote.failReads.Store(true)

	err := f.products.FetchAll(context.Background())
	assert.ErrorIs(t, err, services.ErrRemote)
	assert.ErrorIs(t, f.products.LastError(), services.ErrRemote)
	assert.False(t, f.products.Loading())
}

func TestProducts_ReadsIndexKeyedCollections(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	require.NoError(t, f.remote.Write(ctx, "categories/0", models.Category{Name: "Laptops"}))
	require.NoError(t, f.remote.Write(ctx, "categories/1", models.Category{Name: "Smartphones"}))
	p := laptop()
	p.ID = ""
	require.NoError(t, f.remote.Write(ctx, "products/0", p))

	require.NoError(t, f.products.FetchCategories(ctx))
	cats := f.products.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, models.AllCategoriesName, cats[0].Name)
	assert.Equal(t, models.Category{ID: "0", Name: "Laptops"}, cats[1])
	assert.Equal(t, models.Category{ID: "1", Name: "Smartphones"}, cats[2])

	require.NoError(t, f.products.FetchAll(ctx))
	all := f.products.All()
	require.Len(t, all, 1)
	assert.Equal(t, "0", all[0].ID)
	assert.Equal(t, "ZenBook 14", all[0].Name)
	assert.NoError(t, f.products.LastError())
}
