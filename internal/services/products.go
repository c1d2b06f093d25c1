package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// SortOption orders the filtered catalog.
type SortOption string

const (
	SortDefault   SortOption = "default"
	SortPriceLow  SortOption = "priceLow"
	SortPriceHigh SortOption = "priceHigh"
)

// Filter is the catalog query state.
type Filter struct {
	Category string
	Brand    string
	Sort     SortOption
	Query    string
}

// Products is the catalog stored under products/{id} and categories/{id}.
// Mutations re-fetch the whole catalog instead of patching it locally.
// Role checks are left to the Navigation Guard.
type Products struct {
	observable

	remote   repositories.RemoteCollectionClient
	validate *validator.Validate
	now      func() time.Time

	mu         sync.RWMutex
	products   []models.Product
	categories []models.Category
	current    *models.Product
	filter     Filter
}

// NewProducts creates an empty catalog.
func NewProducts(remote repositories.RemoteCollectionClient) *Products {
	return &Products{
		remote:   remote,
		validate: validator.New(),
		now:      time.Now,
		filter:   Filter{Sort: SortDefault},
	}
}

// FetchAll loads the whole catalog.
func (p *Products) FetchAll(ctx context.Context) error {
	done := p.begin()
	defer done()

	stored, err := repositories.ReadCollection[models.Product](ctx, p.remote, "products")
	if err != nil {
		log.Warn().Err(err).Str("store", "products").Msg("fetch failed")
		return p.record(err)
	}
	products := make([]models.Product, 0, len(stored))
	for _, e := range stored {
		prod := e.Value
		prod.ID = e.Key
		products = append(products, prod)
	}

	p.mu.Lock()
	p.products = products
	p.mu.Unlock()
	return nil
}

// FetchCategories loads the categories behind the synthetic "All Categories" entry.
func (p *Products) FetchCategories(ctx context.Context) error {
	done := p.begin()
	defer done()

	stored, err := repositories.ReadCollection[models.Category](ctx, p.remote, "categories")
	if err != nil {
		log.Warn().Err(err).Str("store", "products").Msg("fetch categories failed")
		return p.record(err)
	}
	categories := []models.Category{{ID: models.AllCategoriesID, Name: models.AllCategoriesName}}
	for _, e := range stored {
		c := e.Value
		if strings.EqualFold(strings.TrimSpace(c.Name), models.AllCategoriesName) {
			continue
		}
		c.ID = e.Key
		categories = append(categories, c)
	}

	p.mu.Lock()
	p.categories = categories
	p.mu.Unlock()
	return nil
}

// FetchOne returns the product with id, looking at the loaded catalog
// first. It returns nil without error when the product does not exist.
func (p *Products) FetchOne(ctx context.Context, id string) (*models.Product, error) {
	done := p.begin()
	defer done()

	if prod, ok := p.find(id); ok {
		p.setCurrent(&prod)
		return &prod, nil
	}
	var prod models.Product
	found, err := p.remote.Read(ctx, repositories.Path("products", id), &prod)
	if err != nil {
		return nil, p.record(err)
	}
	if !found {
		p.setCurrent(nil)
		return nil, nil
	}
	prod.ID = id
	p.setCurrent(&prod)
	return &prod, nil
}

// Add stores a new product and returns its generated id.
func (p *Products) Add(ctx context.Context, product models.Product) (string, error) {
	if err := p.validate.Struct(product); err != nil {
		return "", p.record(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	done := p.begin()
	defer done()

	created := p.now().UTC()
	product.ID = ""
	product.CreatedAt = &created
	product.UpdatedAt = nil
	id, err := p.remote.AppendGenerateID(ctx, "products", product)
	if err != nil {
		log.Error().Err(err).Str("store", "products").Msg("add failed")
		return "", p.record(err)
	}
	return id, p.FetchAll(ctx)
}

// Update overwrites the editable fields of product id.
func (p *Products) Update(ctx context.Context, id string, product models.Product) error {
	if err := p.validate.Struct(product); err != nil {
		return p.record(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	done := p.begin()
	defer done()

	fields, err := productFields(product)
	if err != nil {
		return p.record(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	fields["updatedAt"] = p.now().UTC()
	if err := p.remote.Merge(ctx, repositories.Path("products", id), fields); err != nil {
		log.Error().Err(err).Str("store", "products").Str("product_id", id).Msg("update failed")
		return p.record(err)
	}
	return p.FetchAll(ctx)
}

// Delete removes product id.
func (p *Products) Delete(ctx context.Context, id string) error {
	done := p.begin()
	defer done()

	if err := p.remote.Delete(ctx, repositories.Path("products", id)); err != nil {
		log.Error().Err(err).Str("store", "products").Str("product_id", id).Msg("delete failed")
		return p.record(err)
	}
	return p.FetchAll(ctx)
}

// productFields lists the editable fields of product by stored name.
func productFields(product models.Product) (map[string]interface{}, error) {
	raw, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "id")
	delete(fields, "createdAt")
	delete(fields, "updatedAt")
	return fields, nil
}

// SetCategory filters by category name. "" and "All Categories" clear it.
func (p *Products) SetCategory(name string) {
	p.updateFilter(func(f *Filter) { f.Category = name })
}

// SetBrand filters by brand. "" clears it.
func (p *Products) SetBrand(brand string) {
	p.updateFilter(func(f *Filter) { f.Brand = brand })
}

// SetSortOption sets the ordering of SortedAndFilteredProducts.
func (p *Products) SetSortOption(option SortOption) {
	p.updateFilter(func(f *Filter) { f.Sort = option })
}

// SetSearchQuery sets the free-text query.
func (p *Products) SetSearchQuery(query string) {
	p.updateFilter(func(f *Filter) { f.Query = query })
}

// ClearFilters resets category, brand, sort and query.
func (p *Products) ClearFilters() {
	p.updateFilter(func(f *Filter) { *f = Filter{Sort: SortDefault} })
}

// Filter returns the current query state.
func (p *Products) Filter() Filter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter
}

// All returns a copy of the loaded catalog.
func (p *Products) All() []models.Product {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Product(nil), p.products...)
}

// Categories returns the loaded categories, "All Categories" first.
func (p *Products) Categories() []models.Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Category(nil), p.categories...)
}

// Current returns the product last resolved by FetchOne.
func (p *Products) Current() *models.Product {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}

// FilteredProducts applies the category, brand and query filters in that order.
func (p *Products) FilteredProducts() []models.Product {
	p.mu.RLock()
	f := p.filter
	products := p.products
	p.mu.RUnlock()

	result := make([]models.Product, 0, len(products))
	for _, prod := range products {
		if f.Category != "" && f.Category != models.AllCategoriesName && prod.Category != f.Category {
			continue
		}
		if f.Brand != "" && prod.Brand != f.Brand {
			continue
		}
		if !MatchesQuery(prod, f.Query) {
			continue
		}
		result = append(result, prod)
	}
	return result
}

// SortedAndFilteredProducts is FilteredProducts ordered by the sort option.
func (p *Products) SortedAndFilteredProducts() []models.Product {
	result := p.FilteredProducts()
	switch p.Filter().Sort {
	case SortPriceLow:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	case SortPriceHigh:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price > result[j].Price })
	}
	return result
}

// FeaturedProducts returns the products flagged as featured.
func (p *Products) FeaturedProducts() []models.Product {
	var featured []models.Product
	for _, prod := range p.All() {
		if prod.Featured {
			featured = append(featured, prod)
		}
	}
	return featured
}

// Brands lists the distinct non-empty brands in catalog order.
func (p *Products) Brands() []string {
	seen := make(map[string]bool)
	var brands []string
	for _, prod := range p.All() {
		if prod.Brand == "" || seen[prod.Brand] {
			continue
		}
		seen[prod.Brand] = true
		brands = append(brands, prod.Brand)
	}
	return brands
}

// Recommendations returns up to four other products.
func (p *Products) Recommendations(productID string) []models.Product {
	var recs []models.Product
	for _, prod := range p.All() {
		if prod.ID == productID {
			continue
		}
		recs = append(recs, prod)
		if len(recs) == 4 {
			break
		}
	}
	return recs
}

func (p *Products) find(id string) (models.Product, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, prod := range p.products {
		if prod.ID == id {
			return prod, true
		}
	}
	return models.Product{}, false
}

func (p *Products) setCurrent(prod *models.Product) {
	p.mu.Lock()
	p.current = prod
	p.mu.Unlock()
}

func (p *Products) updateFilter(fn func(*Filter)) {
	p.mu.Lock()
	fn(&p.filter)
	p.mu.Unlock()
	p.changed()
}
