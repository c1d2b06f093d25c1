package services

import (
	"context"
	"fmt"
	"sync"

	"etalase/internal/mirror"
	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CartOptions configures a Cart.
type CartOptions struct {
	// LocalFallback applies a mutation to the local state when the remote
	// write fails. The failure is still recorded on LastError.
	LocalFallback bool
}

// Cart is the per-identity shopping cart stored under cart/{uid}/{lineId}.
type Cart struct {
	observable

	remote   repositories.RemoteCollectionClient
	cache    *mirror.Cache
	identity IdentitySource
	opts     CartOptions

	mu    sync.RWMutex
	lines []models.CartLine
}

// NewCart creates an empty cart.
func NewCart(remote repositories.RemoteCollectionClient, cache *mirror.Cache, identity IdentitySource, opts CartOptions) *Cart {
	return &Cart{remote: remote, cache: cache, identity: identity, opts: opts}
}

func cartPath(uid string, line ...string) string {
	return repositories.Path(append([]string{"cart", uid}, line...)...)
}

// Fetch replaces the local lines with the identity's remote cart.
// An anonymous cart is simply emptied.
func (c *Cart) Fetch(ctx context.Context) error {
	done := c.begin()
	defer done()

	id := c.identity.Current()
	if id == nil {
		c.setLines(nil)
		return nil
	}

	stored, err := repositories.ReadCollection[models.CartLine](ctx, c.remote, cartPath(id.ID))
	if err != nil {
		log.Warn().Err(err).Str("store", "cart").Str("uid", id.ID).Msg("fetch failed")
		return c.record(err)
	}
	lines := make([]models.CartLine, 0, len(stored))
	for _, e := range stored {
		line := e.Value
		line.ID = e.Key
		lines = append(lines, line)
	}
	c.setLines(lines)
	return nil
}

// AddItem adds quantity of product. An existing line for the product has
// its quantity raised; otherwise a new line is appended.
func (c *Cart) AddItem(ctx context.Context, product models.Product, quantity int) error {
	if quantity < 1 {
		return c.record(fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput))
	}
	id := c.identity.Current()
	if id == nil {
		return c.record(ErrNotAuthenticated)
	}
	done := c.begin()
	defer done()

	var err error
	existing, ok := c.lineFor(product.ID)
	if ok {
		err = c.remote.Merge(ctx, cartPath(id.ID, existing.ID), map[string]interface{}{
			"productId": existing.ProductID,
			"product":   existing.Product,
			"quantity":  existing.Quantity + quantity,
		})
	} else {
		_, err = c.remote.AppendGenerateID(ctx, cartPath(id.ID), models.CartLine{
			ProductID: product.ID,
			Product:   product.Snapshot(),
			Quantity:  quantity,
		})
	}
	if err != nil {
		return c.fallback(err, "add", func(lines []models.CartLine) []models.CartLine {
			for i := range lines {
				if lines[i].ProductID == product.ID {
					lines[i].Quantity += quantity
					return lines
				}
			}
			return append(lines, models.CartLine{
				ID:        uuid.NewString(),
				ProductID: product.ID,
				Product:   product.Snapshot(),
				Quantity:  quantity,
			})
		})
	}
	return c.Fetch(ctx)
}

// SetQuantity sets a line's quantity. A quantity below 1 removes the line.
func (c *Cart) SetQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity < 1 {
		return c.RemoveItem(ctx, lineID)
	}
	id := c.identity.Current()
	if id == nil {
		return c.record(ErrNotAuthenticated)
	}
	if _, ok := c.line(lineID); !ok {
		return c.record(fmt.Errorf("%w: cart line %s", ErrNotFound, lineID))
	}
	done := c.begin()
	defer done()

	if err := c.remote.Merge(ctx, cartPath(id.ID, lineID), map[string]interface{}{"quantity": quantity}); err != nil {
		return c.fallback(err, "set quantity", func(lines []models.CartLine) []models.CartLine {
			for i := range lines {
				if lines[i].ID == lineID {
					lines[i].Quantity = quantity
				}
			}
			return lines
		})
	}
	return c.Fetch(ctx)
}

// RemoveItem deletes a line. It does nothing for an anonymous identity.
func (c *Cart) RemoveItem(ctx context.Context, lineID string) error {
	id := c.identity.Current()
	if id == nil {
		return nil
	}
	done := c.begin()
	defer done()

	if err := c.remote.Delete(ctx, cartPath(id.ID, lineID)); err != nil {
		return c.fallback(err, "remove", func(lines []models.CartLine) []models.CartLine {
			kept := lines[:0]
			for _, l := range lines {
				if l.ID != lineID {
					kept = append(kept, l)
				}
			}
			return kept
		})
	}
	return c.Fetch(ctx)
}

// Clear deletes the identity's remote cart and always empties the local one.
func (c *Cart) Clear(ctx context.Context) error {
	done := c.begin()
	defer done()

	var err error
	if id := c.identity.Current(); id != nil {
		if err = c.remote.Delete(ctx, cartPath(id.ID)); err != nil {
			log.Warn().Err(err).Str("store", "cart").Str("uid", id.ID).Msg("clear failed")
		}
	}
	c.setLines(nil)
	return c.record(err)
}

// ClearLocal empties the in-memory and mirrored cart without touching the remote one.
func (c *Cart) ClearLocal() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
	c.cache.Remove(mirror.KeyCart)
	c.record(nil)
	c.changed()
}

// Restore loads the mirrored cart.
func (c *Cart) Restore() {
	var lines []models.CartLine
	if !c.cache.Load(mirror.KeyCart, &lines) {
		return
	}
	c.mu.Lock()
	c.lines = lines
	c.mu.Unlock()
	c.changed()
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []models.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.CartLine(nil), c.lines...)
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice sums price times quantity over the lines, using each line's
// product snapshot price.
func (c *Cart) TotalPrice() float64 {
	return LinesTotal(c.Lines())
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines) == 0
}

// LinesTotal sums price times quantity in decimal arithmetic.
func LinesTotal(lines []models.CartLine) float64 {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.InexactFloat64()
}

func (c *Cart) line(lineID string) (models.CartLine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return models.CartLine{}, false
}

func (c *Cart) lineFor(productID string) (models.CartLine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return models.CartLine{}, false
}

// fallback handles a failed remote mutation. With LocalFallback the change
// is applied locally and nil returned; either way err is recorded.
func (c *Cart) fallback(err error, op string, apply func([]models.CartLine) []models.CartLine) error {
	log.Warn().Err(err).Str("store", "cart").Str("op", op).Bool("local_fallback", c.opts.LocalFallback).Msg("remote write failed")
	c.record(err)
	if !c.opts.LocalFallback {
		return err
	}
	c.mu.Lock()
	c.lines = apply(append([]models.CartLine(nil), c.lines...))
	lines := append([]models.CartLine(nil), c.lines...)
	c.mu.Unlock()
	c.cache.Save(mirror.KeyCart, lines)
	return nil
}

func (c *Cart) setLines(lines []models.CartLine) {
	c.mu.Lock()
	c.lines = lines
	c.mu.Unlock()
	if lines == nil {
		lines = []models.CartLine{}
	}
	c.cache.Save(mirror.KeyCart, lines)
	c.changed()
}
