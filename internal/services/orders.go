package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// CartSource is the cart as seen by Orders during checkout.
type CartSource interface {
	Lines() []models.CartLine
	Clear(ctx context.Context) error
}

// Orders holds orders stored under orders/{uid}/{orderId}. Admins see every
// identity's orders, users only their own.
type Orders struct {
	observable

	remote    repositories.RemoteCollectionClient
	identity  IdentitySource
	cart      CartSource
	publisher EventPublisher
	validate  *validator.Validate
	now       func() time.Time

	mu     sync.RWMutex
	orders []models.Order
}

// NewOrders creates an orders store. cart and publisher may be nil.
func NewOrders(remote repositories.RemoteCollectionClient, identity IdentitySource, cart CartSource, publisher EventPublisher) *Orders {
	return &Orders{
		remote:    remote,
		identity:  identity,
		cart:      cart,
		publisher: publisher,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Create stores a pending order for the current identity and re-fetches.
func (o *Orders) Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	id := o.identity.Current()
	if id == nil {
		return nil, o.record(ErrNotAuthenticated)
	}
	if err := o.validate.Struct(draft); err != nil {
		return nil, o.record(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	done := o.begin()
	defer done()

	total := draft.Total
	if total == 0 {
		total = LinesTotal(draft.Items)
	}
	items := append([]models.CartLine(nil), draft.Items...)
	order := models.Order{
		UserID:          id.ID,
		Items:           items,
		Total:           total,
		Status:          models.OrderPending,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		CreatedAt:       o.now().UTC(),
	}
	orderID, err := o.remote.AppendGenerateID(ctx, repositories.Path("orders", id.ID), order)
	if err != nil {
		log.Error().Err(err).Str("store", "orders").Str("uid", id.ID).Msg("create failed")
		return nil, o.record(err)
	}
	order.ID = orderID
	log.Info().Str("order_id", orderID).Str("uid", id.ID).Float64("total", total).Msg("order created")

	o.publish(ctx, models.OrderEvent{
		Type:    models.EventOrderCreated,
		OrderID: orderID,
		UserID:  id.ID,
		Status:  order.Status,
		Total:   total,
		At:      order.CreatedAt,
	})

	if err := o.FetchAll(ctx); err != nil {
		return &order, err
	}
	return &order, nil
}

// Checkout creates an order from the bound cart and clears the cart.
func (o *Orders) Checkout(ctx context.Context, shipping models.ShippingAddress, paymentMethod string) (*models.Order, error) {
	if o.cart == nil {
		return nil, o.record(fmt.Errorf("%w: no cart bound", ErrInvalidInput))
	}
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, o.record(fmt.Errorf("%w: cart is empty", ErrInvalidInput))
	}
	order, err := o.Create(ctx, models.OrderDraft{
		Items:           lines,
		Total:           LinesTotal(lines),
		ShippingAddress: shipping,
		PaymentMethod:   paymentMethod,
	})
	if order == nil {
		return nil, err
	}
	if clearErr := o.cart.Clear(ctx); clearErr != nil {
		log.Warn().Err(clearErr).Str("order_id", order.ID).Msg("cart not cleared after checkout")
	}
	return order, err
}

// FetchAll loads every identity's orders for an admin, or the current
// identity's orders otherwise. An anonymous session gets none.
func (o *Orders) FetchAll(ctx context.Context) error {
	id := o.identity.Current()
	if id == nil {
		o.ClearLocal()
		return nil
	}
	done := o.begin()
	defer done()

	var orders []models.Order
	if id.IsAdmin() {
		tree, err := readOrderTree(ctx, o.remote)
		if err != nil {
			log.Warn().Err(err).Str("store", "orders").Msg("fetch all failed")
			return o.record(err)
		}
		for _, owner := range tree {
			orders = append(orders, annotate(owner.Key, owner.Value)...)
		}
	} else {
		sub, err := repositories.ReadCollection[models.Order](ctx, o.remote, repositories.Path("orders", id.ID))
		if err != nil {
			log.Warn().Err(err).Str("store", "orders").Str("uid", id.ID).Msg("fetch failed")
			return o.record(err)
		}
		orders = annotate(id.ID, sub)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	o.mu.Lock()
	o.orders = orders
	o.mu.Unlock()
	return nil
}

// UpdateStatus sets an order's status. Only admins may call it. The owning
// identity is found by scanning every identity's orders.
func (o *Orders) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	id := o.identity.Current()
	if !id.IsAdmin() {
		return o.record(ErrNotAuthorized)
	}
	if !status.Valid() {
		return o.record(fmt.Errorf("%w: %q", ErrInvalidStatus, status))
	}
	done := o.begin()
	defer done()

	tree, err := readOrderTree(ctx, o.remote)
	if err != nil {
		return o.record(err)
	}
	owner := ""
	for _, sub := range tree {
		for _, e := range sub.Value {
			if e.Key == orderID {
				owner = sub.Key
			}
		}
	}
	if owner == "" {
		return o.record(fmt.Errorf("%w: %s", ErrOrderNotFound, orderID))
	}

	if err := o.remote.Merge(ctx, repositories.Path("orders", owner, orderID), map[string]interface{}{
		"status": status,
	}); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("status update failed")
		return o.record(err)
	}
	log.Info().Str("order_id", orderID).Str("status", string(status)).Msg("order status updated")

	o.publish(ctx, models.OrderEvent{
		Type:    models.EventOrderStatusUpdated,
		OrderID: orderID,
		UserID:  owner,
		Status:  status,
		At:      o.now().UTC(),
	})
	return o.FetchAll(ctx)
}

// All returns a copy of the loaded orders.
func (o *Orders) All() []models.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.Order(nil), o.orders...)
}

// UserOrders returns the loaded orders that belong to the current identity.
func (o *Orders) UserOrders() []models.Order {
	id := o.identity.Current()
	if id == nil {
		return nil
	}
	var mine []models.Order
	for _, order := range o.All() {
		if order.UserID == id.ID {
			mine = append(mine, order)
		}
	}
	return mine
}

// ClearLocal drops the loaded orders.
func (o *Orders) ClearLocal() {
	o.mu.Lock()
	o.orders = nil
	o.mu.Unlock()
	o.record(nil)
	o.changed()
}

func (o *Orders) publish(ctx context.Context, event models.OrderEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishOrderEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.Type).Str("order_id", event.OrderID).Msg("publishing order event failed")
	}
}

// readOrderTree reads orders/{uid}/{orderId} for every identity.
func readOrderTree(ctx context.Context, remote repositories.RemoteCollectionClient) ([]repositories.Entry[[]repositories.Entry[models.Order]], error) {
	owners, err := repositories.ReadCollection[json.RawMessage](ctx, remote, "orders")
	if err != nil {
		return nil, err
	}
	tree := make([]repositories.Entry[[]repositories.Entry[models.Order]], 0, len(owners))
	for _, owner := range owners {
		sub, err := repositories.DecodeCollection[models.Order](owner.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: read orders/%s: %v", repositories.ErrRemote, owner.Key, err)
		}
		tree = append(tree, repositories.Entry[[]repositories.Entry[models.Order]]{Key: owner.Key, Value: sub})
	}
	return tree, nil
}

func annotate(uid string, sub []repositories.Entry[models.Order]) []models.Order {
	orders := make([]models.Order, 0, len(sub))
	for _, e := range sub {
		order := e.Value
		order.ID = e.Key
		order.UserID = uid
		orders = append(orders, order)
	}
	return orders
}
