package services_test

import (
	"context"
	"testing"

	"etalase/internal/models"
	"etalase/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, f *fixture, p models.Product) *models.Order {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cart.AddItem(ctx, p, 1))
	order, err := f.orders.Checkout(ctx, shipping(), "transfer")
	require.NoError(t, err)
	return order
}

func TestOrders_CreateRequiresIdentity(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	_, err := f.orders.Create(context.Background(), models.OrderDraft{})
	assert.ErrorIs(t, err, services.ErrNotAuthenticated)
}

func TestOrders_CreateValidatesDraft(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.register(t, "ana@example.com")

	_, err := f.orders.Create(context.Background(), models.OrderDraft{PaymentMethod: "cod", ShippingAddress: shipping()})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = f.orders.Checkout(context.Background(), shipping(), "cod")
	assert.ErrorIs(t, err, services.ErrInvalidInput, "empty cart")
}

func TestOrders_Checkout(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	id := f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, phone(), 3))
	lineID := f.cart.Lines()[0].ID

	order, err := f.orders.Checkout(ctx, shipping(), "transfer")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, id.ID, order.UserID)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.InDelta(t, 0.3, order.Total, 1e-9)
	assert.Equal(t, "Ana Putri", order.ShippingName())
	assert.True(t, f.cart.IsEmpty())

	all := f.orders.All()
	require.Len(t, all, 1)
	assert.Equal(t, order.ID, all[0].ID)
	require.Len(t, all[0].Items, 1)
	assert.Equal(t, lineID, all[0].Items[0].ID)
	assert.Equal(t, phone().ID, all[0].Items[0].ProductID)

	f.publisher.AssertCalled(t, "PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev models.OrderEvent) bool {
		return ev.Type == models.EventOrderCreated && ev.OrderID == order.ID && ev.UserID == id.ID
	}))
}

func TestOrders_AdminSeesUnionOfUserOrders(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()

	f.register(t, "ana@example.com")
	placeOrder(t, f, laptop())
	placeOrder(t, f, phone())
	require.NoError(t, f.session.Logout(ctx))

	f.register(t, "budi@example.com")
	placeOrder(t, f, laptop())
	assert.Len(t, f.orders.All(), 1, "users only see their own orders")
	require.NoError(t, f.session.Logout(ctx))

	admin := f.registerAdmin(t, "admin@example.com")
	require.NoError(t, f.orders.FetchAll(ctx))
	assert.Len(t, f.orders.All(), 3)
	assert.Empty(t, f.orders.UserOrders())

	owners := map[string]int{}
	for _, o := range f.orders.All() {
		assert.NotEmpty(t, o.ID)
		owners[o.UserID]++
	}
	assert.Len(t, owners, 2)
	assert.NotContains(t, owners, admin.ID)
}

func TestOrders_UpdateStatusRequiresAdmin(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	order := placeOrder(t, f, laptop())

	err := f.orders.UpdateStatus(ctx, order.ID, models.OrderShipped)
	assert.ErrorIs(t, err, services.ErrNotAuthorized)

	require.NoError(t, f.orders.FetchAll(ctx))
	for _, o := range f.orders.All() {
		assert.Equal(t, models.OrderPending, o.Status)
	}
}

func TestOrders_UpdateStatus(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	order := placeOrder(t, f, laptop())
	require.NoError(t, f.session.Logout(ctx))

	f.registerAdmin(t, "admin@example.com")
	require.NoError(t, f.orders.UpdateStatus(ctx, order.ID, models.OrderShipped))

	all := f.orders.All()
	require.Len(t, all, 1)
	assert.Equal(t, models.OrderShipped, all[0].Status)
	assert.Equal(t, order.Total, all[0].Total)

	f.publisher.AssertCalled(t, "PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev models.OrderEvent) bool {
		return ev.Type == models.EventOrderStatusUpdated && ev.Status == models.OrderShipped
	}))

	err := f.orders.UpdateStatus(ctx, "no-such-order", models.OrderShipped)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	assert.ErrorIs(t, err, services.ErrNotFound)

	err = f.orders.UpdateStatus(ctx, order.ID, models.OrderStatus("lost"))
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestOrders_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	failing := new(MockPublisher)
	failing.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(assert.AnError)
	orders := services.NewOrders(f.remote, f.session, f.cart, failing)

	f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(context.Background(), laptop(), 1))
	order, err := orders.Checkout(context.Background(), shipping(), "cod")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	failing.AssertNumberOfCalls(t, "PublishOrderEvent", 1)
}

func TestOrders_AnonymousFetchClears(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.register(t, "ana@example.com")
	placeOrder(t, f, laptop())
	require.NotEmpty(t, f.orders.All())

	require.NoError(t, f.session.Logout(context.Background()))
	require.NoError(t, f.orders.FetchAll(context.Background()))
	assert.Empty(t, f.orders.All())
	assert.Nil(t, f.orders.UserOrders())
}
