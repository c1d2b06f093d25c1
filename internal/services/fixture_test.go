package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"etalase/internal/auth"
	"etalase/internal/mirror"
	"etalase/internal/models"
	"etalase/internal/repositories"
	"etalase/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// flakyRemote wraps a MemoryRemote and fails mutations while failWrites is set.
type flakyRemote struct {
	*repositories.MemoryRemote
	failWrites atomic.Bool
	failReads  atomic.Bool
}

func (r *flakyRemote) Read(ctx context.Context, path string, dst interface{}) (bool, error) {
	if r.failReads.Load() {
		return false, errors.Join(repositories.ErrRemote, errInjected)
	}
	return r.MemoryRemote.Read(ctx, path, dst)
}

func (r *flakyRemote) Write(ctx context.Context, path string, value interface{}) error {
	if r.failWrites.Load() {
		return errors.Join(repositories.ErrRemote, errInjected)
	}
	return r.MemoryRemote.Write(ctx, path, value)
}

func (r *flakyRemote) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	if r.failWrites.Load() {
		return errors.Join(repositories.ErrRemote, errInjected)
	}
	return r.MemoryRemote.Merge(ctx, path, fields)
}

func (r *flakyRemote) Delete(ctx context.Context, path string) error {
	if r.failWrites.Load() {
		return errors.Join(repositories.ErrRemote, errInjected)
	}
	return r.MemoryRemote.Delete(ctx, path)
}

func (r *flakyRemote) AppendGenerateID(ctx context.Context, path string, value interface{}) (string, error) {
	if r.failWrites.Load() {
		return "", errors.Join(repositories.ErrRemote, errInjected)
	}
	return r.MemoryRemote.AppendGenerateID(ctx, path, value)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fixture struct {
	remote    *flakyRemote
	storage   *mirror.MemoryStorage
	cache     *mirror.Cache
	provider  *auth.LocalProvider
	session   *services.Session
	cart      *services.Cart
	favorites *services.Favorites
	orders    *services.Orders
	products  *services.Products
	publisher *MockPublisher
}

func newFixture(t *testing.T, opts services.CartOptions) *fixture {
	t.Helper()
	f := &fixture{
		remote:    &flakyRemote{MemoryRemote: repositories.NewMemoryRemote()},
		storage:   mirror.NewMemoryStorage(),
		publisher: new(MockPublisher),
	}
	f.publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.cache = mirror.NewCache(f.storage)
	f.provider = auth.NewLocalProvider(auth.NewService(repositories.NewMemoryCredentialRepository(), "test_jwt_secret"))
	f.session = services.NewSession(f.provider, f.remote, f.cache)
	f.cart = services.NewCart(f.remote, f.cache, f.session, opts)
	f.favorites = services.NewFavorites(f.remote, f.cache, f.session)
	f.orders = services.NewOrders(f.remote, f.session, f.cart, f.publisher)
	f.products = services.NewProducts(f.remote)
	f.session.Bind(services.Peers{Cart: f.cart, Favorites: f.favorites, Orders: f.orders})
	return f
}

func (f *fixture) register(t *testing.T, email string) *models.Identity {
	t.Helper()
	id, err := f.session.Register(context.Background(), models.RegisterRequest{
		Email:     email,
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return id
}

// registerAdmin registers an identity and promotes it to admin.
func (f *fixture) registerAdmin(t *testing.T, email string) *models.Identity {
	t.Helper()
	id := f.register(t, email)
	require.NoError(t, f.remote.Merge(context.Background(), repositories.Path("users", id.ID), map[string]interface{}{
		"role": models.RoleAdmin,
	}))
	refreshed, err := f.session.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, refreshed.IsAdmin())
	return refreshed
}

func (f *fixture) switchTo(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.session.Logout(context.Background()))
	_, err := f.session.Login(context.Background(), email, "password123")
	require.NoError(t, err)
}

func laptop() models.Product {
	return models.Product{ID: "p-laptop", Name: "ZenBook 14", Brand: "Asus", Category: "Laptops", Price: 999.99}
}

func phone() models.Product {
	return models.Product{ID: "p-phone", Name: "Galaxy S21", Brand: "Samsung", Category: "Smartphones", Price: 0.1}
}

func shipping() models.ShippingAddress {
	return models.ShippingAddress{FirstName: "Ana", LastName: "Putri", Street: "Jl. Merdeka 1", City: "Bandung"}
}
