package services_test

import (
	"context"
	"testing"

	"etalase/internal/auth"
	"etalase/internal/middleware"
	"etalase/internal/mirror"
	"etalase/internal/models"
	"etalase/internal/repositories"
	"etalase/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Register(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()

	id := f.register(t, "ana@example.com")
	assert.NotEmpty(t, id.ID)
	assert.Equal(t, models.RoleUser, id.Role)
	assert.Equal(t, services.Authenticated, f.session.State())
	assert.True(t, f.session.IsAuthenticated())
	assert.False(t, f.session.IsAdmin())
	assert.NotEmpty(t, f.session.Token())

	var stored models.Identity
	found, err := f.remote.Read(ctx, repositories.Path("users", id.ID), &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ana@example.com", stored.Email)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.Equal(t, "Test", stored.FirstName)

	raw, ok, err := f.storage.GetItem(mirror.KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, raw, id.ID)
}

func TestSession_RegisterDuplicate(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.register(t, "ana@example.com")
	require.NoError(t, f.session.Logout(context.Background()))

	_, err := f.session.Register(context.Background(), models.RegisterRequest{Email: "ana@example.com", Password: "x"})
	assert.ErrorIs(t, err, services.ErrDuplicateIdentity)
	assert.Equal(t, services.Anonymous, f.session.State())
	assert.ErrorIs(t, f.session.LastError(), services.ErrDuplicateIdentity)
}

func TestSession_RegisterProfileWriteFails(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.remote.failWrites.Store(true)

	_, err := f.session.Register(context.Background(), models.RegisterRequest{Email: "ana@example.com", Password: "pw"})
	assert.ErrorIs(t, err, services.ErrRemote)
	assert.Equal(t, services.Anonymous, f.session.State())
	assert.Empty(t, f.provider.Current().UID, "provider session must be rolled back")
}

func TestSession_LoginFetchesPeers(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, laptop(), 2))
	require.NoError(t, f.favorites.AddFavorite(ctx, phone()))
	_, err := f.orders.Checkout(ctx, shipping(), "cod")
	require.NoError(t, err)
	require.NoError(t, f.cart.AddItem(ctx, phone(), 1))

	require.NoError(t, f.session.Logout(ctx))
	require.True(t, f.cart.IsEmpty())

	id, err := f.session.Login(ctx, "ana@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, services.Authenticated, f.session.State())
	assert.Equal(t, "ana@example.com", id.Email)

	assert.Equal(t, 1, f.cart.ItemCount())
	assert.True(t, f.favorites.IsFavorite(phone().ID))
	assert.Len(t, f.orders.All(), 1)
}

func TestSession_LoginWrongPassword(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	f.register(t, "ana@example.com")
	require.NoError(t, f.session.Logout(context.Background()))

	_, err := f.session.Login(context.Background(), "ana@example.com", "nope")
	assert.ErrorIs(t, err, services.ErrProvider)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, services.Anonymous, f.session.State())
	assert.Nil(t, f.session.Current())
}

func TestSession_LoginProfileMissing(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()

	// A credential without a stored profile.
	_, err := f.provider.CreateIdentity(ctx, "ghost@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, f.provider.EndSession(ctx))

	_, err = f.session.Login(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrProfileMissing)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, services.Anonymous, f.session.State())
	assert.Nil(t, f.session.Current())
	assert.Empty(t, f.provider.Current().UID, "provider session must be ended")
}

func TestSession_LogoutClearsPeers(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	id := f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, laptop(), 1))
	require.NoError(t, f.favorites.AddFavorite(ctx, laptop()))
	_, err := f.orders.Create(ctx, models.OrderDraft{
		Items:           f.cart.Lines(),
		ShippingAddress: shipping(),
		PaymentMethod:   "transfer",
	})
	require.NoError(t, err)

	require.NoError(t, f.session.Logout(ctx))

	assert.Nil(t, f.session.Current())
	assert.Equal(t, services.Anonymous, f.session.State())
	assert.True(t, f.cart.IsEmpty())
	assert.Zero(t, f.favorites.Count())
	assert.Empty(t, f.orders.All())
	for _, key := range []string{mirror.KeyUser, mirror.KeyCart, mirror.KeyFavorites} {
		_, ok, err := f.storage.GetItem(key)
		require.NoError(t, err)
		assert.False(t, ok, "mirror key %q should be gone", key)
	}

	// Remote state survives.
	found, err := f.remote.Read(ctx, repositories.Path("cart", id.ID), nil)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSession_LoadFromMirror(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	original := f.register(t, "ana@example.com")

	restored := services.NewSession(f.provider, f.remote, f.cache)
	got := restored.LoadFromMirror()
	require.NotNil(t, got)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Email, got.Email)
	assert.Equal(t, original.Role, got.Role)
	assert.Equal(t, original.FirstName, got.FirstName)
	assert.True(t, original.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, services.Authenticated, restored.State())
}

func TestSession_LoadFromMirrorDiscardsIdentityWithoutID(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	require.NoError(t, f.storage.SetItem(mirror.KeyUser, `{"email":"ana@example.com","role":"admin"}`))

	assert.Nil(t, f.session.LoadFromMirror())
	assert.Equal(t, services.Anonymous, f.session.State())
	_, ok, _ := f.storage.GetItem(mirror.KeyUser)
	assert.False(t, ok)

	require.NoError(t, f.storage.SetItem(mirror.KeyUser, `not json`))
	assert.Nil(t, f.session.LoadFromMirror())
}

func TestSession_UpdateProfile(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	phoneNo := "0812"

	_, err := f.session.UpdateProfile(ctx, models.ProfileUpdate{Phone: &phoneNo})
	assert.ErrorIs(t, err, services.ErrNotAuthenticated)

	id := f.register(t, "ana@example.com")
	updated, err := f.session.UpdateProfile(ctx, models.ProfileUpdate{Phone: &phoneNo})
	require.NoError(t, err)
	assert.Equal(t, "0812", updated.Phone)
	assert.Equal(t, "Test", updated.FirstName)

	var stored models.Identity
	_, err = f.remote.Read(ctx, repositories.Path("users", id.ID), &stored)
	require.NoError(t, err)
	assert.Equal(t, "0812", stored.Phone)
	assert.Equal(t, "ana@example.com", stored.Email)

	f.remote.failWrites.Store(true)
	other := "0999"
	_, err = f.session.UpdateProfile(ctx, models.ProfileUpdate{Phone: &other})
	assert.ErrorIs(t, err, services.ErrRemote)
	assert.Equal(t, "0812", f.session.Current().Phone, "failed update must not change local state")
}

func TestSession_FollowsProviderIdentityChanges(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, laptop(), 3))
	require.NoError(t, f.session.Logout(ctx))

	f.session.Start(ctx)
	defer f.session.Stop()

	// Sign-in that did not go through the session.
	_, err := f.provider.Authenticate(ctx, "ana@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, f.session.Current())
	assert.Equal(t, "ana@example.com", f.session.Current().Email)
	assert.Equal(t, 3, f.cart.ItemCount())

	require.NoError(t, f.provider.EndSession(ctx))
	assert.Nil(t, f.session.Current())
	assert.True(t, f.cart.IsEmpty())
}

func TestSession_SubscribeNotifies(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	calls := 0
	unsubscribe := f.session.Subscribe(func() { calls++ })
	f.register(t, "ana@example.com")
	assert.Positive(t, calls)

	unsubscribe()
	seen := calls
	require.NoError(t, f.session.Logout(context.Background()))
	assert.Equal(t, seen, calls)
}

func TestSession_FailedLoginSignsOutPreviousIdentity(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, laptop(), 1))

	_, err := f.session.Login(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	assert.Equal(t, services.Anonymous, f.session.State())
	assert.Nil(t, f.session.Current())
	assert.False(t, f.session.IsAuthenticated())
	assert.Empty(t, f.session.Token())
	assert.Empty(t, f.cart.Lines())
	_, ok, err := f.storage.GetItem(mirror.KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)

	decision, err := middleware.NewGuard(f.session).Navigate(models.RouteCart)
	require.NoError(t, err)
	assert.Equal(t, models.RouteLogin, decision.Redirect)
}

func TestSession_RegisterWhileSignedInDropsPreviousCart(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	ana := f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, laptop(), 1))

	budi := f.register(t, "budi@example.com")
	assert.Equal(t, budi.ID, f.session.Current().ID)
	assert.Equal(t, services.Authenticated, f.session.State())
	assert.Empty(t, f.cart.Lines())
	var mirrored []models.CartLine
	f.cache.Load(mirror.KeyCart, &mirrored)
	assert.Empty(t, mirrored)
	raw, ok, err := f.storage.GetItem(mirror.KeyUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, budi.ID)
	assert.NotContains(t, raw, ana.ID)

	require.NoError(t, f.cart.AddItem(ctx, laptop(), 1))
	lines := f.cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, laptop().ID, lines[0].ProductID)
	assert.Equal(t, laptop().Name, lines[0].Product.Name)
	assert.Equal(t, 1, lines[0].Quantity)

	var anaCart map[string]models.CartLine
	_, err = f.remote.Read(ctx, repositories.Path("cart", ana.ID), &anaCart)
	require.NoError(t, err)
	require.Len(t, anaCart, 1)
	for _, line := range anaCart {
		assert.Equal(t, 1, line.Quantity)
	}
}

func TestSession_LoginAsOtherIdentityAfterRestore(t *testing.T) {
	f := newFixture(t, services.CartOptions{})
	ctx := context.Background()
	budi := f.register(t, "budi@example.com")
	require.NoError(t, f.session.Logout(ctx))
	ana := f.register(t, "ana@example.com")
	require.NoError(t, f.cart.AddItem(ctx, laptop(), 2))

	// A second process over the same mirror.
	session := services.NewSession(f.provider, f.remote, f.cache)
	cart := services.NewCart(f.remote, f.cache, session, services.CartOptions{})
	favorites := services.NewFavorites(f.remote, f.cache, session)
	session.Bind(services.Peers{Cart: cart, Favorites: favorites})
	require.NotNil(t, session.LoadFromMirror())
	cart.Restore()
	require.Equal(t, 2, cart.ItemCount())

	_, err := session.Login(ctx, "budi@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, budi.ID, session.Current().ID)
	assert.Equal(t, services.Authenticated, session.State())
	assert.Empty(t, cart.Lines())
	raw, ok, err := f.storage.GetItem(mirror.KeyUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, ana.ID)

	// A failed fetch after switching must not resurrect the old cart.
	f.remote.failReads.Store(true)
	assert.Error(t, cart.Fetch(ctx))
	assert.Empty(t, cart.Lines())
}
