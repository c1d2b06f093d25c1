package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"etalase/internal/auth"
	"etalase/internal/mirror"
	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/rs/zerolog/log"
)

// SessionState is the authentication state of a Session.
type SessionState int

const (
	Anonymous SessionState = iota
	Authenticating
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "anonymous"
}

// IdentitySource exposes the current identity to the stores.
type IdentitySource interface {
	// Current returns a copy of the current identity, or nil when anonymous.
	Current() *models.Identity
}

// CollectionPeer is a per-identity store the session fetches on login and
// clears on logout.
type CollectionPeer interface {
	Fetch(ctx context.Context) error
	ClearLocal()
}

// OrdersPeer is the orders store as seen by the session.
type OrdersPeer interface {
	FetchAll(ctx context.Context) error
	ClearLocal()
}

// Peers are the stores a Session drives. Nil members are skipped.
type Peers struct {
	Cart      CollectionPeer
	Favorites CollectionPeer
	Orders    OrdersPeer
}

func (p Peers) clearLocal() {
	if p.Cart != nil {
		p.Cart.ClearLocal()
	}
	if p.Favorites != nil {
		p.Favorites.ClearLocal()
	}
	if p.Orders != nil {
		p.Orders.ClearLocal()
	}
}

// Session owns the current identity and its lifecycle.
type Session struct {
	observable

	provider auth.Provider
	remote   repositories.RemoteCollectionClient
	cache    *mirror.Cache
	now      func() time.Time

	mu       sync.RWMutex
	state    SessionState
	identity *models.Identity
	token    string
	peers    Peers

	startOnce   sync.Once
	unsubscribe func()
}

// NewSession creates an anonymous session.
func NewSession(provider auth.Provider, remote repositories.RemoteCollectionClient, cache *mirror.Cache) *Session {
	return &Session{
		provider: provider,
		remote:   remote,
		cache:    cache,
		now:      time.Now,
	}
}

// Bind sets the stores the session fetches and clears on identity changes.
func (s *Session) Bind(peers Peers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = peers
}

// Start subscribes to the provider's identity changes. Later calls do nothing.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.unsubscribe = s.provider.Subscribe(func(uid string) {
			s.onIdentityChange(ctx, uid)
		})
	})
}

// Stop drops the provider subscription.
func (s *Session) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Current returns a copy of the current identity, or nil when anonymous.
func (s *Session) Current() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

// State returns the authentication state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether an identity is present.
func (s *Session) IsAuthenticated() bool {
	return s.Current() != nil
}

// IsAdmin reports whether the current identity is an admin.
func (s *Session) IsAdmin() bool {
	return s.Current().IsAdmin()
}

// Token returns the provider token of the current session, if any.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Register creates a credential with the provider and stores a new user
// profile for it. No local validation is applied.
func (s *Session) Register(ctx context.Context, req models.RegisterRequest) (*models.Identity, error) {
	done := s.begin()
	defer done()
	s.setState(Authenticating)

	cred, err := s.provider.CreateIdentity(ctx, req.Email, req.Password)
	if err != nil {
		s.rollback(ctx)
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			return nil, s.record(err)
		}
		return nil, s.record(fmt.Errorf("%w: %w", ErrProvider, err))
	}

	identity := &models.Identity{
		ID:        cred.UID,
		Email:     req.Email,
		Role:      models.RoleUser,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: s.now().UTC(),
	}
	if err := s.remote.Write(ctx, repositories.Path("users", cred.UID), identity); err != nil {
		s.rollback(ctx)
		log.Error().Err(err).Str("uid", cred.UID).Msg("session: storing new profile failed")
		return nil, s.record(err)
	}

	s.authenticate(identity, cred.Token)
	log.Info().Str("uid", identity.ID).Msg("session: registered")
	return identity, nil
}

// Login authenticates with the provider, loads the stored profile and
// fetches the identity's cart, favorites and orders. Any failure signs the
// previous identity out, so the session ends up anonymous.
func (s *Session) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	done := s.begin()
	defer done()
	s.setState(Authenticating)

	cred, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		s.rollback(ctx)
		return nil, s.record(fmt.Errorf("%w: %w", ErrProvider, err))
	}

	identity, err := s.loadProfile(ctx, cred.UID)
	if err != nil {
		s.rollback(ctx)
		return nil, s.record(err)
	}

	s.authenticate(identity, cred.Token)
	log.Info().Str("uid", identity.ID).Str("role", string(identity.Role)).Msg("session: logged in")
	s.fetchPeers(ctx, true)
	return identity, nil
}

// Logout ends the provider session and clears the identity and every
// peer's local state. Local state is cleared even when the provider fails.
func (s *Session) Logout(ctx context.Context) error {
	done := s.begin()
	defer done()

	err := s.provider.EndSession(ctx)
	s.clear()
	if err != nil {
		log.Warn().Err(err).Msg("session: provider sign-out failed")
		return s.record(fmt.Errorf("%w: %w", ErrProvider, err))
	}
	return nil
}

// LoadFromMirror restores the identity saved in the Local Mirror Cache.
// A mirrored identity without an id is discarded.
func (s *Session) LoadFromMirror() *models.Identity {
	var identity models.Identity
	if !s.cache.Load(mirror.KeyUser, &identity) {
		return nil
	}
	if identity.ID == "" {
		log.Warn().Msg("session: mirrored identity has no id, discarding it")
		s.cache.Remove(mirror.KeyUser)
		s.mu.Lock()
		s.identity, s.token, s.state = nil, "", Anonymous
		s.mu.Unlock()
		s.changed()
		return nil
	}

	s.mu.Lock()
	s.identity = &identity
	s.state = Authenticated
	s.mu.Unlock()
	s.changed()

	cp := identity
	return &cp
}

// UpdateProfile merges the changed fields into the stored profile and,
// on success, into the current identity.
func (s *Session) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Identity, error) {
	current := s.Current()
	if current == nil {
		return nil, s.record(ErrNotAuthenticated)
	}
	done := s.begin()
	defer done()

	fields := update.Fields()
	if len(fields) == 0 {
		return current, nil
	}
	if err := s.remote.Merge(ctx, repositories.Path("users", current.ID), fields); err != nil {
		log.Warn().Err(err).Str("uid", current.ID).Msg("session: profile update failed")
		return nil, s.record(err)
	}

	s.mu.Lock()
	if s.identity != nil && s.identity.ID == current.ID {
		update.Apply(s.identity)
		current = s.identity
	}
	cp := *current
	s.mu.Unlock()

	s.cache.Save(mirror.KeyUser, cp)
	return &cp, nil
}

// Refresh re-reads the stored profile of the current identity.
func (s *Session) Refresh(ctx context.Context) (*models.Identity, error) {
	current := s.Current()
	if current == nil {
		return nil, s.record(ErrNotAuthenticated)
	}
	done := s.begin()
	defer done()

	identity, err := s.loadProfile(ctx, current.ID)
	if err != nil {
		return nil, s.record(err)
	}

	s.mu.Lock()
	if s.identity == nil || s.identity.ID != identity.ID {
		s.mu.Unlock()
		return nil, s.record(ErrNotAuthenticated)
	}
	s.identity = identity
	s.mu.Unlock()

	s.cache.Save(mirror.KeyUser, identity)
	cp := *identity
	return &cp, nil
}

func (s *Session) loadProfile(ctx context.Context, uid string) (*models.Identity, error) {
	var identity models.Identity
	found, err := s.remote.Read(ctx, repositories.Path("users", uid), &identity)
	if err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("session: reading profile failed")
		return nil, err
	}
	if !found {
		return nil, ErrProfileMissing
	}
	identity.ID = uid
	if identity.Role == "" {
		identity.Role = models.RoleUser
	}
	return &identity, nil
}

// onIdentityChange follows provider-side identity changes that did not
// originate from Register or Login.
func (s *Session) onIdentityChange(ctx context.Context, uid string) {
	s.mu.RLock()
	state, current := s.state, s.identity
	s.mu.RUnlock()

	if state == Authenticating {
		return
	}
	if uid == "" {
		if current != nil {
			s.clear()
		}
		return
	}
	if current != nil && current.ID == uid {
		return
	}

	identity, err := s.loadProfile(ctx, uid)
	if err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("session: ignoring identity change")
		return
	}
	s.authenticate(identity, s.Token())
	s.fetchPeers(ctx, false)
}

// authenticate installs identity. Peer state belonging to a different
// identity is dropped before anything can read it.
func (s *Session) authenticate(identity *models.Identity, token string) {
	s.mu.Lock()
	prev := s.identity
	s.identity = identity
	s.token = token
	s.state = Authenticated
	peers := s.peers
	s.mu.Unlock()

	if prev == nil || prev.ID != identity.ID {
		peers.clearLocal()
	}
	s.cache.Save(mirror.KeyUser, identity)
	s.changed()
}

// rollback ends the provider session after a failed login or registration
// and clears whatever identity was loaded before.
func (s *Session) rollback(ctx context.Context) {
	if err := s.provider.EndSession(ctx); err != nil {
		log.Warn().Err(err).Msg("session: rolling back provider session failed")
	}
	s.clear()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.state = Anonymous
	peers := s.peers
	s.mu.Unlock()

	s.cache.Remove(mirror.KeyUser)
	peers.clearLocal()
	s.changed()
}

// fetchPeers loads the per-identity stores. Their failures are recorded on
// the stores themselves.
func (s *Session) fetchPeers(ctx context.Context, withOrders bool) {
	s.mu.RLock()
	peers := s.peers
	s.mu.RUnlock()

	if peers.Cart != nil {
		if err := peers.Cart.Fetch(ctx); err != nil {
			log.Warn().Err(err).Msg("session: cart fetch failed")
		}
	}
	if peers.Favorites != nil {
		if err := peers.Favorites.Fetch(ctx); err != nil {
			log.Warn().Err(err).Msg("session: favorites fetch failed")
		}
	}
	if withOrders && peers.Orders != nil {
		if err := peers.Orders.FetchAll(ctx); err != nil {
			log.Warn().Err(err).Msg("session: orders fetch failed")
		}
	}
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.changed()
}
