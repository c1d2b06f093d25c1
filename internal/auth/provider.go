// Package auth is the identity provider boundary: credential issuance,
// session tokens and identity-change notifications.
package auth

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDuplicateIdentity is returned when a credential already exists for the email.
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Session is what a provider hands back after creating or authenticating an identity.
type Session struct {
	UID   string
	Email string
	Token string
}

// Provider issues and ends authenticated sessions.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password string) (Session, error)
	Authenticate(ctx context.Context, email, password string) (Session, error)
	EndSession(ctx context.Context) error
	// Subscribe registers fn for identity changes. fn receives the new uid,
	// or "" when the session ends.
	Subscribe(fn func(uid string)) (unsubscribe func())
}

// notifier fans identity changes out to subscribers.
type notifier struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(string)
}

func (n *notifier) Subscribe(fn func(uid string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]func(string))
	}
	id := n.next
	n.next++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *notifier) notify(uid string) {
	n.mu.Lock()
	fns := make([]func(string), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(uid)
	}
}
