package auth

import (
	"context"
	"sync"
)

// LocalProvider runs a Service in-process and keeps the current session.
type LocalProvider struct {
	notifier
	svc     *Service
	mu      sync.RWMutex
	current Session
}

// NewLocalProvider creates a provider backed by svc.
func NewLocalProvider(svc *Service) *LocalProvider {
	return &LocalProvider{svc: svc}
}

func (p *LocalProvider) CreateIdentity(_ context.Context, email, password string) (Session, error) {
	sess, err := p.svc.Register(email, password)
	if err != nil {
		return Session{}, err
	}
	p.set(sess)
	return sess, nil
}

func (p *LocalProvider) Authenticate(_ context.Context, email, password string) (Session, error) {
	sess, err := p.svc.Login(email, password)
	if err != nil {
		return Session{}, err
	}
	p.set(sess)
	return sess, nil
}

func (p *LocalProvider) EndSession(_ context.Context) error {
	p.set(Session{})
	return nil
}

// Current returns the active session, if any.
func (p *LocalProvider) Current() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *LocalProvider) set(sess Session) {
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.notify(sess.UID)
}
