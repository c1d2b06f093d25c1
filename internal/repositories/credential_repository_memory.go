package repositories

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"etalase/internal/models"

	"github.com/google/uuid"
)

// MemoryCredentialRepository is an in-memory implementation of CredentialRepository.
type MemoryCredentialRepository struct {
	byID    map[string]models.Credential
	byEmail map[string]string
	mu      sync.RWMutex
}

// NewMemoryCredentialRepository creates an empty repository.
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{
		byID:    make(map[string]models.Credential),
		byEmail: make(map[string]string),
	}
}

// Create adds a credential. Emails are unique.
func (r *MemoryCredentialRepository) Create(cred *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred.Email = strings.ToLower(strings.TrimSpace(cred.Email))
	if _, taken := r.byEmail[cred.Email]; taken {
		return fmt.Errorf("failed to create credential: email %s already exists", cred.Email)
	}
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now()
	}
	r.byID[cred.ID] = *cred
	r.byEmail[cred.Email] = cred.ID
	return nil
}

// GetByEmail returns the credential registered for email.
func (r *MemoryCredentialRepository) GetByEmail(email string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: email %s", ErrCredentialNotFound, email)
	}
	cred := r.byID[id]
	return &cred, nil
}

// GetByID returns the credential with the given ID.
func (r *MemoryCredentialRepository) GetByID(id string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrCredentialNotFound, id)
	}
	return &cred, nil
}
