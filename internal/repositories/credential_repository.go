package repositories

import (
	"errors"

	"etalase/internal/models"
)

// ErrCredentialNotFound is returned when no credential matches a lookup.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository defines the interface for credential data access.
type CredentialRepository interface {
	Create(cred *models.Credential) error
	GetByEmail(email string) (*models.Credential, error)
	GetByID(id string) (*models.Credential, error)
}
