package repositories

import (
	"errors"
	"fmt"
	"strings"

	"etalase/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCredentialRepository is a GORM implementation of CredentialRepository.
type GORMCredentialRepository struct {
	db *gorm.DB
}

// NewGORMCredentialRepository creates the repository and migrates its table.
func NewGORMCredentialRepository(db *gorm.DB) (*GORMCredentialRepository, error) {
	if err := db.AutoMigrate(&models.Credential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials: %w", err)
	}
	return &GORMCredentialRepository{db: db}, nil
}

// Create stores a new credential.
func (r *GORMCredentialRepository) Create(cred *models.Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	cred.Email = strings.ToLower(strings.TrimSpace(cred.Email))
	if err := r.db.Create(cred).Error; err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// GetByEmail retrieves a credential by email.
func (r *GORMCredentialRepository) GetByEmail(email string) (*models.Credential, error) {
	var cred models.Credential
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.First(&cred, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: email %s", ErrCredentialNotFound, email)
		}
		return nil, fmt.Errorf("failed to get credential by email %s: %w", email, err)
	}
	return &cred, nil
}

// GetByID retrieves a credential by ID.
func (r *GORMCredentialRepository) GetByID(id string) (*models.Credential, error) {
	var cred models.Credential
	if err := r.db.First(&cred, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrCredentialNotFound, id)
		}
		return nil, fmt.Errorf("failed to get credential by ID %s: %w", id, err)
	}
	return &cred, nil
}
