package auth

import (
	"errors"
	"fmt"
	"time"

	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Service handles credential registration, password checks and session tokens.
type Service struct {
	repo       repositories.CredentialRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which a session token is valid
	revoked    *xsync.MapOf[string, time.Time]
}

// NewService creates a new Service.
func NewService(repo repositories.CredentialRepository, jwtSecret string) *Service {
	return &Service{
		repo:       repo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
		revoked:    xsync.NewMapOf[string, time.Time](),
	}
}

// Register stores a credential with a bcrypt-hashed password and returns a session for it.
func (s *Service) Register(email, password string) (Session, error) {
	if existing, err := s.repo.GetByEmail(email); err == nil && existing != nil {
		return Session{}, fmt.Errorf("%w: email '%s' already registered", ErrDuplicateIdentity, email)
	} else if err != nil && !errors.Is(err, repositories.ErrCredentialNotFound) {
		return Session{}, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}
	cred := &models.Credential{Email: email, PasswordHash: string(hashed)}
	if err := s.repo.Create(cred); err != nil {
		return Session{}, fmt.Errorf("failed to register credential: %w", err)
	}
	return s.session(cred)
}

// Login checks the password and returns a session with a signed token.
func (s *Service) Login(email, password string) (Session, error) {
	cred, err := s.repo.GetByEmail(email)
	if err != nil {
		// Unknown emails and wrong passwords are indistinguishable to callers.
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(cred)
}

func (s *Service) session(cred *models.Credential) (Session, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":   cred.ID,
		"email": cred.Email,
		"exp":   time.Now().Add(s.tokenDurat).Unix(),
		"iat":   time.Now().Unix(),
		"jti":   uuid.NewString(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return Session{UID: cred.ID, Email: cred.Email, Token: signed}, nil
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Debug().Err(err).Msg("token validation failed")
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if _, gone := s.revoked.Load(tokenString); gone {
		return nil, fmt.Errorf("invalid token: revoked")
	}
	return claims, nil
}

// Revoke rejects tokenString from now on. Entries are dropped once the
// token would have expired anyway.
func (s *Service) Revoke(tokenString string) {
	now := time.Now()
	s.revoked.Store(tokenString, now.Add(s.tokenDurat))
	s.revoked.Range(func(tok string, expires time.Time) bool {
		if expires.Before(now) {
			s.revoked.Delete(tok)
		}
		return true
	})
}
