package services

import (
	"errors"
	"fmt"

	"etalase/internal/auth"
	"etalase/internal/repositories"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a current identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAuthorized is returned when the current identity has the wrong role.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound is returned for an absent entity.
	ErrNotFound = errors.New("not found")
	// ErrProfileMissing is returned when an authenticated identity has no stored profile.
	ErrProfileMissing = fmt.Errorf("%w: profile missing for identity", ErrNotFound)
	// ErrOrderNotFound is returned when no identity's order subtree holds the order.
	ErrOrderNotFound = fmt.Errorf("%w: order", ErrNotFound)
	// ErrDuplicateIdentity is returned when registering an email that already has a credential.
	ErrDuplicateIdentity = auth.ErrDuplicateIdentity
	// ErrRemote wraps transport and backend failures.
	ErrRemote = repositories.ErrRemote
	// ErrProvider wraps identity provider failures other than duplicates.
	ErrProvider = errors.New("identity provider error")
	// ErrInvalidInput is returned when input fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidStatus is returned for an unknown order status.
	ErrInvalidStatus = fmt.Errorf("%w: order status", ErrInvalidInput)
)
