package models

import "time"

// Role is the authorization role of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity represents the authenticated principal of the current session.
// ID is always set on a non-nil Identity.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// RegisterRequest holds the fields submitted on registration.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ProfileUpdate carries optional profile changes. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// Fields returns the changed fields keyed by their stored names.
func (u ProfileUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.FirstName != nil {
		fields["firstName"] = *u.FirstName
	}
	if u.LastName != nil {
		fields["lastName"] = *u.LastName
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.Address != nil {
		fields["address"] = *u.Address
	}
	return fields
}

// Apply copies the changed fields onto identity.
func (u ProfileUpdate) Apply(identity *Identity) {
	if u.FirstName != nil {
		identity.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		identity.LastName = *u.LastName
	}
	if u.Phone != nil {
		identity.Phone = *u.Phone
	}
	if u.Address != nil {
		identity.Address = *u.Address
	}
}

// Credential is a stored email/password pair used by the local identity provider.
type Credential struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"createdAt"`
}
