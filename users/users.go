package users

import (
	"time"
)

// User is the account part of a profile, as returned by the server.
type User struct {
	ID         int64     `json:"id"`                    // Server assigned identifier
	Username   string    `json:"username"`              // Unique login name
	Email      string    `json:"email,omitempty"`       // Contact address
	FirstName  string    `json:"first_name,omitempty"`  // Given name
	LastName   string    `json:"last_name,omitempty"`   // Family name
	DateJoined time.Time `json:"date_joined,omitempty"` // When the account was created
}

// DisplayName returns "First Last" falling back to the username.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Profile is the current user snapshot cached by the session.
// User fields are read-only on the server; Bio and Institution are editable.
type Profile struct {
	User        User      `json:"user"`
	Bio         string    `json:"bio"`
	Institution string    `json:"institution"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Clone returns a deep copy so callers can never mutate a cached snapshot.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Registration holds the fields sent to the register endpoint.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// ProfileUpdate is a partial update. Nil fields are not sent.
type ProfileUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Institution *string `json:"institution,omitempty"`
}

// IsEmpty reports whether the update carries no field at all.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Bio == nil && u.Institution == nil
}
