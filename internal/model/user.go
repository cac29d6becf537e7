package model

import "time"

// Roles recognised by the planning API.  Couples own weddings; vendors can
// only browse profiles.
const (
	RoleCouple = "COUPLE"
	RoleVendor = "VENDOR"
)

// MaxDisplayNameLen matches users.display_name.
const MaxDisplayNameLen = 120

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted because handlers expose the Profile
// projection instead.
//
// Fields:
//
//	ID           primary key identifier of the user.
//	Email        unique email address.
//	PasswordHash bcrypt hashed password.
//	Role         COUPLE or VENDOR.
//	DisplayName  name shown on the public profile.
//	IsActive     whether the account is active.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	DisplayName  string    // users.display_name
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile is the public view of a user.
type Profile struct {
	ID          uint64    `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile projects u onto its public fields.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, DisplayName: u.DisplayName, Role: u.Role, CreatedAt: u.CreatedAt}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
