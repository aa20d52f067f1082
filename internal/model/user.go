package model

import "time"

// Roles carried in the access token's "role" claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. PasswordHash is never serialized.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated caller as extracted from a validated access
// token. The booking service receives this rather than a full User.
type Identity struct {
	ID    uint64
	Email string
	Name  string
	Role  string
}
