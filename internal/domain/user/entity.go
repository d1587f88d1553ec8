package user

import "time"

// User represents a row of the users table.
// Rows are never removed; IsDeleted marks a soft-deleted user.
type User struct {
	ID           string    // ID is a 36-character UUID assigned at creation
	FirstName    string    // FirstName is the user's given name
	LastName     string    // LastName is the user's family name
	Email        string    // Email is lowercased and unique among active users
	PasswordHash string    // PasswordHash is the bcrypt hash, never the raw password
	IsDeleted    bool      // IsDeleted is set by soft delete and never cleared
	CreatedAt    time.Time // CreatedAt is set once at insert
	UpdatedAt    time.Time // UpdatedAt is refreshed on update and soft delete
}

// IsActive reports whether the user has not been soft-deleted.
func (u *User) IsActive() bool {
	return u != nil && !u.IsDeleted
}
