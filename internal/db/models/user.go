// Package models - user.go defines the User model for warehouse staff
// accounts.
package models

import "time"

// User represents a warehouse staff account. PasswordHash is a bcrypt hash;
// the raw password is never stored.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	Role         string    `db:"role"` // "admin", "supervisor", "picker", "packer"
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
