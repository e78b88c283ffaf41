// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// PasswordHash and TokenVersion never leave the server: their json tag is "-".
// TokenVersion is bumped on every password reset and embedded in issued tokens,
// so a token minted before the reset stops resolving.
//
// WHY Name string (not *string)?
// The display name is optional. An empty string is the zero value and is
// simpler to carry around than a nullable pointer.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Name         string    `json:"name"      db:"name"`
	Email        string    `json:"email"     db:"email"` // lower-cased, unique
	PasswordHash string    `json:"-"         db:"password_hash"`
	Active       bool      `json:"active"    db:"active"`
	TokenVersion int       `json:"-"         db:"token_version"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the slice of a user that other entities expose when they
// reference one (a review's author, a book's adder).
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
