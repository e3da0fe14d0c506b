// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "time"

// User is a persisted chat identity. Users are created on registration and
// never mutated or deleted by the chat core.
type User struct {
	ID           int64     // Stable identifier assigned once by the credential store.
	Username     string    // Unique, case-sensitive login and display name.
	PasswordHash string    // Opaque credential produced by the password hasher.
	CreatedAt    time.Time // Timestamp of registration.
}
