// Package domain contains core concepts of the messaging system.
// This file defines User entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type Provider string

const (
	ProviderCredentials Provider = "credentials"
	ProviderGoogle      Provider = "google"
)

// User is identified by its contact address (Email) across the whole system.
// PasswordHash never leaves the repository layer; public views use Sanitized.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Mobile       string    `json:"mobile,omitempty"`
	Image        string    `json:"image,omitempty"`
	Provider     Provider  `json:"provider"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sanitized returns a copy safe to expose to clients.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
