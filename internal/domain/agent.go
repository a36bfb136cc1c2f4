package domain

import "time"

// Agent models a support agent handling tickets. The assigned-ticket list is
// derived from tickets, never stored redundantly.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
