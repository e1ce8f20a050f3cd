package entities

import "time"

// User is a registered member of the exchange.
//
// Password is only ever set on the way in (registration). Reads never
// populate it.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Password     string    `json:"-"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Address      string    `json:"address"`
	RegisteredAt time.Time `json:"registered_at"`

	// Reporting only, never persisted.
	ExchangeCount int `json:"exchange_count,omitempty"`
}
