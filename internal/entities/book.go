package entities

import "time"

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ISBN        string    `json:"isbn,omitempty"`
	Description string    `json:"description,omitempty"`
	Condition   string    `json:"condition"`
	OwnerID     string    `json:"owner_id"`
	Available   bool      `json:"available"`
	AddedAt     time.Time `json:"added_at"`

	// Joined fields (not always populated).
	OwnerName     string `json:"owner_name,omitempty"`
	ExchangeCount int    `json:"exchange_count,omitempty"`
}
