package entities

import (
	"fmt"
	"strings"
	"time"
)

type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "PENDING"
	ExchangeStatusAccepted  ExchangeStatus = "ACCEPTED"
	ExchangeStatusRejected  ExchangeStatus = "REJECTED"
	ExchangeStatusCancelled ExchangeStatus = "CANCELLED"
	ExchangeStatusCompleted ExchangeStatus = "COMPLETED"
)

// ExchangeStatuses lists every known status in lifecycle order.
var ExchangeStatuses = []ExchangeStatus{
	ExchangeStatusPending,
	ExchangeStatusAccepted,
	ExchangeStatusRejected,
	ExchangeStatusCancelled,
	ExchangeStatusCompleted,
}

// ParseExchangeStatus accepts a status name in any case and returns its
// canonical form.
func ParseExchangeStatus(s string) (ExchangeStatus, error) {
	candidate := ExchangeStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, status := range ExchangeStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown exchange status %q", s)
}

// IsOpen reports whether the exchange still holds its book.
func (s ExchangeStatus) IsOpen() bool {
	return s == ExchangeStatusPending || s == ExchangeStatusAccepted
}

// IsTerminal reports whether no further transition is allowed.
func (s ExchangeStatus) IsTerminal() bool {
	switch s {
	case ExchangeStatusRejected, ExchangeStatusCancelled, ExchangeStatusCompleted:
		return true
	}
	return false
}

type Exchange struct {
	ID          string         `json:"id"`
	RequesterID string         `json:"requester_id"`
	ProviderID  string         `json:"provider_id"`
	BookID      string         `json:"book_id"`
	Status      ExchangeStatus `json:"status"`
	RequestedAt time.Time      `json:"requested_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`

	// Joined fields (not always populated).
	BookTitle     string `json:"book_title,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
	ProviderName  string `json:"provider_name,omitempty"`
}

// IsParticipant reports whether userID is the requester or the provider.
func (e *Exchange) IsParticipant(userID string) bool {
	return userID != "" && (e.RequesterID == userID || e.ProviderID == userID)
}
