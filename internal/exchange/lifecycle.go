// Package exchange holds the exchange state machine shared by every storage
// adapter.
//
//	PENDING  ──► ACCEPTED ──► COMPLETED
//	   │
//	   ├──────► REJECTED
//	   └──────► CANCELLED
//
// REJECTED, CANCELLED and COMPLETED are terminal. Adapters ask Plan what a
// transition does to the referenced book and apply that effect in the same
// failure unit as the status change.
package exchange

import (
	"errors"
	"fmt"

	"github.com/mrlokans/bookexchange/internal/entities"
)

// ErrInvalidTransition matches every *TransitionError.
var ErrInvalidTransition = errors.New("invalid exchange status transition")

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From entities.ExchangeStatus
	To   entities.ExchangeStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid exchange status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// BookChange is what a transition does to the book's availability flag.
type BookChange int

const (
	BookUnchanged BookChange = iota
	BookReserve              // available -> false
	BookRelease              // available -> true
)

// Effect describes the side effects of entering a status.
type Effect struct {
	Status        entities.ExchangeStatus
	Book          BookChange
	SetCompletion bool
}

var transitions = map[entities.ExchangeStatus][]entities.ExchangeStatus{
	entities.ExchangeStatusPending: {
		entities.ExchangeStatusAccepted,
		entities.ExchangeStatusRejected,
		entities.ExchangeStatusCancelled,
	},
	entities.ExchangeStatusAccepted: {
		entities.ExchangeStatusCompleted,
	},
}

// CanTransition reports whether from -> to is a defined transition.
func CanTransition(from, to entities.ExchangeStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from s. Terminal states return nil.
func Next(s entities.ExchangeStatus) []entities.ExchangeStatus {
	next := transitions[s]
	if len(next) == 0 {
		return nil
	}
	out := make([]entities.ExchangeStatus, len(next))
	copy(out, next)
	return out
}

// PlanCreate is the effect of creating an exchange.
func PlanCreate() Effect {
	return Effect{Status: entities.ExchangeStatusPending, Book: BookReserve}
}

// Plan validates from -> to and returns its effect.
//
// REJECTED releases the book exactly like CANCELLED. COMPLETED keeps the book
// reserved for good.
func Plan(from, to entities.ExchangeStatus) (Effect, error) {
	if !CanTransition(from, to) {
		return Effect{}, &TransitionError{From: from, To: to}
	}

	effect := Effect{Status: to}
	switch to {
	case entities.ExchangeStatusRejected, entities.ExchangeStatusCancelled:
		effect.Book = BookRelease
	case entities.ExchangeStatusCompleted:
		effect.SetCompletion = true
	}
	return effect, nil
}
