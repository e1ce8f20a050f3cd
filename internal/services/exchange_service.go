package services

import (
	"context"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// ExchangeService decides who may drive an exchange:
//
//	ACCEPTED, REJECTED  provider only
//	CANCELLED           requester only
//	COMPLETED           either participant
//
// Whether the transition itself is legal is left to the exchange package.
type ExchangeService struct {
	books     storage.BookStore
	exchanges storage.ExchangeStore
}

func NewExchangeService(books storage.BookStore, exchanges storage.ExchangeStore) *ExchangeService {
	return &ExchangeService{books: books, exchanges: exchanges}
}

// Request asks the owner of bookID to hand the book to requester.
func (s *ExchangeService) Request(ctx context.Context, requester *entities.User, bookID string) (*entities.Exchange, error) {
	if err := required("book_id", bookID); err != nil {
		return nil, err
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, storage.ErrNotFound
	}
	if book.OwnerID == requester.ID {
		return nil, &ValidationError{Field: "book_id", Message: "cannot request your own book"}
	}
	if !book.Available {
		return nil, storage.ErrBookUnavailable
	}

	e := &entities.Exchange{
		RequesterID: requester.ID,
		ProviderID:  book.OwnerID,
		BookID:      book.ID,
	}
	if err := s.exchanges.CreateExchange(ctx, e); err != nil {
		return nil, err
	}
	return s.get(ctx, e.ID)
}

func (s *ExchangeService) ForUser(ctx context.Context, user *entities.User) ([]entities.Exchange, error) {
	return s.exchanges.GetExchangesByUser(ctx, user.Username)
}

// UpdateStatus moves exchange id to status on behalf of actor.
func (s *ExchangeService) UpdateStatus(ctx context.Context, actor *entities.User, id string, status entities.ExchangeStatus) (*entities.Exchange, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsParticipant(actor.ID) {
		return nil, ErrForbidden
	}
	if _, err := exchange.Plan(e.Status, status); err != nil {
		return nil, err
	}
	if !MayMoveTo(e, actor.ID, status) {
		return nil, ErrForbidden
	}

	if err := s.exchanges.UpdateExchangeStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// MayMoveTo reports whether userID's role in e allows moving it to status.
// It does not check the lifecycle.
func MayMoveTo(e *entities.Exchange, userID string, status entities.ExchangeStatus) bool {
	switch status {
	case entities.ExchangeStatusAccepted, entities.ExchangeStatusRejected:
		return e.ProviderID == userID
	case entities.ExchangeStatusCancelled:
		return e.RequesterID == userID
	case entities.ExchangeStatusCompleted:
		return e.IsParticipant(userID)
	}
	return false
}

// AllowedActions lists the statuses userID may move e to right now.
func AllowedActions(e *entities.Exchange, userID string) []entities.ExchangeStatus {
	var actions []entities.ExchangeStatus
	for _, next := range exchange.Next(e.Status) {
		if MayMoveTo(e, userID, next) {
			actions = append(actions, next)
		}
	}
	return actions
}

func (s *ExchangeService) get(ctx context.Context, id string) (*entities.Exchange, error) {
	e, err := s.exchanges.GetExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, storage.ErrNotFound
	}
	return e, nil
}
