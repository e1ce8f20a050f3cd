// Package storage defines the persistence contract of the book exchange.
//
// # Adapters
//
// Two adapters implement Manager:
//
//	storage/
//	├── relational/   # GORM over MySQL (SQLite in tests)
//	├── document/     # MongoDB collections with manual joins
//	├── backend/      # picks an adapter from config.Database
//	└── storagetest/  # conformance suite every adapter must pass
//
// Both adapters consult the exchange package for every exchange status
// change so the lifecycle behaves identically on either backend.
//
// # Errors
//
// Adapters never return backend-specific errors. Everything crossing this
// boundary is one of the errors declared in errors.go or an
// *exchange.TransitionError.
package storage

import (
	"context"

	"github.com/mrlokans/bookexchange/internal/entities"
)

// Manager is the storage port. Implementations must be safe for concurrent
// use; every method is a blocking call against the backend.
type Manager interface {
	// Connect opens the backend connection and prepares the schema.
	// Calling it on a connected manager is a no-op. A failure to create the
	// target database or schema returns *ConfigError; any other failure
	// returns *ConnectionError and leaves IsConnected false.
	Connect(ctx context.Context) error

	// Disconnect releases the connection. Safe to call repeatedly.
	Disconnect(ctx context.Context) error

	IsConnected() bool

	// Kind returns the backend kind this adapter serves ("mysql", "mongodb").
	Kind() string

	UserStore
	BookStore
	ExchangeStore
	ReportStore
}

// UserStore covers registration, login and profile updates.
type UserStore interface {
	// AuthenticateUser returns false, nil for unknown users and wrong
	// passwords. An error means the backend could not answer.
	AuthenticateUser(ctx context.Context, username, password string) (bool, error)

	// GetUserByUsername returns nil, nil when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)

	// RegisterUser hashes user.Password and stores the user, filling ID and
	// RegisteredAt. Duplicates return a *ConstraintError naming the field.
	RegisterUser(ctx context.Context, user *entities.User) error

	// UpdateUser changes email, full name and address of user.ID.
	// Username and password are never touched.
	UpdateUser(ctx context.Context, user *entities.User) error
}

// BookStore covers the owner-side book operations.
type BookStore interface {
	// GetAllBooks returns available books annotated with their owner's name.
	GetAllBooks(ctx context.Context) ([]entities.Book, error)

	// GetBooksByUser returns every book owned by username, available or not.
	// Unknown users yield an empty slice.
	GetBooksByUser(ctx context.Context, username string) ([]entities.Book, error)

	// GetBook returns nil, nil when the book does not exist.
	GetBook(ctx context.Context, id string) (*entities.Book, error)

	// AddBook stores book as available regardless of book.Available.
	AddBook(ctx context.Context, book *entities.Book) error

	// UpdateBook rewrites the descriptive fields of book.ID. Ownership and
	// availability are kept; book.Available is set to the stored value.
	UpdateBook(ctx context.Context, book *entities.Book) error

	// DeleteBook removes the book. Open exchanges are not checked here.
	//
	// Exchange history is backend specific: the relational adapter refuses
	// with a ConstraintError on book_id once any exchange references the book,
	// cancelled or rejected ones included, while the document adapter deletes
	// it and leaves the exchanges pointing at a missing book.
	DeleteBook(ctx context.Context, id string) error
}

// ExchangeStore covers exchange requests and their lifecycle.
type ExchangeStore interface {
	// GetExchangesByUser returns exchanges where username is requester or
	// provider, annotated with the book title and both usernames.
	GetExchangesByUser(ctx context.Context, username string) ([]entities.Exchange, error)

	// GetExchange returns nil, nil when the exchange does not exist.
	GetExchange(ctx context.Context, id string) (*entities.Exchange, error)

	// CreateExchange stores a PENDING exchange and marks the book
	// unavailable as one failure unit.
	CreateExchange(ctx context.Context, e *entities.Exchange) error

	// UpdateExchangeStatus moves the exchange to status and applies the
	// book side effect as one failure unit.
	UpdateExchangeStatus(ctx context.Context, id string, status entities.ExchangeStatus) error
}

// ReportStore covers the aggregate reports. Ties in the top-N reports are
// broken by identifier order.
type ReportStore interface {
	GetMostExchangedBooks(ctx context.Context, limit int) ([]entities.Book, error)
	GetMostActiveUsers(ctx context.Context, limit int) ([]entities.User, error)
	GetTotalExchanges(ctx context.Context) (int64, error)
	GetTotalBooks(ctx context.Context) (int64, error)
	GetTotalUsers(ctx context.Context) (int64, error)
}
