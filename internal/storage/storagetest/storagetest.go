// Package storagetest is the behavioral contract every storage.Manager
// implementation must satisfy. Adapter packages call Run from their own tests:
//
//	func TestConformance(t *testing.T) {
//		storagetest.Run(t, storagetest.Suite{
//			New:       newTestManager,
//			MissingID: "999999",
//		})
//	}
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// Suite configures Run for one adapter.
type Suite struct {
	// New returns a connected manager over an empty store. It should register
	// its own cleanup.
	New func(t *testing.T) storage.Manager

	// MissingID is a well-formed identifier that never names a stored entity.
	MissingID string
}

// Run executes the full contract against s.
func Run(t *testing.T, s Suite) {
	tests := []struct {
		name string
		fn   func(t *testing.T, m storage.Manager, missingID string)
	}{
		{"ConnectIsIdempotent", testConnectIsIdempotent},
		{"AuthenticateUser", testAuthenticateUser},
		{"RegisterAndGetUser", testRegisterAndGetUser},
		{"DuplicateUsernameAndEmail", testDuplicateUsernameAndEmail},
		{"UpdateUser", testUpdateUser},
		{"AddBookForcesAvailable", testAddBookForcesAvailable},
		{"AddBookUnknownOwner", testAddBookUnknownOwner},
		{"UpdateAndDeleteBook", testUpdateAndDeleteBook},
		{"UpdateBookKeepsReservation", testUpdateBookKeepsReservation},
		{"MissingEntities", testMissingEntities},
		{"CreateExchangeReservesBook", testCreateExchangeReservesBook},
		{"CreateExchangeRejectsUnavailableBook", testCreateExchangeRejectsUnavailableBook},
		{"CreateExchangeValidatesReferences", testCreateExchangeValidatesReferences},
		{"CancelRestoresAvailability", testCancelRestoresAvailability},
		{"RejectRestoresAvailability", testRejectRestoresAvailability},
		{"CompleteKeepsBookReserved", testCompleteKeepsBookReserved},
		{"TerminalStatesAreFinal", testTerminalStatesAreFinal},
		{"IllegalTransitions", testIllegalTransitions},
		{"ExchangesByUser", testExchangesByUser},
		{"CompletedExchangeScenario", testCompletedExchangeScenario},
		{"MostExchangedBooks", testMostExchangedBooks},
		{"MostActiveUsers", testMostActiveUsers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, s.New(t), s.MissingID)
		})
	}
}

// RegisterUser registers username with password "pw-"+username and
// email username@example.com.
func RegisterUser(t *testing.T, m storage.Manager, username string) *entities.User {
	t.Helper()
	user := &entities.User{
		Username: username,
		Password: "pw-" + username,
		Email:    username + "@example.com",
		FullName: "Full " + username,
		Address:  username + " street 1",
	}
	require.NoError(t, m.RegisterUser(context.Background(), user))
	require.NotEmpty(t, user.ID)
	return user
}

// AddBook adds a book titled title to owner's shelf.
func AddBook(t *testing.T, m storage.Manager, owner *entities.User, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:     title,
		Author:    "Author of " + title,
		ISBN:      "978-0000000000",
		Condition: "Good",
		OwnerID:   owner.ID,
	}
	require.NoError(t, m.AddBook(context.Background(), book))
	require.NotEmpty(t, book.ID)
	return book
}

// RequestBook creates an exchange of book from its owner to requester.
func RequestBook(t *testing.T, m storage.Manager, requester *entities.User, book *entities.Book) *entities.Exchange {
	t.Helper()
	e := &entities.Exchange{
		RequesterID: requester.ID,
		ProviderID:  book.OwnerID,
		BookID:      book.ID,
	}
	require.NoError(t, m.CreateExchange(context.Background(), e))
	require.NotEmpty(t, e.ID)
	return e
}

func getBook(t *testing.T, m storage.Manager, id string) *entities.Book {
	t.Helper()
	book, err := m.GetBook(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, book)
	return book
}

func availableIDs(t *testing.T, m storage.Manager) []string {
	t.Helper()
	books, err := m.GetAllBooks(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}

func testConnectIsIdempotent(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	assert.True(t, m.IsConnected())
	require.NoError(t, m.Connect(ctx))
	assert.True(t, m.IsConnected())
	assert.NotEmpty(t, m.Kind())
}

func testAuthenticateUser(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	RegisterUser(t, m, "alice")

	ok, err := m.AuthenticateUser(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.AuthenticateUser(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.AuthenticateUser(ctx, "nobody", "pw-alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.AuthenticateUser(ctx, "ALICE", "pw-alice")
	require.NoError(t, err)
	assert.False(t, ok, "username match is exact")
}

func testRegisterAndGetUser(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	before := time.Now().Add(-time.Second)
	alice := RegisterUser(t, m, "alice")

	assert.False(t, alice.RegisteredAt.Before(before))

	got, err := m.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Full alice", got.FullName)
	assert.Equal(t, "alice street 1", got.Address)
	assert.Empty(t, got.Password)
	assert.WithinDuration(t, alice.RegisteredAt, got.RegisteredAt, time.Second)
}

func testDuplicateUsernameAndEmail(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	RegisterUser(t, m, "alice")

	err := m.RegisterUser(ctx, &entities.User{Username: "alice", Password: "x", Email: "other@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrDuplicateUsername), "got %v", err)
	assert.False(t, errors.Is(err, storage.ErrDuplicateEmail))

	err = m.RegisterUser(ctx, &entities.User{Username: "alice2", Password: "x", Email: "alice@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrDuplicateEmail), "got %v", err)
	assert.False(t, errors.Is(err, storage.ErrDuplicateUsername))

	total, err := m.GetTotalUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func testUpdateUser(t *testing.T, m storage.Manager, missingID string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	RegisterUser(t, m, "bob")

	update := &entities.User{
		ID:       alice.ID,
		Username: "mallory",
		Password: "changed",
		Email:    "alice@new.example.com",
		FullName: "Alice Liddell",
		Address:  "Wonderland",
	}
	require.NoError(t, m.UpdateUser(ctx, update))

	got, err := m.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got, "username must not change")
	assert.Equal(t, "alice@new.example.com", got.Email)
	assert.Equal(t, "Alice Liddell", got.FullName)
	assert.Equal(t, "Wonderland", got.Address)

	ok, err := m.AuthenticateUser(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	assert.True(t, ok, "password must not change")

	err = m.UpdateUser(ctx, &entities.User{ID: alice.ID, Email: "bob@example.com"})
	assert.True(t, errors.Is(err, storage.ErrDuplicateEmail), "got %v", err)

	err = m.UpdateUser(ctx, &entities.User{ID: missingID, Email: "ghost@example.com"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testAddBookForcesAvailable(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")

	book := &entities.Book{Title: "Dune", Author: "Herbert", OwnerID: alice.ID, Available: false}
	require.NoError(t, m.AddBook(ctx, book))
	assert.True(t, book.Available)
	assert.False(t, book.AddedAt.IsZero())

	all, err := m.GetAllBooks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, book.ID, all[0].ID)
	assert.Equal(t, "Dune", all[0].Title)
	assert.Equal(t, "alice", all[0].OwnerName)
	assert.True(t, all[0].Available)

	mine, err := m.GetBooksByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.ID, mine[0].OwnerID)

	none, err := m.GetBooksByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAddBookUnknownOwner(t *testing.T, m storage.Manager, missingID string) {
	err := m.AddBook(context.Background(), &entities.Book{Title: "Orphan", Author: "Nobody", OwnerID: missingID})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrConstraint)
}

func testUpdateAndDeleteBook(t *testing.T, m storage.Manager, missingID string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")

	update := *book
	update.Title = "Dune Messiah"
	update.Description = "Second book"
	update.Condition = "Worn"
	update.OwnerID = bob.ID
	require.NoError(t, m.UpdateBook(ctx, &update))

	got := getBook(t, m, book.ID)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, "Second book", got.Description)
	assert.Equal(t, "Worn", got.Condition)
	assert.Equal(t, alice.ID, got.OwnerID, "owner must not change")
	assert.Equal(t, "alice", got.OwnerName)

	ghost := update
	ghost.ID = missingID
	assert.ErrorIs(t, m.UpdateBook(ctx, &ghost), storage.ErrNotFound)

	require.NoError(t, m.DeleteBook(ctx, book.ID))
	gone, err := m.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.ErrorIs(t, m.DeleteBook(ctx, book.ID), storage.ErrNotFound)
}

func testUpdateBookKeepsReservation(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	carol := RegisterUser(t, m, "carol")
	book := AddBook(t, m, alice, "Dune")

	// Owner loaded the book before bob reserved it.
	stale := getBook(t, m, book.ID)
	require.True(t, stale.Available)
	RequestBook(t, m, bob, book)

	stale.Title = "Dune (paperback)"
	require.NoError(t, m.UpdateBook(ctx, stale))
	assert.False(t, stale.Available, "caller sees the stored availability")

	got := getBook(t, m, book.ID)
	assert.Equal(t, "Dune (paperback)", got.Title)
	assert.False(t, got.Available, "a pending exchange keeps the book reserved")
	assert.NotContains(t, availableIDs(t, m), book.ID)

	err := m.CreateExchange(ctx, &entities.Exchange{RequesterID: carol.ID, ProviderID: alice.ID, BookID: book.ID})
	assert.ErrorIs(t, err, storage.ErrBookUnavailable)

	// The reverse direction is ignored as well.
	free := AddBook(t, m, alice, "Emma")
	free.Available = false
	require.NoError(t, m.UpdateBook(ctx, free))
	assert.True(t, free.Available)
	assert.True(t, getBook(t, m, free.ID).Available)
}

func testMissingEntities(t *testing.T, m storage.Manager, missingID string) {
	ctx := context.Background()

	user, err := m.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)

	book, err := m.GetBook(ctx, missingID)
	require.NoError(t, err)
	assert.Nil(t, book)

	e, err := m.GetExchange(ctx, missingID)
	require.NoError(t, err)
	assert.Nil(t, e)

	exchanges, err := m.GetExchangesByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, exchanges)

	_, err = m.GetBook(ctx, "not an id")
	assert.ErrorIs(t, err, storage.ErrInvalidID)
}

func testCreateExchangeReservesBook(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")
	other := AddBook(t, m, alice, "Emma")

	before := time.Now().Add(-time.Second)
	e := &entities.Exchange{
		RequesterID: bob.ID,
		ProviderID:  alice.ID,
		BookID:      book.ID,
		Status:      entities.ExchangeStatusCompleted,
	}
	require.NoError(t, m.CreateExchange(ctx, e))
	assert.Equal(t, entities.ExchangeStatusPending, e.Status)
	assert.False(t, e.RequestedAt.Before(before))
	assert.Nil(t, e.CompletedAt)

	assert.False(t, getBook(t, m, book.ID).Available)
	assert.Equal(t, []string{other.ID}, availableIDs(t, m))

	mine, err := m.GetBooksByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2, "reserved books stay on the owner's shelf")

	stored, err := m.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entities.ExchangeStatusPending, stored.Status)
	assert.Equal(t, "Dune", stored.BookTitle)
	assert.Equal(t, "bob", stored.RequesterName)
	assert.Equal(t, "alice", stored.ProviderName)
}

func testCreateExchangeRejectsUnavailableBook(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	carol := RegisterUser(t, m, "carol")
	book := AddBook(t, m, alice, "Dune")

	RequestBook(t, m, bob, book)

	err := m.CreateExchange(ctx, &entities.Exchange{RequesterID: carol.ID, ProviderID: alice.ID, BookID: book.ID})
	assert.ErrorIs(t, err, storage.ErrBookUnavailable)

	total, err := m.GetTotalExchanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func testCreateExchangeValidatesReferences(t *testing.T, m storage.Manager, missingID string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")

	err := m.CreateExchange(ctx, &entities.Exchange{RequesterID: bob.ID, ProviderID: alice.ID, BookID: missingID})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = m.CreateExchange(ctx, &entities.Exchange{RequesterID: alice.ID, ProviderID: bob.ID, BookID: book.ID})
	var ce *storage.ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "provider_id", ce.Field)

	assert.True(t, getBook(t, m, book.ID).Available, "failed requests must not reserve the book")

	total, err := m.GetTotalExchanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func testCancelRestoresAvailability(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")
	e := RequestBook(t, m, bob, book)

	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusCancelled))

	assert.True(t, getBook(t, m, book.ID).Available)
	assert.Equal(t, []string{book.ID}, availableIDs(t, m))

	got, err := m.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExchangeStatusCancelled, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func testRejectRestoresAvailability(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")
	e := RequestBook(t, m, bob, book)

	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusRejected))

	assert.True(t, getBook(t, m, book.ID).Available)

	// The book can be requested again.
	RequestBook(t, m, bob, book)
}

func testCompleteKeepsBookReserved(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")
	e := RequestBook(t, m, bob, book)

	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusAccepted))
	assert.False(t, getBook(t, m, book.ID).Available)

	before := time.Now().Add(-time.Second)
	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusCompleted))

	got, err := m.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExchangeStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(before))
	assert.False(t, getBook(t, m, book.ID).Available)
	assert.Empty(t, availableIDs(t, m))
}

func testTerminalStatesAreFinal(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")

	paths := map[entities.ExchangeStatus][]entities.ExchangeStatus{
		entities.ExchangeStatusCompleted: {entities.ExchangeStatusAccepted, entities.ExchangeStatusCompleted},
		entities.ExchangeStatusRejected:  {entities.ExchangeStatusRejected},
		entities.ExchangeStatusCancelled: {entities.ExchangeStatusCancelled},
	}

	for terminal, path := range paths {
		book := AddBook(t, m, alice, "Book "+string(terminal))
		e := RequestBook(t, m, bob, book)
		for _, status := range path {
			require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, status))
		}
		availableBefore := getBook(t, m, book.ID).Available

		for _, next := range entities.ExchangeStatuses {
			err := m.UpdateExchangeStatus(ctx, e.ID, next)
			assert.ErrorIs(t, err, exchange.ErrInvalidTransition, "%s -> %s", terminal, next)
		}

		got, err := m.GetExchange(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, got.Status)
		assert.Equal(t, availableBefore, getBook(t, m, book.ID).Available)
	}
}

func testIllegalTransitions(t *testing.T, m storage.Manager, missingID string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	book := AddBook(t, m, alice, "Dune")
	e := RequestBook(t, m, bob, book)

	for _, status := range []entities.ExchangeStatus{
		entities.ExchangeStatusPending,
		entities.ExchangeStatusCompleted,
		entities.ExchangeStatus("LOST"),
	} {
		err := m.UpdateExchangeStatus(ctx, e.ID, status)
		var te *exchange.TransitionError
		require.ErrorAs(t, err, &te, "PENDING -> %s", status)
		assert.Equal(t, entities.ExchangeStatusPending, te.From)
	}

	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusAccepted))
	assert.ErrorIs(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusCancelled), exchange.ErrInvalidTransition)
	assert.False(t, getBook(t, m, book.ID).Available)

	assert.ErrorIs(t, m.UpdateExchangeStatus(ctx, missingID, entities.ExchangeStatusAccepted), storage.ErrNotFound)
}

func testExchangesByUser(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	carol := RegisterUser(t, m, "carol")

	dune := AddBook(t, m, alice, "Dune")
	emma := AddBook(t, m, bob, "Emma")
	first := RequestBook(t, m, bob, dune)
	second := RequestBook(t, m, carol, emma)

	forBob, err := m.GetExchangesByUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, forBob, 2)
	assert.Equal(t, first.ID, forBob[0].ID)
	assert.Equal(t, second.ID, forBob[1].ID)
	assert.Equal(t, "Dune", forBob[0].BookTitle)
	assert.Equal(t, "bob", forBob[0].RequesterName)
	assert.Equal(t, "alice", forBob[0].ProviderName)
	assert.Equal(t, "carol", forBob[1].RequesterName)
	assert.Equal(t, "bob", forBob[1].ProviderName)

	forAlice, err := m.GetExchangesByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Equal(t, first.ID, forAlice[0].ID)

	forCarol, err := m.GetExchangesByUser(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, forCarol, 1)
	assert.Equal(t, second.ID, forCarol[0].ID)
}

// testCompletedExchangeScenario walks one book through its whole life and
// checks the reports afterwards.
func testCompletedExchangeScenario(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	dune := AddBook(t, m, alice, "Dune")

	e := RequestBook(t, m, bob, dune)
	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusAccepted))
	require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusCompleted))

	got, err := m.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	top, err := m.GetMostExchangedBooks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, dune.ID, top[0].ID)
	assert.Equal(t, "Dune", top[0].Title)
	assert.Equal(t, 1, top[0].ExchangeCount)

	books, err := m.GetTotalBooks(ctx)
	require.NoError(t, err)
	users, err := m.GetTotalUsers(ctx)
	require.NoError(t, err)
	exchanges, err := m.GetTotalExchanges(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), books)
	assert.Equal(t, int64(2), users)
	assert.Equal(t, int64(1), exchanges)
}

func testMostExchangedBooks(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")

	first := AddBook(t, m, alice, "First")
	second := AddBook(t, m, alice, "Second")
	AddBook(t, m, alice, "Never requested")
	popular := AddBook(t, m, alice, "Popular")

	for i := 0; i < 3; i++ {
		e := RequestBook(t, m, bob, popular)
		require.NoError(t, m.UpdateExchangeStatus(ctx, e.ID, entities.ExchangeStatusCancelled))
	}
	RequestBook(t, m, bob, second)
	RequestBook(t, m, bob, first)

	top, err := m.GetMostExchangedBooks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, popular.ID, top[0].ID)
	assert.Equal(t, 3, top[0].ExchangeCount)
	assert.Equal(t, "alice", top[0].OwnerName)
	// Ties break on identifier order.
	assert.Equal(t, first.ID, top[1].ID)
	assert.Equal(t, second.ID, top[2].ID)

	limited, err := m.GetMostExchangedBooks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, popular.ID, limited[0].ID)

	empty, err := m.GetMostExchangedBooks(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testMostActiveUsers(t *testing.T, m storage.Manager, _ string) {
	ctx := context.Background()
	alice := RegisterUser(t, m, "alice")
	bob := RegisterUser(t, m, "bob")
	carol := RegisterUser(t, m, "carol")
	dave := RegisterUser(t, m, "dave")

	dune := AddBook(t, m, alice, "Dune")
	emma := AddBook(t, m, alice, "Emma")
	RequestBook(t, m, bob, dune)
	RequestBook(t, m, carol, emma)

	// alice: 2 (provider twice), bob: 1, carol: 1, dave: 0
	top, err := m.GetMostActiveUsers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, alice.ID, top[0].ID)
	assert.Equal(t, 2, top[0].ExchangeCount)
	assert.Equal(t, bob.ID, top[1].ID)
	assert.Equal(t, carol.ID, top[2].ID)
	assert.Equal(t, 1, top[2].ExchangeCount)
	assert.Equal(t, dave.ID, top[3].ID)
	assert.Equal(t, 0, top[3].ExchangeCount)
	for _, u := range top {
		assert.Empty(t, u.Password)
	}

	limited, err := m.GetMostActiveUsers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, alice.ID, limited[0].ID)
	assert.Equal(t, bob.ID, limited[1].ID)

	empty, err := m.GetMostActiveUsers(ctx, -1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
