package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/bookexchange/internal/crypto"
	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
	"github.com/mrlokans/bookexchange/internal/storage/relational"
)

type testEnv struct {
	store     storage.Manager
	accounts  *AccountService
	books     *BookService
	exchanges *ExchangeService
	reports   *ReportService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := relational.NewSQLite(":memory:", crypto.NewHasher(bcrypt.MinCost))
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Disconnect(context.Background()) })

	return &testEnv{
		store:     store,
		accounts:  NewAccountService(store),
		books:     NewBookService(store),
		exchanges: NewExchangeService(store, store),
		reports:   NewReportService(store),
	}
}

func (env *testEnv) register(t *testing.T, username string) *entities.User {
	t.Helper()
	user, err := env.accounts.Register(context.Background(), RegisterInput{
		Username: username,
		Password: "secret",
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return user
}

func (env *testEnv) addBook(t *testing.T, owner *entities.User, title string) *entities.Book {
	t.Helper()
	book, err := env.books.Add(context.Background(), owner, BookInput{Title: title, Author: "Someone"})
	require.NoError(t, err)
	return book
}

func TestAccountService_RegisterValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Password: "x", Email: "a@b"}, "username"},
		{"blank username", RegisterInput{Username: "  ", Password: "x", Email: "a@b"}, "username"},
		{"missing password", RegisterInput{Username: "a", Email: "a@b"}, "password"},
		{"missing email", RegisterInput{Username: "a", Password: "x"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Register(ctx, tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	total, err := env.store.GetTotalUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAccountService_RegisterAndAuthenticate(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user, err := env.accounts.Register(ctx, RegisterInput{
		Username: " alice ",
		Password: "secret",
		Email:    "alice@example.com",
		FullName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password)

	got, err := env.accounts.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = env.accounts.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.accounts.Register(ctx, RegisterInput{Username: "alice", Password: "x", Email: "new@example.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicateUsername)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	user, err := env.accounts.UpdateProfile(ctx, "alice", ProfileInput{Email: "a@new.example.com", Address: "Home"})
	require.NoError(t, err)
	assert.Equal(t, "a@new.example.com", user.Email)

	profile, err := env.accounts.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Home", profile.Address)

	_, err = env.accounts.UpdateProfile(ctx, "alice", ProfileInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.accounts.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBookService_AvailableHidesOwnBooks(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.addBook(t, alice, "Dune")
	emma := env.addBook(t, bob, "Emma")

	books, err := env.books.Available(ctx, alice)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, emma.ID, books[0].ID)

	all, err := env.books.Available(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBookService_OwnerOnly(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	book := env.addBook(t, alice, "Dune")

	_, err := env.books.Update(ctx, bob, book.ID, BookInput{Title: "Mine now", Author: "Bob"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, env.books.Delete(ctx, bob, book.ID), ErrForbidden)

	updated, err := env.books.Update(ctx, alice, book.ID, BookInput{Title: "Dune", Author: "Frank Herbert", Condition: "Worn"})
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.True(t, updated.Available)

	_, err = env.books.Update(ctx, alice, book.ID, BookInput{Title: "", Author: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, env.books.Delete(ctx, alice, book.ID))
	assert.ErrorIs(t, env.books.Delete(ctx, alice, book.ID), storage.ErrNotFound)
}

func TestBookService_DeleteBlockedWhileReserved(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	book := env.addBook(t, alice, "Dune")

	_, err := env.exchanges.Request(ctx, bob, book.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.books.Delete(ctx, alice, book.ID), ErrBookInUse)
}

func TestBookService_EditWhileReserved(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	book := env.addBook(t, alice, "Dune")

	_, err := env.exchanges.Request(ctx, bob, book.ID)
	require.NoError(t, err)

	updated, err := env.books.Update(ctx, alice, book.ID, BookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.False(t, updated.Available)

	_, err = env.exchanges.Request(ctx, carol, book.ID)
	assert.ErrorIs(t, err, storage.ErrBookUnavailable)
}

func TestExchangeService_Request(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	book := env.addBook(t, alice, "Dune")

	_, err := env.exchanges.Request(ctx, alice, book.ID)
	assert.ErrorIs(t, err, ErrInvalidInput, "owners cannot request their own book")

	e, err := env.exchanges.Request(ctx, bob, book.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, e.ProviderID)
	assert.Equal(t, "Dune", e.BookTitle)
	assert.Equal(t, entities.ExchangeStatusPending, e.Status)

	_, err = env.exchanges.Request(ctx, carol, book.ID)
	assert.ErrorIs(t, err, storage.ErrBookUnavailable)

	_, err = env.exchanges.Request(ctx, carol, "999")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExchangeService_RoleRules(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	book := env.addBook(t, alice, "Dune")

	e, err := env.exchanges.Request(ctx, bob, book.ID)
	require.NoError(t, err)

	// Outsiders cannot touch it.
	_, err = env.exchanges.UpdateStatus(ctx, carol, e.ID, entities.ExchangeStatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)

	// Requester cannot accept or reject.
	_, err = env.exchanges.UpdateStatus(ctx, bob, e.ID, entities.ExchangeStatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.exchanges.UpdateStatus(ctx, bob, e.ID, entities.ExchangeStatusRejected)
	assert.ErrorIs(t, err, ErrForbidden)

	// Provider cannot cancel.
	_, err = env.exchanges.UpdateStatus(ctx, alice, e.ID, entities.ExchangeStatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	// Illegal transitions are reported before roles.
	_, err = env.exchanges.UpdateStatus(ctx, bob, e.ID, entities.ExchangeStatusCompleted)
	assert.ErrorIs(t, err, exchange.ErrInvalidTransition)

	accepted, err := env.exchanges.UpdateStatus(ctx, alice, e.ID, entities.ExchangeStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, entities.ExchangeStatusAccepted, accepted.Status)

	completed, err := env.exchanges.UpdateStatus(ctx, bob, e.ID, entities.ExchangeStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, entities.ExchangeStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
}

func TestExchangeService_RequesterCancels(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	book := env.addBook(t, alice, "Dune")

	e, err := env.exchanges.Request(ctx, bob, book.ID)
	require.NoError(t, err)

	_, err = env.exchanges.UpdateStatus(ctx, bob, e.ID, entities.ExchangeStatusCancelled)
	require.NoError(t, err)

	got, err := env.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, got.Available)

	mine, err := env.exchanges.ForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, entities.ExchangeStatusCancelled, mine[0].Status)
}

func TestAllowedActions(t *testing.T) {
	e := &entities.Exchange{RequesterID: "1", ProviderID: "2", Status: entities.ExchangeStatusPending}

	assert.Equal(t, []entities.ExchangeStatus{entities.ExchangeStatusCancelled}, AllowedActions(e, "1"))
	assert.Equal(t, []entities.ExchangeStatus{
		entities.ExchangeStatusAccepted,
		entities.ExchangeStatusRejected,
	}, AllowedActions(e, "2"))
	assert.Empty(t, AllowedActions(e, "3"))

	e.Status = entities.ExchangeStatusAccepted
	assert.Equal(t, []entities.ExchangeStatus{entities.ExchangeStatusCompleted}, AllowedActions(e, "1"))
	assert.Equal(t, []entities.ExchangeStatus{entities.ExchangeStatusCompleted}, AllowedActions(e, "2"))

	e.Status = entities.ExchangeStatusCompleted
	assert.Empty(t, AllowedActions(e, "1"))
}

func TestReportService_Summary(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	book := env.addBook(t, alice, "Dune")
	_, err := env.exchanges.Request(ctx, bob, book.ID)
	require.NoError(t, err)

	report, err := env.reports.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.TotalUsers)
	assert.Equal(t, int64(1), report.TotalBooks)
	assert.Equal(t, int64(1), report.TotalExchanges)
	require.Len(t, report.MostExchangedBooks, 1)
	assert.Equal(t, "Dune", report.MostExchangedBooks[0].Title)
	assert.Len(t, report.MostActiveUsers, 2)
	assert.False(t, report.GeneratedAt.IsZero())
}
