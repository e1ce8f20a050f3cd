package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/crypto"
	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
	"github.com/mrlokans/bookexchange/internal/storage/relational"
	"github.com/mrlokans/bookexchange/internal/storage/storagetest"
)

// testRuntime opens a fresh connection to the same SQLite file for every
// command, the way the real binary reconnects per invocation.
func testRuntime(t *testing.T) (Runtime, string, *int) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bookexchange.db")
	served := 0

	rt := Runtime{
		Version: "test",
		Config:  func() *config.Config { return &config.Config{} },
		OpenStore: func(ctx context.Context, _ *config.Config) (storage.Manager, error) {
			m := relational.NewSQLite(dbPath, crypto.NewHasher(bcrypt.MinCost))
			if err := m.Connect(ctx); err != nil {
				return nil, err
			}
			return m, nil
		},
		Serve: func(*config.Config, string) { served++ },
	}
	return rt, dbPath, &served
}

func openTestStore(t *testing.T, dbPath string) storage.Manager {
	t.Helper()
	m := relational.NewSQLite(dbPath, crypto.NewHasher(bcrypt.MinCost))
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(func() { m.Disconnect(context.Background()) })
	return m
}

func TestServeIsTheDefault(t *testing.T) {
	rt, _, served := testRuntime(t)

	require.NoError(t, NewApp(rt, &bytes.Buffer{}).Run([]string{"bookexchange"}))
	require.NoError(t, NewApp(rt, &bytes.Buffer{}).Run([]string{"bookexchange", "serve"}))

	assert.Equal(t, 2, *served)
}

func TestRegisterCommand(t *testing.T) {
	t.Run("creates the user", func(t *testing.T) {
		rt, dbPath, _ := testRuntime(t)
		out := &bytes.Buffer{}

		err := NewApp(rt, out).Run([]string{"bookexchange", "register",
			"--username", "alice", "--email", "alice@example.com", "--password", "secret",
			"--full-name", "Alice Liddell"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Registered user alice")

		store := openTestStore(t, dbPath)
		user, err := store.GetUserByUsername(context.Background(), "alice")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Alice Liddell", user.FullName)

		ok, err := store.AuthenticateUser(context.Background(), "alice", "secret")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("requires username, email and password", func(t *testing.T) {
		rt, _, _ := testRuntime(t)

		err := NewApp(rt, &bytes.Buffer{}).Run([]string{"bookexchange", "register", "--username", "alice"})
		assert.Error(t, err)
	})

	t.Run("duplicate username fails", func(t *testing.T) {
		rt, _, _ := testRuntime(t)
		args := []string{"bookexchange", "register", "--username", "alice", "--email", "a@example.com", "--password", "x"}
		require.NoError(t, NewApp(rt, &bytes.Buffer{}).Run(args))

		args[5] = "b@example.com"
		err := NewApp(rt, &bytes.Buffer{}).Run(args)
		assert.ErrorIs(t, err, storage.ErrDuplicateUsername)
	})
}

func TestReportCommand(t *testing.T) {
	rt, dbPath, _ := testRuntime(t)

	store := openTestStore(t, dbPath)
	alice := storagetest.RegisterUser(t, store, "alice")
	bob := storagetest.RegisterUser(t, store, "bob")
	dune := storagetest.AddBook(t, store, alice, "Dune")
	storagetest.RequestBook(t, store, bob, dune)
	require.NoError(t, store.Disconnect(context.Background()))

	t.Run("text", func(t *testing.T) {
		out := &bytes.Buffer{}
		require.NoError(t, NewApp(rt, out).Run([]string{"bookexchange", "report", "--limit", "1"}))

		text := out.String()
		assert.Contains(t, text, "Users:     2")
		assert.Contains(t, text, "Books:     1")
		assert.Contains(t, text, "Exchanges: 1")
		assert.Contains(t, text, "Dune")
		assert.Contains(t, text, "alice")
	})

	t.Run("json", func(t *testing.T) {
		out := &bytes.Buffer{}
		require.NoError(t, NewApp(rt, out).Run([]string{"bookexchange", "report", "--json", "-n", "5"}))

		var report services.Report
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, int64(2), report.TotalUsers)
		require.Len(t, report.MostExchangedBooks, 1)
		assert.Equal(t, "Dune", report.MostExchangedBooks[0].Title)
		assert.Len(t, report.MostActiveUsers, 2)
	})
}
