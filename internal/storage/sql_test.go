package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/doxlab/passbot/core/database"
	"github.com/doxlab/passbot/core/logger"
	"github.com/doxlab/passbot/internal/model"
)

func TestMain(m *testing.M) {
	// The migrator logs through the global logger.
	if err := logger.InitLogger(nil); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// setupTestStore opens a named in-memory SQLite database unique to the test
// and applies the embedded migrations.
func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)
	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.Ping())
	t.Cleanup(func() { _ = db.Close() })

	cfg := database.Config{Driver: database.DriverSQLite, Path: ":memory:"}
	require.NoError(t, database.RunMigrations(db, cfg))

	return NewSQLStore(db)
}

func TestAddManagerEntryValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.AddManagerEntry(ctx, 1, "", "me", "secret", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = store.AddManagerEntry(ctx, 1, "   ", "me", "secret", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = store.AddManagerEntry(ctx, 1, "Gmail", "me", "", "")
	require.ErrorIs(t, err, ErrValidation)

	entries, err := store.ListManagerEntries(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected inserts must not leave rows behind")
}

func TestAddManagerEntryOptionalFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.AddManagerEntry(ctx, 1, "Gmail", "", "abc123", "")
	require.NoError(t, err)
	assert.Positive(t, id)

	entries, err := store.ListManagerEntries(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Gmail", entries[0].ServiceName)
	assert.Equal(t, "", entries[0].Username)
	assert.Equal(t, "", entries[0].Notes)
	assert.Equal(t, "abc123", entries[0].Password)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestDeleteManagerEntryOwnerIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const userA, userB = int64(100), int64(200)
	idB, err := store.AddManagerEntry(ctx, userB, "Bank", "b", "pw", "")
	require.NoError(t, err)

	// A guessing B's id must get the same answer as a missing id.
	err = store.DeleteManagerEntry(ctx, userA, idB)
	require.ErrorIs(t, err, ErrNotFound)

	entries, err := store.ListManagerEntries(ctx, userB, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "foreign delete attempt must not remove the row")
}

func TestDeleteManagerEntry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.AddManagerEntry(ctx, 1, "Gmail", "me", "pw", "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteManagerEntry(ctx, 1, id))
	require.ErrorIs(t, store.DeleteManagerEntry(ctx, 1, id), ErrNotFound)
}

func TestListHistoryOrderAndPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const userID = int64(7)
	var lastID int64
	for i := 0; i < 25; i++ {
		id, err := store.AppendHistory(ctx, userID, fmt.Sprintf("pw-%02d", i), model.GenerationFast)
		require.NoError(t, err)
		lastID = id
	}

	page0, err := store.ListHistory(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, page0, HistoryPageSize)
	assert.Equal(t, lastID, page0[0].ID, "newest entry first")
	assert.Equal(t, "pw-24", page0[0].Password)

	page2, err := store.ListHistory(ctx, userID, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	page3, err := store.ListHistory(ctx, userID, 3)
	require.NoError(t, err)
	assert.Empty(t, page3, "page past the end is empty, not an error")
}

func TestListHistoryStable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.AppendHistory(ctx, 1, fmt.Sprintf("pw-%d", i), model.GenerationCustom)
		require.NoError(t, err)
	}

	first, err := store.ListHistory(ctx, 1, 0)
	require.NoError(t, err)
	second, err := store.ListHistory(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClearHistoryIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ClearHistory(ctx, 1), "clearing empty history succeeds")

	_, err := store.AppendHistory(ctx, 1, "pw", model.GenerationFast)
	require.NoError(t, err)
	require.NoError(t, store.ClearHistory(ctx, 1))

	entries, err := store.ListHistory(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearHistoryScopedToUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.AppendHistory(ctx, 1, "mine", model.GenerationFast)
	require.NoError(t, err)
	_, err = store.AppendHistory(ctx, 2, "theirs", model.GenerationFast)
	require.NoError(t, err)

	require.NoError(t, store.ClearHistory(ctx, 1))

	other, err := store.ListHistory(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestListManagerEntriesPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := store.AddManagerEntry(ctx, 1, fmt.Sprintf("svc-%d", i), "", "pw", "")
		require.NoError(t, err)
	}

	page0, err := store.ListManagerEntries(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, page0, ManagerPageSize)
	assert.Equal(t, "svc-6", page0[0].ServiceName, "newest entry first")

	page1, err := store.ListManagerEntries(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page5, err := store.ListManagerEntries(ctx, 1, 5)
	require.NoError(t, err)
	assert.Empty(t, page5)
}

func TestStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.AppendHistory(ctx, 1, "pw1", model.GenerationFast)
	require.NoError(t, err)
	_, err = store.AppendHistory(ctx, 1, "pw2", model.GenerationCustom)
	require.NoError(t, err)
	_, err = store.AddManagerEntry(ctx, 1, "Gmail", "", "pw", "")
	require.NoError(t, err)
	_, err = store.AddManagerEntry(ctx, 2, "Bank", "", "pw", "")
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.HistoryTotal)
	assert.Equal(t, int64(2), stats.ManagerTotal)
	assert.Equal(t, int64(2), stats.UsersTotal)
}
