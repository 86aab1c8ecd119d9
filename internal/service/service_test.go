package service

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
	"github.com/doxlab/passbot/core/telegram/state"
	"github.com/doxlab/passbot/internal/flow"
	"github.com/doxlab/passbot/internal/generator"
	"github.com/doxlab/passbot/internal/model"
	"github.com/doxlab/passbot/internal/storage"
)

func TestMain(m *testing.M) {
	if err := logger.InitLogger(nil); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func setupService(t *testing.T) (*PasswordService, *flow.Controller) {
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

	store := storage.NewSQLStore(db)
	return New(store), flow.New(state.NewMemoryManager(), store, nil)
}

// Fast generation: the password lands in history with type "fast" and shows
// up first on the history page.
func TestFastGenerationRecordsHistory(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	const user int64 = 100

	password, err := svc.GenerateFast(ctx, user)
	require.NoError(t, err)
	assert.Len(t, password, generator.FastLength)

	page, err := svc.HistoryPage(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, password, page[0].Password)
	assert.Equal(t, model.GenerationFast, page[0].GenerationType)
	assert.Equal(t, user, page[0].UserID)
}

// Detailed generation through the flow: pick 16, drop symbols, generate.
func TestDetailedGenerationEndToEnd(t *testing.T) {
	svc, flows := setupService(t)
	ctx := context.Background()
	const user int64 = 200

	flows.StartDetailed(user)
	_, err := flows.ChooseLength(user, 16)
	require.NoError(t, err)
	_, err = flows.ToggleClass(user, "symbol")
	require.NoError(t, err)

	out, err := flows.FinishDetailed(ctx, user)
	require.NoError(t, err)
	require.True(t, out.Done)
	assert.Len(t, out.Password, 16)
	for _, r := range out.Password {
		assert.Contains(t, out.Classes.Pool(), string(r))
	}

	page, err := svc.HistoryPage(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, model.GenerationCustom, page[0].GenerationType)
	assert.Equal(t, out.Password, page[0].Password)
}

// Save a generated password under a description, then delete it.
func TestSaveGeneratedThenDelete(t *testing.T) {
	svc, flows := setupService(t)
	ctx := context.Background()
	const user int64 = 300

	password, err := svc.GenerateFast(ctx, user)
	require.NoError(t, err)
	flows.RememberGenerated(user, password)

	_, err = flows.StartSaveGenerated(user)
	require.NoError(t, err)
	out, err := flows.HandleText(ctx, user, "wifi at home")
	require.NoError(t, err)
	require.True(t, out.Done)

	entries, err := svc.ManagerPage(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wifi at home", entries[0].ServiceName)
	assert.Equal(t, password, entries[0].Password)
	assert.Empty(t, entries[0].Username)

	require.NoError(t, svc.DeleteEntry(ctx, user, entries[0].ID))
	entries, err = svc.ManagerPage(ctx, user, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = svc.DeleteEntry(ctx, user, out.EntryID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// Manual add through the flow, then list and delete.
func TestAddEntryEndToEnd(t *testing.T) {
	svc, flows := setupService(t)
	ctx := context.Background()
	const user int64 = 400

	flows.StartAddPassword(user)
	_, err := flows.HandleText(ctx, user, "bank")
	require.NoError(t, err)
	_, err = flows.HandleText(ctx, user, "me@example.com")
	require.NoError(t, err)
	_, err = flows.HandleText(ctx, user, "correct horse")
	require.NoError(t, err)
	out, err := flows.HandleText(ctx, user, "main account")
	require.NoError(t, err)
	require.True(t, out.Done)

	entries, err := svc.ManagerPage(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bank", entries[0].ServiceName)
	assert.Equal(t, "me@example.com", entries[0].Username)
	assert.Equal(t, "main account", entries[0].Notes)

	// Another user cannot delete it.
	err = svc.DeleteEntry(ctx, user+1, entries[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClearHistory(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	const user int64 = 500

	for i := 0; i < 3; i++ {
		_, err := svc.GenerateFast(ctx, user)
		require.NoError(t, err)
	}
	_, err := svc.GenerateFast(ctx, user+1)
	require.NoError(t, err)

	require.NoError(t, svc.ClearHistory(ctx, user))

	page, err := svc.HistoryPage(ctx, user, 0)
	require.NoError(t, err)
	assert.Empty(t, page)

	other, err := svc.HistoryPage(ctx, user+1, 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestStatsCountsAcrossUsers(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.GenerateFast(ctx, 1)
	require.NoError(t, err)
	_, err = svc.GenerateFast(ctx, 2)
	require.NoError(t, err)
	_, err = svc.SaveEntry(ctx, 3, "svc", "", "pw", "")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.HistoryTotal)
	assert.Equal(t, int64(1), stats.ManagerTotal)
	assert.Equal(t, int64(3), stats.UsersTotal)
}
