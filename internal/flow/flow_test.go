package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doxlab/passbot/core/telegram/state"
	"github.com/doxlab/passbot/internal/generator"
)

type fakeStore struct {
	history []fakeHistory
	entries []fakeEntry
	nextID  int64
	failAdd error
}

type fakeHistory struct {
	userID   int64
	password string
	genType  string
}

type fakeEntry struct {
	id       int64
	userID   int64
	service  string
	username string
	password string
	notes    string
}

func (s *fakeStore) AppendHistory(_ context.Context, userID int64, password, generationType string) (int64, error) {
	s.history = append(s.history, fakeHistory{userID: userID, password: password, genType: generationType})
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) AddManagerEntry(_ context.Context, userID int64, service, username, password, notes string) (int64, error) {
	if s.failAdd != nil {
		return 0, s.failAdd
	}
	s.nextID++
	s.entries = append(s.entries, fakeEntry{
		id:       s.nextID,
		userID:   userID,
		service:  service,
		username: username,
		password: password,
		notes:    notes,
	})
	return s.nextID, nil
}

func newController(store *fakeStore) *Controller {
	return New(state.NewMemoryManager(), store, nil)
}

const userID int64 = 42

func TestAddPasswordFlow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	out := c.StartAddPassword(userID)
	assert.Equal(t, StepService, out.Step)
	assert.True(t, c.InProgress(userID))

	out, err := c.HandleText(ctx, userID, "  github.com  ")
	require.NoError(t, err)
	assert.Equal(t, StepUsername, out.Step)

	out, err = c.HandleText(ctx, userID, "octocat")
	require.NoError(t, err)
	assert.Equal(t, StepPassword, out.Step)

	out, err = c.HandleText(ctx, userID, "hunter2!")
	require.NoError(t, err)
	assert.Equal(t, StepNotes, out.Step)

	out, err = c.HandleText(ctx, userID, "work account")
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, state.StateIdle, out.Step)
	assert.Equal(t, "github.com", out.Service)
	assert.False(t, c.InProgress(userID))

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, userID, entry.userID)
	assert.Equal(t, "github.com", entry.service)
	assert.Equal(t, "octocat", entry.username)
	assert.Equal(t, "hunter2!", entry.password)
	assert.Equal(t, "work account", entry.notes)
}

func TestAddPasswordSkipOptionalFields(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	c.StartAddPassword(userID)
	_, err := c.HandleText(ctx, userID, "mail")
	require.NoError(t, err)

	out, err := c.Skip(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StepPassword, out.Step)

	_, err = c.HandleText(ctx, userID, "s3cret")
	require.NoError(t, err)

	out, err = c.Skip(ctx, userID)
	require.NoError(t, err)
	assert.True(t, out.Done)

	require.Len(t, store.entries, 1)
	assert.Empty(t, store.entries[0].username)
	assert.Empty(t, store.entries[0].notes)
}

func TestSkipRejectedOnRequiredStep(t *testing.T) {
	ctx := context.Background()
	c := newController(&fakeStore{})

	c.StartAddPassword(userID)
	out, err := c.Skip(ctx, userID)
	require.NoError(t, err)
	assert.True(t, out.Invalid)
	assert.Equal(t, StepService, out.Step)
	assert.Equal(t, StepService, c.Current(userID))
}

func TestInvalidInputRepromptsWithoutAdvancing(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	c.StartAddPassword(userID)
	out, err := c.HandleText(ctx, userID, "   ")
	require.NoError(t, err)
	assert.True(t, out.Invalid)
	assert.Equal(t, StepService, out.Step)
	assert.Equal(t, StepService, c.Current(userID))

	// Flow continues normally after the bad input.
	out, err = c.HandleText(ctx, userID, "gitlab")
	require.NoError(t, err)
	assert.Equal(t, StepUsername, out.Step)
	assert.Empty(t, store.entries)
}

func TestDetailedGenerationFlow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	out := c.StartDetailed(userID)
	assert.Equal(t, StepLength, out.Step)

	out, err := c.ChooseLength(userID, 16)
	require.NoError(t, err)
	assert.Equal(t, StepClasses, out.Step)
	assert.Equal(t, 16, out.Length)
	assert.Equal(t, generator.AllClasses(), out.Classes)

	out, err = c.ToggleClass(userID, "symbol")
	require.NoError(t, err)
	assert.False(t, out.Classes.Symbol)
	assert.True(t, out.Classes.Lower)

	out, err = c.FinishDetailed(ctx, userID)
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Len(t, out.Password, 16)
	assert.False(t, c.InProgress(userID))

	require.Len(t, store.history, 1)
	assert.Equal(t, "custom", store.history[0].genType)
	assert.Equal(t, out.Password, store.history[0].password)

	got, ok := c.LastGenerated(userID)
	require.True(t, ok)
	assert.Equal(t, out.Password, got)
}

func TestDetailedLengthTyped(t *testing.T) {
	ctx := context.Background()
	c := newController(&fakeStore{})

	c.StartDetailed(userID)

	out, err := c.HandleText(ctx, userID, "13")
	require.NoError(t, err)
	assert.True(t, out.Invalid)
	assert.Equal(t, StepLength, out.Step)

	out, err = c.HandleText(ctx, userID, "24")
	require.NoError(t, err)
	assert.Equal(t, StepClasses, out.Step)
	assert.Equal(t, 24, out.Length)
}

func TestFinishDetailedRejectsEmptyClasses(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	c.StartDetailed(userID)
	_, err := c.ChooseLength(userID, 8)
	require.NoError(t, err)
	for _, class := range []string{"lower", "upper", "digit", "symbol"} {
		_, err = c.ToggleClass(userID, class)
		require.NoError(t, err)
	}

	out, err := c.FinishDetailed(ctx, userID)
	require.NoError(t, err)
	assert.True(t, out.Invalid)
	assert.Equal(t, StepClasses, out.Step)
	assert.Empty(t, store.history)
	assert.Equal(t, StepClasses, c.Current(userID))
}

func TestSaveGeneratedFlow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	_, err := c.StartSaveGenerated(userID)
	assert.ErrorIs(t, err, ErrNoGenerated)

	c.RememberGenerated(userID, "Xy9!pass")
	out, err := c.StartSaveGenerated(userID)
	require.NoError(t, err)
	assert.Equal(t, StepDescription, out.Step)

	out, err = c.HandleText(ctx, userID, "router admin")
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, "router admin", out.Service)

	require.Len(t, store.entries, 1)
	assert.Equal(t, "router admin", store.entries[0].service)
	assert.Equal(t, "Xy9!pass", store.entries[0].password)
	assert.Empty(t, store.entries[0].username)
}

func TestStartReplacesActiveFlow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := newController(store)

	c.StartAddPassword(userID)
	_, err := c.HandleText(ctx, userID, "old-service")
	require.NoError(t, err)

	// Starting a new flow discards the half-finished one.
	out := c.StartDetailed(userID)
	assert.Equal(t, StepLength, out.Step)
	origin, ok := c.Origin(userID)
	require.True(t, ok)
	assert.Equal(t, OriginDetailed, origin)

	// The stale service field must not leak into a later add flow.
	c.StartAddPassword(userID)
	_, err = c.HandleText(ctx, userID, "new-service")
	require.NoError(t, err)
	_, err = c.Skip(ctx, userID)
	require.NoError(t, err)
	_, err = c.HandleText(ctx, userID, "pass")
	require.NoError(t, err)
	_, err = c.Skip(ctx, userID)
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	assert.Equal(t, "new-service", store.entries[0].service)
}

func TestCancelKeepsLastGenerated(t *testing.T) {
	c := newController(&fakeStore{})

	c.RememberGenerated(userID, "keepme123")
	c.StartAddPassword(userID)
	c.Cancel(userID)

	assert.False(t, c.InProgress(userID))
	_, ok := c.Origin(userID)
	assert.False(t, ok)
	got, ok := c.LastGenerated(userID)
	require.True(t, ok)
	assert.Equal(t, "keepme123", got)
}

func TestStorageFailureResetsFlow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{failAdd: errors.New("disk full")}
	c := newController(store)

	c.StartAddPassword(userID)
	_, err := c.HandleText(ctx, userID, "svc")
	require.NoError(t, err)
	_, err = c.HandleText(ctx, userID, "user")
	require.NoError(t, err)
	_, err = c.HandleText(ctx, userID, "pass")
	require.NoError(t, err)

	out, err := c.HandleText(ctx, userID, "notes")
	require.Error(t, err)
	assert.Equal(t, state.StateIdle, out.Step)
	assert.False(t, c.InProgress(userID))
}

func TestTextWithoutFlow(t *testing.T) {
	ctx := context.Background()
	c := newController(&fakeStore{})

	_, err := c.HandleText(ctx, userID, "hello")
	assert.ErrorIs(t, err, ErrNoFlow)
}
