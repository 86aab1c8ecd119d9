// Package storage persists password history and manager entries.
package storage

import (
	"context"
	"errors"

	"github.com/doxlab/passbot/internal/model"
)

// Page sizes used by the listing operations.
const (
	HistoryPageSize = 10
	ManagerPageSize = 5
)

var (
	// ErrValidation reports a rejected write (empty required field).
	ErrValidation = errors.New("storage: validation failed")
	// ErrNotFound reports that no row matched both id and owner.
	ErrNotFound = errors.New("storage: entry not found")
)

// Store is the narrow persistence interface used by the flow controller and
// the menu handlers. Listing is 0-indexed and returns an empty slice past the
// last page.
type Store interface {
	AppendHistory(ctx context.Context, userID int64, password, generationType string) (int64, error)
	ListHistory(ctx context.Context, userID int64, page int) ([]model.HistoryEntry, error)
	ClearHistory(ctx context.Context, userID int64) error

	AddManagerEntry(ctx context.Context, userID int64, service, username, password, notes string) (int64, error)
	ListManagerEntries(ctx context.Context, userID int64, page int) ([]model.ManagerEntry, error)
	DeleteManagerEntry(ctx context.Context, userID, id int64) error

	Stats(ctx context.Context) (model.Stats, error)
}
