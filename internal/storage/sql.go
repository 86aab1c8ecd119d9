package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/doxlab/passbot/internal/model"
)

// SQLStore implements Store on top of sqlx. Queries are written with `?`
// placeholders and rebound for the active driver, so the same code serves
// the postgres and sqlite backends.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an already-connected database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// AppendHistory inserts one generated password into the per-user log.
func (s *SQLStore) AppendHistory(ctx context.Context, userID int64, password, generationType string) (int64, error) {
	const query = `INSERT INTO password_history (user_id, password, generation_type, created_at)
		VALUES (?, ?, ?, ?)`
	id, err := s.insert(ctx, query, userID, password, generationType, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}
	return id, nil
}

// ListHistory returns one page of the user's history, newest first.
func (s *SQLStore) ListHistory(ctx context.Context, userID int64, page int) ([]model.HistoryEntry, error) {
	if page < 0 {
		page = 0
	}
	const query = `SELECT id, user_id, password, generation_type, created_at
		FROM password_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	entries := []model.HistoryEntry{}
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query),
		userID, HistoryPageSize, page*HistoryPageSize)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// ClearHistory deletes every history row of the user. Clearing an empty
// history succeeds silently.
func (s *SQLStore) ClearHistory(ctx context.Context, userID int64) error {
	const query = `DELETE FROM password_history WHERE user_id = ?`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// AddManagerEntry inserts a manager record. Service name and password are
// required; the insert is a single atomic statement.
func (s *SQLStore) AddManagerEntry(ctx context.Context, userID int64, service, username, password, notes string) (int64, error) {
	if strings.TrimSpace(service) == "" {
		return 0, fmt.Errorf("%w: service name is required", ErrValidation)
	}
	if password == "" {
		return 0, fmt.Errorf("%w: password is required", ErrValidation)
	}
	const query = `INSERT INTO password_manager (user_id, service_name, username, password, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	id, err := s.insert(ctx, query, userID, service, username, password, notes, now, now)
	if err != nil {
		return 0, fmt.Errorf("add manager entry: %w", err)
	}
	return id, nil
}

// ListManagerEntries returns one page of the user's manager records, newest first.
func (s *SQLStore) ListManagerEntries(ctx context.Context, userID int64, page int) ([]model.ManagerEntry, error) {
	if page < 0 {
		page = 0
	}
	const query = `SELECT id, user_id, service_name, username, password, notes, created_at, updated_at
		FROM password_manager
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	entries := []model.ManagerEntry{}
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query),
		userID, ManagerPageSize, page*ManagerPageSize)
	if err != nil {
		return nil, fmt.Errorf("list manager entries: %w", err)
	}
	return entries, nil
}

// DeleteManagerEntry removes the entry only when it belongs to userID.
// A miss returns ErrNotFound whether the id does not exist or belongs to
// someone else; callers cannot tell the difference.
func (s *SQLStore) DeleteManagerEntry(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM password_manager WHERE id = ? AND user_id = ?`
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), id, userID)
	if err != nil {
		return fmt.Errorf("delete manager entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete manager entry: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns aggregate counters across all users.
func (s *SQLStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	const query = `SELECT
		(SELECT COUNT(*) FROM password_history) AS history_total,
		(SELECT COUNT(*) FROM password_manager) AS manager_total,
		(SELECT COUNT(*) FROM (
			SELECT user_id FROM password_history
			UNION
			SELECT user_id FROM password_manager
		) AS owners) AS users_total`
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return model.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// insert runs an INSERT and reports the generated id, papering over the
// RETURNING/LastInsertId split between postgres and sqlite.
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.db.DriverName() == "postgres" {
		var id int64
		err := s.db.QueryRowxContext(ctx, s.db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
