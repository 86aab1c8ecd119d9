// Package model defines the records persisted by the bot.
package model

import "time"

// Generation types recorded with each history entry.
const (
	GenerationFast   = "fast"
	GenerationCustom = "custom"
)

// HistoryEntry is one generated password in the append-only per-user log.
type HistoryEntry struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	Password       string    `db:"password"`
	GenerationType string    `db:"generation_type"`
	CreatedAt      time.Time `db:"created_at"`
}

// ManagerEntry is a user-curated password record, distinct from history.
// ServiceName and Password are required; Username and Notes may be empty.
type ManagerEntry struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ServiceName string    `db:"service_name"`
	Username    string    `db:"username"`
	Password    string    `db:"password"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Stats aggregates store-wide counters for /stats.
type Stats struct {
	HistoryTotal int64 `db:"history_total"`
	ManagerTotal int64 `db:"manager_total"`
	UsersTotal   int64 `db:"users_total"`
}
