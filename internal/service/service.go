// Package service ties password generation to persistence and exposes the
// operations the bot handlers call.
package service

import (
	"context"
	"fmt"

	"github.com/doxlab/passbot/core/logger"
	"github.com/doxlab/passbot/internal/generator"
	"github.com/doxlab/passbot/internal/model"
	"github.com/doxlab/passbot/internal/storage"
)

// PasswordService implements the bot's domain operations on top of a Store.
type PasswordService struct {
	store storage.Store
}

func New(store storage.Store) *PasswordService {
	return &PasswordService{store: store}
}

// GenerateFast produces a 12-character password with every class enabled and
// records it in the user's history.
func (s *PasswordService) GenerateFast(ctx context.Context, userID int64) (string, error) {
	password, err := generator.Fast()
	if err != nil {
		logger.SVCGenerator.Error("fast generation failed", "user_id", userID, "err", err)
		return "", fmt.Errorf("generate fast: %w", err)
	}
	if _, err := s.store.AppendHistory(ctx, userID, password, model.GenerationFast); err != nil {
		logger.SVCHistory.Error("history append failed", "user_id", userID, "err", err)
		return "", fmt.Errorf("record history: %w", err)
	}
	logger.SVCGenerator.Debug("generated", "user_id", userID, "origin", "fast", "length", generator.FastLength)
	return password, nil
}

// GenerateCustom produces a password for the given spec and records it.
func (s *PasswordService) GenerateCustom(ctx context.Context, userID int64, length int, classes generator.Classes) (string, error) {
	password, err := generator.Generate(length, classes)
	if err != nil {
		logger.SVCGenerator.Error("custom generation failed",
			"user_id", userID, "length", length, "classes", classes.Summary(), "err", err)
		return "", fmt.Errorf("generate custom: %w", err)
	}
	if _, err := s.store.AppendHistory(ctx, userID, password, model.GenerationCustom); err != nil {
		logger.SVCHistory.Error("history append failed", "user_id", userID, "err", err)
		return "", fmt.Errorf("record history: %w", err)
	}
	logger.SVCGenerator.Debug("generated",
		"user_id", userID, "origin", "custom", "length", length, "classes", classes.Summary())
	return password, nil
}

// HistoryPage returns one page of the user's generation history, newest first.
func (s *PasswordService) HistoryPage(ctx context.Context, userID int64, page int) ([]model.HistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx, userID, page)
	if err != nil {
		logger.SVCHistory.Error("history list failed", "user_id", userID, "page", page, "err", err)
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// ClearHistory deletes every history row of the user.
func (s *PasswordService) ClearHistory(ctx context.Context, userID int64) error {
	if err := s.store.ClearHistory(ctx, userID); err != nil {
		logger.SVCHistory.Error("history clear failed", "user_id", userID, "err", err)
		return fmt.Errorf("clear history: %w", err)
	}
	logger.SVCHistory.Info("history cleared", "user_id", userID)
	return nil
}

// SaveEntry stores a manager entry and returns its id.
func (s *PasswordService) SaveEntry(ctx context.Context, userID int64, service, username, password, notes string) (int64, error) {
	id, err := s.store.AddManagerEntry(ctx, userID, service, username, password, notes)
	if err != nil {
		logger.SVCVault.Error("entry save failed", "user_id", userID, "err", err)
		return 0, fmt.Errorf("save entry: %w", err)
	}
	logger.SVCVault.Info("entry saved", "user_id", userID, "entry_id", id)
	return id, nil
}

// ManagerPage returns one page of the user's manager entries, newest first.
func (s *PasswordService) ManagerPage(ctx context.Context, userID int64, page int) ([]model.ManagerEntry, error) {
	entries, err := s.store.ListManagerEntries(ctx, userID, page)
	if err != nil {
		logger.SVCVault.Error("entry list failed", "user_id", userID, "page", page, "err", err)
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// DeleteEntry removes one of the user's manager entries. It returns
// storage.ErrNotFound when the id does not exist or belongs to someone else.
func (s *PasswordService) DeleteEntry(ctx context.Context, userID, entryID int64) error {
	if err := s.store.DeleteManagerEntry(ctx, userID, entryID); err != nil {
		logger.SVCVault.Warn("entry delete failed", "user_id", userID, "entry_id", entryID, "err", err)
		return fmt.Errorf("delete entry: %w", err)
	}
	logger.SVCVault.Info("entry deleted", "user_id", userID, "entry_id", entryID)
	return nil
}

// Stats returns global row counts across all users.
func (s *PasswordService) Stats(ctx context.Context) (model.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		logger.SVCVault.Error("stats query failed", "err", err)
		return model.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
