// Package services – ConversationService
//
// This file implements the append-only conversation log. Every inbound user
// turn and generated assistant turn is appended here; nothing is ever updated
// or deleted, so per-sender reads in append order reconstruct the
// conversation chronologically.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/aurawell/go-coach-backend/internal/domain"
	"github.com/aurawell/go-coach-backend/internal/repo"
)

// ConversationService owns reads and writes of the conversation log.
type ConversationService struct {
	DB *gorm.DB
}

// Append records one conversation turn.
func (s *ConversationService) Append(ctx context.Context, senderID, senderName, role, content string) (*domain.Entry, error) {
	return repo.AppendEntry(s.DB.WithContext(ctx), senderID, senderName, role, content)
}

// Recent returns the last limit entries for a sender in chronological order.
func (s *ConversationService) Recent(ctx context.Context, senderID string, limit int) ([]domain.Entry, error) {
	return repo.ListRecentEntries(s.DB.WithContext(ctx), senderID, limit)
}

// HistoryPage returns a page of a sender's entries plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *ConversationService) HistoryPage(ctx context.Context, senderID string, page, pageSize int) ([]domain.Entry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountEntries(s.DB.WithContext(ctx), senderID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Entry{}, 0, nil
	}

	items, err := repo.ListEntriesPage(s.DB.WithContext(ctx), senderID, offset, pageSize)
	return items, total, err
}
