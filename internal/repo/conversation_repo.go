// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// conversation log (Entry model).
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurawell/go-coach-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
//
// It aliases gorm.ErrRecordNotFound so callers can use errors.Is either way.
var ErrNotFound = gorm.ErrRecordNotFound

// AppendEntry inserts one conversation turn. Entries are never updated or
// deleted afterwards.
func AppendEntry(db *gorm.DB, senderID, senderName, role, content string) (*domain.Entry, error) {
	e := &domain.Entry{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	return e, db.Create(e).Error
}

// ListEntries returns all entries ordered deterministically (CreatedAt ASC,
// ID ASC). An empty senderID returns the full log.
func ListEntries(db *gorm.DB, senderID string) ([]domain.Entry, error) {
	var out []domain.Entry
	q := db.Order("created_at ASC, id ASC")
	if senderID != "" {
		q = q.Where("sender_id = ?", senderID)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListRecentEntries returns the last limit entries for a sender, oldest first.
// The window query runs newest-first and is reversed in memory so callers
// always see chronological order.
func ListRecentEntries(db *gorm.DB, senderID string, limit int) ([]domain.Entry, error) {
	var out []domain.Entry
	q := db.Where("sender_id = ?", senderID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountEntries uses a raw COUNT so a missing table surfaces as an error.
func CountEntries(db *gorm.DB, senderID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM entries WHERE sender_id = ?", senderID).Scan(&total).Error
	return total, err
}

// ListEntriesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListEntriesPage(db *gorm.DB, senderID string, offset, limit int) ([]domain.Entry, error) {
	var out []domain.Entry
	err := db.
		Where("sender_id = ?", senderID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
