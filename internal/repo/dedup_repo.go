// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// ProcessedMessage model used to drop duplicate webhook deliveries.
//
// Keeping the window in SQLite rather than an in-memory set makes dedup
// survive restarts and bounds it with a TTL instead of growing forever.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurawell/go-coach-backend/internal/domain"
)

// ErrDuplicate indicates that a processed-message record already exists for
// the given provider message ID.
var ErrDuplicate = errors.New("duplicate")

// MarkProcessed records a provider message ID as handled for the TTL window.
// It returns ErrDuplicate when an unexpired record already holds the ID, so a
// single insert doubles as the check-and-set.
func MarkProcessed(ctx context.Context, db *gorm.DB, messageID string, ttl time.Duration) (*domain.ProcessedMessage, error) {
	now := time.Now().UTC()
	rec := &domain.ProcessedMessage{
		ID:        uuid.NewString(),
		MessageID: messageID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		// The unique index still holds an expired row: evict it and claim the
		// ID again. A live row is a genuine duplicate.
		live, serr := SeenMessage(ctx, db, messageID, now)
		if serr != nil {
			return nil, serr
		}
		if live {
			return nil, ErrDuplicate
		}
		if derr := db.WithContext(ctx).
			Where("message_id = ?", messageID).
			Delete(&domain.ProcessedMessage{}).Error; derr != nil {
			return nil, derr
		}
		if err := db.WithContext(ctx).Create(rec).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicate
			}
			return nil, err
		}
	}
	return rec, nil
}

// isUniqueViolation matches the UNIQUE errors surfaced by glebarez/sqlite,
// which often come back as plain text rather than gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// SeenMessage reports whether an unexpired record exists for messageID.
func SeenMessage(ctx context.Context, db *gorm.DB, messageID string, now time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.ProcessedMessage{}).
		Where("message_id = ? AND expires_at > ?", messageID, now).
		Count(&count).Error
	return count > 0, err
}

// PurgeExpired deletes records whose TTL has elapsed and returns the number
// of rows removed.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.ProcessedMessage{})
	return res.RowsAffected, res.Error
}
