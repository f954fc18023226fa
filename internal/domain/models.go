// Package domain defines the persistence models for the conversation log and
// the processed-message window. These types are mapped with GORM and form the
// core data layer of the coaching backend.
package domain

import "time"

// Roles an Entry can be authored by.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one turn of a WhatsApp conversation, either the user's inbound
// message (after transcription, for voice notes) or the assistant's reply.
// Entries are append-only: read back in (CreatedAt, ID) order they reconstruct
// a sender's conversation chronologically.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - SenderID: WhatsApp ID (wa_id) of the conversation owner; indexed.
//   - SenderName: display name from the contact profile ("Unknown" fallback).
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: full message text.
//   - CreatedAt: timestamp managed by GORM; part of the ordering key.
type Entry struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	SenderID   string    `json:"sender_id"   gorm:"type:varchar(64);not null;index:idx_sender_entries,priority:1"`
	SenderName string    `json:"sender_name" gorm:"type:varchar(255);not null;default:'Unknown'"`
	Role       string    `json:"role"        gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content    string    `json:"content"     gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_sender_entries,priority:2"`
}

// TableName returns the database table name for Entry.
func (Entry) TableName() string { return "entries" }

// ProcessedMessage records a provider message ID that the pipeline already
// handled. While a row exists and has not expired, any webhook redelivery
// carrying the same ID is dropped as a duplicate. Rows are evicted by TTL so
// the window stays bounded instead of growing for the life of the process.
type ProcessedMessage struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	MessageID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_message_id"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (ProcessedMessage) TableName() string { return "processed_messages" }
