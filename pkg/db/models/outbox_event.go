package models

import (
	"encoding/json"
	"time"
)

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes. The publisher drains pending rows to Pub/Sub.
type OutboxEvent struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	AggregateType string          `gorm:"not null;index" json:"aggregate_type"`
	AggregateID   string          `gorm:"type:uuid;not null;index" json:"aggregate_id"`
	EventType     string          `gorm:"not null" json:"event_type"`
	Payload       json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`
	Status        string          `gorm:"not null;default:pending;index" json:"status"`
	Attempts      int             `gorm:"not null;default:0" json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
