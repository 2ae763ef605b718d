package model

import (
	"time"
)

const (
	ThreadStatusOpen = "open"
)

// ConversationThread is the persisted state of one (business, channel,
// counterpart) conversation. Exactly one row exists per natural key,
// enforced by a unique index; all upserts go through a single atomic
// ON CONFLICT statement.
type ConversationThread struct {
	ID                   int64      `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	BusinessID           string     `json:"business_id" gorm:"column:business_id;uniqueIndex:idx_threads_natural_key"`
	Channel              string     `json:"channel" gorm:"column:channel;uniqueIndex:idx_threads_natural_key"`
	ConversationKey      string     `json:"conversation_key" gorm:"column:conversation_key;uniqueIndex:idx_threads_natural_key"`
	ContactName          string     `json:"contact_name,omitempty" gorm:"column:contact_name"`
	ContactHandle        string     `json:"contact_handle,omitempty" gorm:"column:contact_handle"`
	Status               string     `json:"status" gorm:"column:status;default:open"`
	UnreadCount          int32      `json:"unread_count" gorm:"column:unread_count"`
	LastMessageText      string     `json:"last_message_text,omitempty" gorm:"column:last_message_text"`
	LastMessageDirection string     `json:"last_message_direction,omitempty" gorm:"column:last_message_direction"`
	LastMessageAt        time.Time  `json:"last_message_at,omitempty" gorm:"column:last_message_at"`
	LastIntent           string     `json:"last_intent,omitempty" gorm:"column:last_intent"`
	LastUsageWindowAt    *time.Time `json:"last_usage_window_at,omitempty" gorm:"column:last_usage_window_at"`
	LastPromoSentAt      *time.Time `json:"last_promo_sent_at,omitempty" gorm:"column:last_promo_sent_at"`
	CreatedAt            time.Time  `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (ConversationThread) TableName() string {
	return "conversation_threads"
}
