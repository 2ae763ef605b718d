package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MessageDirectionInbound  = "IN"
	MessageDirectionOutbound = "OUT"

	ChannelWhatsApp  = "whatsapp"
	ChannelInstagram = "instagram"
)

// Metadata keys carried on a NormalizedMessage.
const (
	MetaProviderMessageID = "provider_message_id"
	MetaDirection         = "direction"
	MetaReplyRule         = "reply_rule"
)

// NormalizedMessage is the canonical unit of work flowing through the
// pipeline. It is produced by the channel normalizer and never persisted
// as an entity.
type NormalizedMessage struct {
	BusinessID     string                 `json:"business_id" validate:"required"`
	Channel        string                 `json:"channel" validate:"required,oneof=whatsapp instagram"`
	ConversationID string                 `json:"conversation_id" validate:"required"`
	SenderName     string                 `json:"sender_name,omitempty"`
	SenderHandle   string                 `json:"sender_handle,omitempty"`
	MessageText    string                 `json:"message_text" validate:"required"`
	Timestamp      time.Time              `json:"timestamp"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ConversationKey resolves the thread lookup key: sender handle when known,
// conversation id otherwise.
func (m NormalizedMessage) ConversationKey() string {
	if m.SenderHandle != "" {
		return m.SenderHandle
	}
	return m.ConversationID
}

// ProviderMessageID returns the platform message id carried in metadata,
// or empty when absent.
func (m NormalizedMessage) ProviderMessageID() string {
	if m.Metadata == nil {
		return ""
	}
	if id, ok := m.Metadata[MetaProviderMessageID].(string); ok {
		return id
	}
	return ""
}

// IsOutbound reports whether the message's own metadata marks it outbound.
func (m NormalizedMessage) IsOutbound() bool {
	if m.Metadata == nil {
		return false
	}
	dir, _ := m.Metadata[MetaDirection].(string)
	return dir == "outbound"
}

// Message is one row of the flat, append-only message log. It exists
// independently of the thread so cross-cutting queries (recent context,
// CRM replay) don't need thread joins.
type Message struct {
	ID                int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	BusinessID        string         `json:"business_id" gorm:"column:business_id;index:idx_messages_business_conversation"`
	ThreadID          int64          `json:"thread_id,omitempty" gorm:"column:thread_id;index"`
	ConversationID    string         `json:"conversation_id" gorm:"column:conversation_id;index:idx_messages_business_conversation"`
	Channel           string         `json:"channel" gorm:"column:channel"`
	Direction         string         `json:"direction" gorm:"column:direction;index"`
	SenderName        string         `json:"sender_name,omitempty" gorm:"column:sender_name"`
	SenderHandle      string         `json:"sender_handle,omitempty" gorm:"column:sender_handle;index"`
	MessageText       string         `json:"message_text" gorm:"column:message_text"`
	ProviderMessageID string         `json:"provider_message_id,omitempty" gorm:"column:provider_message_id;index"`
	Metadata          datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb;column:metadata"`
	MessageTimestamp  time.Time      `json:"message_timestamp" gorm:"column:message_timestamp;index"`
	CreatedAt         time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}
