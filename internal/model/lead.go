package model

import (
	"time"
)

const (
	LeadStageQualified = "qualified"
)

// Lead is one sales lead per (business, conversation). Re-qualification
// refreshes reason/contact/stage on the existing row instead of
// duplicating it.
type Lead struct {
	ID             string    `json:"id" gorm:"column:id;primaryKey;type:text"`
	BusinessID     string    `json:"business_id" gorm:"column:business_id;uniqueIndex:idx_leads_business_conversation"`
	ConversationID string    `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex:idx_leads_business_conversation"`
	CustomerID     string    `json:"customer_id,omitempty" gorm:"column:customer_id;index"`
	Name           string    `json:"name,omitempty" gorm:"column:name"`
	Email          string    `json:"email,omitempty" gorm:"column:email"`
	Phone          string    `json:"phone,omitempty" gorm:"column:phone"`
	Channel        string    `json:"channel,omitempty" gorm:"column:channel"`
	Stage          string    `json:"stage" gorm:"column:stage"`
	Reason         string    `json:"reason,omitempty" gorm:"column:reason"`
	CreatedAt      time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Lead) TableName() string {
	return "leads"
}

// LeadUpdatableFields returns the columns refreshed when an existing lead
// is re-qualified. Excludes id, created_at and the natural key.
func LeadUpdatableFields() []string {
	return []string{
		"customer_id", "name", "email", "phone", "stage", "reason", "updated_at",
	}
}
