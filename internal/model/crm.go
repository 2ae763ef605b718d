package model

import (
	"time"
)

const (
	BookingStatusPending = "pending"
	BookingSourceChatbot = "chatbot"
)

// CrmNote is one conversation line materialized into the CRM for a
// customer. Replays dedupe on body text per customer, so re-sync is
// idempotent.
type CrmNote struct {
	ID         string    `json:"id" gorm:"column:id;primaryKey;type:text"`
	BusinessID string    `json:"business_id" gorm:"column:business_id;index"`
	CustomerID string    `json:"customer_id" gorm:"column:customer_id;index"`
	Body       string    `json:"body" gorm:"column:body;type:text"`
	CreatedAt  time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (CrmNote) TableName() string {
	return "crm_notes"
}

// Booking is a pending, unscheduled booking created from chatbot booking
// intent. At most one pending chatbot booking exists per customer.
type Booking struct {
	ID          string     `json:"id" gorm:"column:id;primaryKey;type:text"`
	BusinessID  string     `json:"business_id" gorm:"column:business_id;index"`
	CustomerID  string     `json:"customer_id" gorm:"column:customer_id;index"`
	ServiceName string     `json:"service_name,omitempty" gorm:"column:service_name"`
	Status      string     `json:"status" gorm:"column:status"`
	Source      string     `json:"source" gorm:"column:source"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" gorm:"column:scheduled_at"`
	CreatedAt   time.Time  `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Booking) TableName() string {
	return "bookings"
}
