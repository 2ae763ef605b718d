package model

import (
	"time"
)

// Metric names tracked per business per month.
const (
	MetricConversations24h = "conversations_24h"
	MetricQualifiedLeads   = "qualified_leads"
)

// UsageCounter is one monotonically increasing counter per
// (business, metric, YYYY-MM period). Increments are single-statement
// ON CONFLICT upserts so concurrent writers never lose updates.
type UsageCounter struct {
	ID         int64     `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	BusinessID string    `json:"business_id" gorm:"column:business_id;uniqueIndex:idx_usage_natural_key"`
	Metric     string    `json:"metric" gorm:"column:metric;uniqueIndex:idx_usage_natural_key"`
	Period     string    `json:"period" gorm:"column:period;uniqueIndex:idx_usage_natural_key"`
	Value      int64     `json:"value" gorm:"column:value"`
	CreatedAt  time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (UsageCounter) TableName() string {
	return "usage_counters"
}
