package model

import (
	"time"
)

// Customer is a tenant-scoped identity keyed by email or phone.
// Email is checked before phone when resolving; created when neither
// matches, never destroyed by this subsystem.
type Customer struct {
	ID         string    `json:"id" gorm:"column:id;primaryKey;type:text"`
	BusinessID string    `json:"business_id" gorm:"column:business_id;index:idx_customers_business_email;index:idx_customers_business_phone"`
	Name       string    `json:"name,omitempty" gorm:"column:name"`
	Email      string    `json:"email,omitempty" gorm:"column:email;index:idx_customers_business_email"`
	Phone      string    `json:"phone,omitempty" gorm:"column:phone;index:idx_customers_business_phone"`
	CreatedAt  time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Customer) TableName() string {
	return "customers"
}
