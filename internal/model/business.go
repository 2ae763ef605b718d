package model

import (
	"time"

	"gorm.io/datatypes"
)

// Business is the tenant configuration record consumed (via the context
// cache) by the reply generator and the promo stage.
type Business struct {
	ID                 string         `json:"id" gorm:"column:id;primaryKey;type:text"`
	Name               string         `json:"name" gorm:"column:name"`
	LanguagePreference string         `json:"language_preference,omitempty" gorm:"column:language_preference"`
	OfficeHours        string         `json:"office_hours,omitempty" gorm:"column:office_hours"`
	BookingRules       string         `json:"booking_rules,omitempty" gorm:"column:booking_rules"`
	AIReplyEnabled     bool           `json:"ai_reply_enabled" gorm:"column:ai_reply_enabled;default:true"`
	PromoIntents       datatypes.JSON `json:"promo_intents,omitempty" gorm:"type:jsonb;column:promo_intents"`
	PromoMessage       string         `json:"promo_message,omitempty" gorm:"column:promo_message"`
	CreatedAt          time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Business) TableName() string {
	return "businesses"
}

// BusinessService is one offered service of a business, listed in the
// AI system prompt when active.
type BusinessService struct {
	ID          int64     `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	BusinessID  string    `json:"business_id" gorm:"column:business_id;index"`
	Name        string    `json:"name" gorm:"column:name"`
	Description string    `json:"description,omitempty" gorm:"column:description"`
	Price       string    `json:"price,omitempty" gorm:"column:price"`
	Active      bool      `json:"active" gorm:"column:active;default:true"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (BusinessService) TableName() string {
	return "business_services"
}

// BusinessContext is the derived, cached view of tenant configuration fed
// to the reply generator. Never persisted; rebuilt on cache miss. A
// missing tenant yields a context with Missing set and null fields,
// cached for the full TTL.
type BusinessContext struct {
	BusinessID     string
	BusinessName   string
	Services       []BusinessService
	OfficeHours    string
	Language       string
	BookingRules   string
	AIReplyEnabled bool
	PromoIntents   []string
	PromoMessage   string
	Missing        bool
}

// PreferredLanguage returns the tenant language when it is exactly
// "en" or "es", else "en".
func (c BusinessContext) PreferredLanguage() string {
	switch c.Language {
	case "en", "es":
		return c.Language
	}
	return "en"
}
