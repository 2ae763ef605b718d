package model

import (
	"time"
)

// Subjects for published domain events, appended to the configured
// subject prefix.
const (
	SubjectLeadQualified       = "leads.qualified"
	SubjectConversationTracked = "conversations.tracked"
)

// LeadQualifiedEvent is published after a lead is created or refreshed
// by the qualification engine.
type LeadQualifiedEvent struct {
	BusinessID     string    `json:"business_id"`
	ConversationID string    `json:"conversation_id"`
	LeadID         string    `json:"lead_id"`
	CustomerID     string    `json:"customer_id,omitempty"`
	Channel        string    `json:"channel"`
	Intent         string    `json:"intent"`
	Reason         string    `json:"reason"`
	NewLead        bool      `json:"new_lead"`
	QualifiedAt    time.Time `json:"qualified_at"`
}

// ConversationTrackedEvent is published when a new 24h usage window is
// opened for a conversation.
type ConversationTrackedEvent struct {
	BusinessID     string    `json:"business_id"`
	ConversationID string    `json:"conversation_id"`
	Channel        string    `json:"channel"`
	Period         string    `json:"period"`
	TrackedAt      time.Time `json:"tracked_at"`
}
