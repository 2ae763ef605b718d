package storage

import (
	"context"
	"time"

	"github.com/chatlead/convo-pipeline/internal/model"
)

// ThreadRepo persists conversation threads. All upserts are single
// atomic statements keyed on (business_id, channel, conversation_key).
type ThreadRepo interface {
	// UpsertInbound creates or refreshes the thread for an inbound message,
	// incrementing unread_count, and returns the resulting thread state.
	UpsertInbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error)
	// UpsertOutbound creates or refreshes the thread for an outbound message,
	// resetting unread_count to zero.
	UpsertOutbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error)
	// ClaimUsageWindow atomically stamps last_usage_window_at when no window
	// is open (stamp missing or older than windowDur). Returns true only for
	// the caller that won the stamp.
	ClaimUsageWindow(ctx context.Context, threadID int64, windowDur time.Duration) (bool, error)
	// ClaimPromoSlot atomically stamps last_promo_sent_at when outside the
	// cooldown. Returns true only for the caller that won the stamp.
	ClaimPromoSlot(ctx context.Context, threadID int64, cooldown time.Duration) (bool, error)
	Close(ctx context.Context) error
}

// MessageRepo persists the flat message log.
type MessageRepo interface {
	SaveMessage(ctx context.Context, message model.Message) error
	// OutboundExistsByProviderID reports whether an outbound row already
	// carries the given provider message id (bot echo detection).
	OutboundExistsByProviderID(ctx context.Context, channel, providerMessageID string) (bool, error)
	// FindRecentByConversation returns the latest messages of a conversation
	// in chronological order, at most limit rows.
	FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	// FindAllByConversation returns the full conversation in chronological
	// order, for CRM note replay.
	FindAllByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
}

// CustomerRepo resolves and persists tenant-scoped customer identities.
type CustomerRepo interface {
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*model.Customer, error)
	SaveCustomer(ctx context.Context, customer model.Customer) error
}

// LeadRepo persists leads keyed on (business_id, conversation_id).
type LeadRepo interface {
	// Upsert creates the lead or refreshes the existing row's updatable
	// fields. Returns the stored lead and whether a new row was created.
	Upsert(ctx context.Context, lead model.Lead) (model.Lead, bool, error)
}

// UsageRepo persists monthly usage counters.
type UsageRepo interface {
	// Increment adds n to the (business, metric, period) counter, creating
	// the row when absent. Single-statement, safe under concurrency.
	Increment(ctx context.Context, metric, period string, n int64) error
	// Get returns the current counter value, zero when the row is absent.
	Get(ctx context.Context, metric, period string) (int64, error)
}

// BusinessRepo reads tenant configuration for the context cache.
type BusinessRepo interface {
	// FindBusinessByID returns the tenant record, or ErrNotFound.
	FindBusinessByID(ctx context.Context, businessID string) (*model.Business, error)
	// FindActiveServices returns the tenant's active services ordered by name.
	FindActiveServices(ctx context.Context, businessID string) ([]model.BusinessService, error)
}

// CrmRepo persists CRM notes and chatbot bookings.
type CrmRepo interface {
	NoteExists(ctx context.Context, customerID, body string) (bool, error)
	SaveNote(ctx context.Context, note model.CrmNote) error
	// PendingChatbotBookingExists reports whether the customer already has a
	// pending chatbot-sourced booking.
	PendingChatbotBookingExists(ctx context.Context, customerID string) (bool, error)
	SaveBooking(ctx context.Context, booking model.Booking) error
}
