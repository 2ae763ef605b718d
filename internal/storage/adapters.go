package storage

import (
	"context"
	"time"

	"github.com/chatlead/convo-pipeline/internal/model"
)

// ThreadRepoAdapter adapts the PostgresRepo to the ThreadRepo interface
type ThreadRepoAdapter struct {
	postgres *PostgresRepo
}

// NewThreadRepoAdapter creates a new thread repository adapter
func NewThreadRepoAdapter(postgres *PostgresRepo) ThreadRepo {
	return &ThreadRepoAdapter{postgres: postgres}
}

func (a *ThreadRepoAdapter) UpsertInbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	return a.postgres.UpsertInbound(ctx, thread)
}

func (a *ThreadRepoAdapter) UpsertOutbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	return a.postgres.UpsertOutbound(ctx, thread)
}

func (a *ThreadRepoAdapter) ClaimUsageWindow(ctx context.Context, threadID int64, windowDur time.Duration) (bool, error) {
	return a.postgres.ClaimUsageWindow(ctx, threadID, windowDur)
}

func (a *ThreadRepoAdapter) ClaimPromoSlot(ctx context.Context, threadID int64, cooldown time.Duration) (bool, error) {
	return a.postgres.ClaimPromoSlot(ctx, threadID, cooldown)
}

func (a *ThreadRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

func (a *MessageRepoAdapter) SaveMessage(ctx context.Context, message model.Message) error {
	return a.postgres.SaveMessage(ctx, message)
}

func (a *MessageRepoAdapter) OutboundExistsByProviderID(ctx context.Context, channel, providerMessageID string) (bool, error) {
	return a.postgres.OutboundExistsByProviderID(ctx, channel, providerMessageID)
}

func (a *MessageRepoAdapter) FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return a.postgres.FindRecentByConversation(ctx, conversationID, limit)
}

func (a *MessageRepoAdapter) FindAllByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return a.postgres.FindAllByConversation(ctx, conversationID)
}

// CustomerRepoAdapter adapts the PostgresRepo to the CustomerRepo interface
type CustomerRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCustomerRepoAdapter creates a new customer repository adapter
func NewCustomerRepoAdapter(postgres *PostgresRepo) CustomerRepo {
	return &CustomerRepoAdapter{postgres: postgres}
}

func (a *CustomerRepoAdapter) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return a.postgres.FindByEmail(ctx, email)
}

func (a *CustomerRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	return a.postgres.FindByPhone(ctx, phone)
}

func (a *CustomerRepoAdapter) SaveCustomer(ctx context.Context, customer model.Customer) error {
	return a.postgres.SaveCustomer(ctx, customer)
}

// LeadRepoAdapter adapts the PostgresRepo to the LeadRepo interface
type LeadRepoAdapter struct {
	postgres *PostgresRepo
}

// NewLeadRepoAdapter creates a new lead repository adapter
func NewLeadRepoAdapter(postgres *PostgresRepo) LeadRepo {
	return &LeadRepoAdapter{postgres: postgres}
}

func (a *LeadRepoAdapter) Upsert(ctx context.Context, lead model.Lead) (model.Lead, bool, error) {
	return a.postgres.Upsert(ctx, lead)
}

// UsageRepoAdapter adapts the PostgresRepo to the UsageRepo interface
type UsageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewUsageRepoAdapter creates a new usage repository adapter
func NewUsageRepoAdapter(postgres *PostgresRepo) UsageRepo {
	return &UsageRepoAdapter{postgres: postgres}
}

func (a *UsageRepoAdapter) Increment(ctx context.Context, metric, period string, n int64) error {
	return a.postgres.Increment(ctx, metric, period, n)
}

func (a *UsageRepoAdapter) Get(ctx context.Context, metric, period string) (int64, error) {
	return a.postgres.Get(ctx, metric, period)
}

// BusinessRepoAdapter adapts the PostgresRepo to the BusinessRepo interface
type BusinessRepoAdapter struct {
	postgres *PostgresRepo
}

// NewBusinessRepoAdapter creates a new business repository adapter
func NewBusinessRepoAdapter(postgres *PostgresRepo) BusinessRepo {
	return &BusinessRepoAdapter{postgres: postgres}
}

func (a *BusinessRepoAdapter) FindBusinessByID(ctx context.Context, businessID string) (*model.Business, error) {
	return a.postgres.FindBusinessByID(ctx, businessID)
}

func (a *BusinessRepoAdapter) FindActiveServices(ctx context.Context, businessID string) ([]model.BusinessService, error) {
	return a.postgres.FindActiveServices(ctx, businessID)
}

// CrmRepoAdapter adapts the PostgresRepo to the CrmRepo interface
type CrmRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCrmRepoAdapter creates a new CRM repository adapter
func NewCrmRepoAdapter(postgres *PostgresRepo) CrmRepo {
	return &CrmRepoAdapter{postgres: postgres}
}

func (a *CrmRepoAdapter) NoteExists(ctx context.Context, customerID, body string) (bool, error) {
	return a.postgres.NoteExists(ctx, customerID, body)
}

func (a *CrmRepoAdapter) SaveNote(ctx context.Context, note model.CrmNote) error {
	return a.postgres.SaveNote(ctx, note)
}

func (a *CrmRepoAdapter) PendingChatbotBookingExists(ctx context.Context, customerID string) (bool, error) {
	return a.postgres.PendingChatbotBookingExists(ctx, customerID)
}

func (a *CrmRepoAdapter) SaveBooking(ctx context.Context, booking model.Booking) error {
	return a.postgres.SaveBooking(ctx, booking)
}

// Ensure adapters implement the interfaces
var _ ThreadRepo = (*ThreadRepoAdapter)(nil)
var _ MessageRepo = (*MessageRepoAdapter)(nil)
var _ CustomerRepo = (*CustomerRepoAdapter)(nil)
var _ LeadRepo = (*LeadRepoAdapter)(nil)
var _ UsageRepo = (*UsageRepoAdapter)(nil)
var _ BusinessRepo = (*BusinessRepoAdapter)(nil)
var _ CrmRepo = (*CrmRepoAdapter)(nil)
