package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chatlead/convo-pipeline/internal/model"
)

// --- ThreadRepo Mock ---

// ThreadRepoMock mocks the ThreadRepo interface
type ThreadRepoMock struct {
	mock.Mock
}

// UpsertInbound mocks the UpsertInbound method
func (m *ThreadRepoMock) UpsertInbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	args := m.Called(ctx, thread)
	return args.Get(0).(model.ConversationThread), args.Error(1)
}

// UpsertOutbound mocks the UpsertOutbound method
func (m *ThreadRepoMock) UpsertOutbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	args := m.Called(ctx, thread)
	return args.Get(0).(model.ConversationThread), args.Error(1)
}

// ClaimUsageWindow mocks the ClaimUsageWindow method
func (m *ThreadRepoMock) ClaimUsageWindow(ctx context.Context, threadID int64, windowDur time.Duration) (bool, error) {
	args := m.Called(ctx, threadID, windowDur)
	return args.Bool(0), args.Error(1)
}

// ClaimPromoSlot mocks the ClaimPromoSlot method
func (m *ThreadRepoMock) ClaimPromoSlot(ctx context.Context, threadID int64, cooldown time.Duration) (bool, error) {
	args := m.Called(ctx, threadID, cooldown)
	return args.Bool(0), args.Error(1)
}

// Close mocks the Close method
func (m *ThreadRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

// SaveMessage mocks the SaveMessage method
func (m *MessageRepoMock) SaveMessage(ctx context.Context, message model.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// OutboundExistsByProviderID mocks the OutboundExistsByProviderID method
func (m *MessageRepoMock) OutboundExistsByProviderID(ctx context.Context, channel, providerMessageID string) (bool, error) {
	args := m.Called(ctx, channel, providerMessageID)
	return args.Bool(0), args.Error(1)
}

// FindRecentByConversation mocks the FindRecentByConversation method
func (m *MessageRepoMock) FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// FindAllByConversation mocks the FindAllByConversation method
func (m *MessageRepoMock) FindAllByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// --- CustomerRepo Mock ---

// CustomerRepoMock mocks the CustomerRepo interface
type CustomerRepoMock struct {
	mock.Mock
}

// FindByEmail mocks the FindByEmail method
func (m *CustomerRepoMock) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

// FindByPhone mocks the FindByPhone method
func (m *CustomerRepoMock) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

// SaveCustomer mocks the SaveCustomer method
func (m *CustomerRepoMock) SaveCustomer(ctx context.Context, customer model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

// --- LeadRepo Mock ---

// LeadRepoMock mocks the LeadRepo interface
type LeadRepoMock struct {
	mock.Mock
}

// Upsert mocks the Upsert method
func (m *LeadRepoMock) Upsert(ctx context.Context, lead model.Lead) (model.Lead, bool, error) {
	args := m.Called(ctx, lead)
	return args.Get(0).(model.Lead), args.Bool(1), args.Error(2)
}

// --- UsageRepo Mock ---

// UsageRepoMock mocks the UsageRepo interface
type UsageRepoMock struct {
	mock.Mock
}

// Increment mocks the Increment method
func (m *UsageRepoMock) Increment(ctx context.Context, metric, period string, n int64) error {
	args := m.Called(ctx, metric, period, n)
	return args.Error(0)
}

// Get mocks the Get method
func (m *UsageRepoMock) Get(ctx context.Context, metric, period string) (int64, error) {
	args := m.Called(ctx, metric, period)
	return args.Get(0).(int64), args.Error(1)
}

// --- BusinessRepo Mock ---

// BusinessRepoMock mocks the BusinessRepo interface
type BusinessRepoMock struct {
	mock.Mock
}

// FindBusinessByID mocks the FindBusinessByID method
func (m *BusinessRepoMock) FindBusinessByID(ctx context.Context, businessID string) (*model.Business, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

// FindActiveServices mocks the FindActiveServices method
func (m *BusinessRepoMock) FindActiveServices(ctx context.Context, businessID string) ([]model.BusinessService, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BusinessService), args.Error(1)
}

// --- CrmRepo Mock ---

// CrmRepoMock mocks the CrmRepo interface
type CrmRepoMock struct {
	mock.Mock
}

// NoteExists mocks the NoteExists method
func (m *CrmRepoMock) NoteExists(ctx context.Context, customerID, body string) (bool, error) {
	args := m.Called(ctx, customerID, body)
	return args.Bool(0), args.Error(1)
}

// SaveNote mocks the SaveNote method
func (m *CrmRepoMock) SaveNote(ctx context.Context, note model.CrmNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

// PendingChatbotBookingExists mocks the PendingChatbotBookingExists method
func (m *CrmRepoMock) PendingChatbotBookingExists(ctx context.Context, customerID string) (bool, error) {
	args := m.Called(ctx, customerID)
	return args.Bool(0), args.Error(1)
}

// SaveBooking mocks the SaveBooking method
func (m *CrmRepoMock) SaveBooking(ctx context.Context, booking model.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}
