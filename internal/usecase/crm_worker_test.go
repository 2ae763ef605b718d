package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/model"
	storagemock "github.com/chatlead/convo-pipeline/internal/storage/mock"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

func newTestCrmWorker(t *testing.T) (*CrmSyncWorker, *storagemock.CustomerRepoMock, *storagemock.MessageRepoMock, *storagemock.CrmRepoMock) {
	t.Helper()

	originalLogger := logger.Log
	logger.Log = zaptest.NewLogger(t)
	t.Cleanup(func() { logger.Log = originalLogger })

	customerRepo := new(storagemock.CustomerRepoMock)
	messageRepo := new(storagemock.MessageRepoMock)
	crmRepo := new(storagemock.CrmRepoMock)

	cfg := config.CrmSyncWorkerPoolConfig{
		PoolSize:   2,
		QueueSize:  16,
		MaxBlock:   time.Second,
		ExpiryTime: time.Minute,
	}
	worker, err := NewCrmSyncWorker(cfg, customerRepo, messageRepo, crmRepo, logger.Log)
	require.NoError(t, err)
	t.Cleanup(worker.Stop)

	return worker, customerRepo, messageRepo, crmRepo
}

func crmTask() CrmSyncTask {
	return CrmSyncTask{
		Ctx:            context.Background(),
		BusinessID:     testBusinessID,
		ConversationID: testConversationID,
		Channel:        model.ChannelWhatsApp,
		LeadID:         "lead-1",
		CustomerID:     "cust-9",
		SenderName:     "Jordan",
	}
}

func TestFormatCrmNote(t *testing.T) {
	ts := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)

	note := formatCrmNote(model.Message{
		Channel:          model.ChannelWhatsApp,
		Direction:        model.MessageDirectionInbound,
		SenderName:       "Jordan",
		MessageText:      "how much?",
		MessageTimestamp: ts,
	})
	assert.Equal(t, "[2026-08-28T15:04:05Z] [whatsapp] Jordan: how much?", note)

	note = formatCrmNote(model.Message{
		Channel:          model.ChannelWhatsApp,
		Direction:        model.MessageDirectionOutbound,
		MessageText:      "A wash is $20.",
		MessageTimestamp: ts,
	})
	assert.Equal(t, "[2026-08-28T15:04:05Z] [whatsapp] business: A wash is $20.", note)
}

func TestProcessCrmSyncTask_ReplaysNotesWithDedupe(t *testing.T) {
	worker, _, messageRepo, crmRepo := newTestCrmWorker(t)
	task := crmTask()
	ts := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	history := []model.Message{
		{Channel: "whatsapp", Direction: model.MessageDirectionInbound, SenderName: "Jordan", MessageText: "first", MessageTimestamp: ts},
		{Channel: "whatsapp", Direction: model.MessageDirectionInbound, SenderName: "Jordan", MessageText: "second", MessageTimestamp: ts.Add(time.Minute)},
	}
	messageRepo.On("FindAllByConversation", mock.Anything, testConversationID).Return(history, nil).Once()

	// First line already synced, second is new.
	crmRepo.On("NoteExists", mock.Anything, "cust-9", formatCrmNote(history[0])).Return(true, nil).Once()
	crmRepo.On("NoteExists", mock.Anything, "cust-9", formatCrmNote(history[1])).Return(false, nil).Once()
	crmRepo.On("SaveNote", mock.Anything, mock.MatchedBy(func(n model.CrmNote) bool {
		return n.CustomerID == "cust-9" && n.Body == formatCrmNote(history[1])
	})).Return(nil).Once()

	worker.processCrmSyncTask(task)

	crmRepo.AssertExpectations(t)
	crmRepo.AssertNumberOfCalls(t, "SaveNote", 1)
}

func TestProcessCrmSyncTask_BookingCreatedAtMostOnce(t *testing.T) {
	t.Run("No Pending Booking", func(t *testing.T) {
		worker, _, messageRepo, crmRepo := newTestCrmWorker(t)
		task := crmTask()
		task.BookingIntent = true

		messageRepo.On("FindAllByConversation", mock.Anything, testConversationID).Return(nil, nil).Once()
		crmRepo.On("PendingChatbotBookingExists", mock.Anything, "cust-9").Return(false, nil).Once()
		crmRepo.On("SaveBooking", mock.Anything, mock.MatchedBy(func(b model.Booking) bool {
			return b.CustomerID == "cust-9" &&
				b.Status == model.BookingStatusPending &&
				b.Source == model.BookingSourceChatbot &&
				b.ScheduledAt == nil
		})).Return(nil).Once()

		worker.processCrmSyncTask(task)

		crmRepo.AssertExpectations(t)
	})

	t.Run("Pending Booking Exists", func(t *testing.T) {
		worker, _, messageRepo, crmRepo := newTestCrmWorker(t)
		task := crmTask()
		task.BookingIntent = true

		messageRepo.On("FindAllByConversation", mock.Anything, testConversationID).Return(nil, nil).Once()
		crmRepo.On("PendingChatbotBookingExists", mock.Anything, "cust-9").Return(true, nil).Once()

		worker.processCrmSyncTask(task)

		crmRepo.AssertNotCalled(t, "SaveBooking", mock.Anything, mock.Anything)
	})

	t.Run("No Booking Intent", func(t *testing.T) {
		worker, _, messageRepo, crmRepo := newTestCrmWorker(t)
		task := crmTask()

		messageRepo.On("FindAllByConversation", mock.Anything, testConversationID).Return(nil, nil).Once()

		worker.processCrmSyncTask(task)

		crmRepo.AssertNotCalled(t, "PendingChatbotBookingExists", mock.Anything, mock.Anything)
	})
}

func TestProcessCrmSyncTask_ResolvesCustomerWhenMissing(t *testing.T) {
	worker, customerRepo, messageRepo, crmRepo := newTestCrmWorker(t)
	task := crmTask()
	task.CustomerID = ""
	task.Email = "jordan@example.com"

	existing := &model.Customer{ID: "cust-found", BusinessID: testBusinessID, Email: "jordan@example.com"}
	customerRepo.On("FindByEmail", mock.Anything, "jordan@example.com").Return(existing, nil).Once()
	messageRepo.On("FindAllByConversation", mock.Anything, testConversationID).Return(nil, nil).Once()

	worker.processCrmSyncTask(task)

	customerRepo.AssertExpectations(t)
	crmRepo.AssertNotCalled(t, "SaveNote", mock.Anything, mock.Anything)
}

func TestSubmitTask_QueuesWork(t *testing.T) {
	worker, _, messageRepo, _ := newTestCrmWorker(t)
	task := crmTask()

	done := make(chan struct{})
	messageRepo.On("FindAllByConversation", mock.Anything, testConversationID).
		Return(nil, nil).Once().
		Run(func(args mock.Arguments) { close(done) })

	require.NoError(t, worker.SubmitTask(task))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CRM sync task was not processed")
	}
}
