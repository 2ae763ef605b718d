package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/storage"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// CrmSyncTask carries everything a worker needs to sync one qualified
// lead into the CRM.
type CrmSyncTask struct {
	Ctx            context.Context // Context derived for the task, NOT the original request context
	BusinessID     string
	ConversationID string
	Channel        string
	LeadID         string
	CustomerID     string
	SenderName     string
	Email          string
	Phone          string
	BookingIntent  bool
	ServiceName    string
}

// ICrmSyncWorker defines the interface for the CRM sync worker pool.
type ICrmSyncWorker interface {
	SubmitTask(task CrmSyncTask) error
	Stop()
}

// CrmSyncWorker runs CRM synchronization off the webhook path on a
// bounded worker pool. Syncing replays the conversation into CRM notes
// (deduped per customer) and creates at most one pending chatbot booking.
type CrmSyncWorker struct {
	pool         *ants.PoolWithFunc
	customerRepo storage.CustomerRepo
	messageRepo  storage.MessageRepo
	crmRepo      storage.CrmRepo
	cfg          config.CrmSyncWorkerPoolConfig
	baseLogger   *zap.Logger
}

// Ensure CrmSyncWorker implements ICrmSyncWorker
var _ ICrmSyncWorker = (*CrmSyncWorker)(nil)

// NewCrmSyncWorker creates and initializes the CRM sync worker pool.
func NewCrmSyncWorker(
	cfg config.CrmSyncWorkerPoolConfig,
	customerRepo storage.CustomerRepo,
	messageRepo storage.MessageRepo,
	crmRepo storage.CrmRepo,
	baseLogger *zap.Logger,
) (*CrmSyncWorker, error) {
	worker := &CrmSyncWorker{
		customerRepo: customerRepo,
		messageRepo:  messageRepo,
		crmRepo:      crmRepo,
		cfg:          cfg,
		baseLogger:   baseLogger.Named("crm_sync_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(CrmSyncTask)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.processCrmSyncTask(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in CRM sync worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CRM sync worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("CRM sync worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return worker, nil
}

// SubmitTask queues a sync task. Blocks up to the pool's limits when the
// queue is full.
func (w *CrmSyncWorker) SubmitTask(task CrmSyncTask) error {
	observer.IncCrmTasksSubmitted(task.BusinessID)
	observer.SetCrmQueueLength(w.pool.Waiting())

	if err := w.pool.Invoke(task); err != nil {
		w.baseLogger.Warn("Failed to submit CRM sync task to pool",
			zap.String("lead_id", task.LeadID),
			zap.String("business_id", task.BusinessID),
			zap.Error(err),
		)
		observer.IncCrmTasksProcessed(task.BusinessID, "submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("crm sync pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke crm sync task: %w", err)
	}
	return nil
}

// processCrmSyncTask contains the actual logic executed by a worker goroutine.
func (w *CrmSyncWorker) processCrmSyncTask(task CrmSyncTask) {
	log := logger.FromContextOr(task.Ctx, w.baseLogger).With(
		zap.String("task_lead_id", task.LeadID),
		zap.String("task_business_id", task.BusinessID),
		zap.String("task_conversation_id", task.ConversationID),
	)

	start := time.Now()
	status := "success"

	taskCtx := tenant.WithBusinessID(task.Ctx, task.BusinessID)

	// Resolve the customer independently of qualification. Resolution is
	// stable (email, then phone), so both paths converge on the same row.
	customerID := task.CustomerID
	if customerID == "" {
		customer, err := resolveCustomer(taskCtx, w.customerRepo, task.SenderName, task.Email, task.Phone)
		if err != nil {
			log.Error("Failed to resolve customer for CRM sync", zap.Error(err))
			w.finish(task, "failure_customer_resolve", start)
			return
		}
		customerID = customer.ID
	}

	history, err := w.messageRepo.FindAllByConversation(taskCtx, task.ConversationID)
	if err != nil {
		log.Error("Failed to load conversation history for CRM sync", zap.Error(err))
		w.finish(task, "failure_history_read", start)
		return
	}

	noteCount := 0
	for _, row := range history {
		body := formatCrmNote(row)
		exists, existsErr := w.crmRepo.NoteExists(taskCtx, customerID, body)
		if existsErr != nil {
			log.Error("Failed to check existing CRM note", zap.Error(existsErr))
			status = "failure_note_check"
			break
		}
		if exists {
			continue
		}
		note := model.CrmNote{
			ID:         uuid.New().String(),
			BusinessID: task.BusinessID,
			CustomerID: customerID,
			Body:       body,
		}
		if saveErr := w.crmRepo.SaveNote(taskCtx, note); saveErr != nil {
			log.Error("Failed to save CRM note", zap.Error(saveErr))
			status = "failure_note_save"
			break
		}
		noteCount++
	}

	if status == "success" && task.BookingIntent {
		pending, pendingErr := w.crmRepo.PendingChatbotBookingExists(taskCtx, customerID)
		if pendingErr != nil {
			log.Error("Failed to check pending chatbot booking", zap.Error(pendingErr))
			status = "failure_booking_check"
		} else if !pending {
			booking := model.Booking{
				ID:          uuid.New().String(),
				BusinessID:  task.BusinessID,
				CustomerID:  customerID,
				ServiceName: task.ServiceName,
				Status:      model.BookingStatusPending,
				Source:      model.BookingSourceChatbot,
			}
			if saveErr := w.crmRepo.SaveBooking(taskCtx, booking); saveErr != nil {
				log.Error("Failed to save chatbot booking", zap.Error(saveErr))
				status = "failure_booking_save"
			} else {
				log.Info("Created pending chatbot booking",
					zap.String("booking_id", booking.ID),
					zap.String("customer_id", customerID))
			}
		}
	}

	log.Debug("Finished CRM sync task",
		zap.String("customer_id", customerID),
		zap.Int("notes_created", noteCount),
		zap.String("final_status", status))
	w.finish(task, status, start)
}

func (w *CrmSyncWorker) finish(task CrmSyncTask, status string, start time.Time) {
	observer.ObserveCrmProcessingDuration(task.BusinessID, time.Since(start))
	observer.IncCrmTasksProcessed(task.BusinessID, status)
}

// formatCrmNote renders one conversation line as a CRM note body. Bodies
// are the dedupe key, so the format must stay stable across re-syncs.
func formatCrmNote(row model.Message) string {
	sender := row.SenderName
	if sender == "" {
		sender = row.SenderHandle
	}
	if sender == "" {
		if row.Direction == model.MessageDirectionOutbound {
			sender = "business"
		} else {
			sender = "customer"
		}
	}
	return fmt.Sprintf("[%s] [%s] %s: %s",
		utils.FormatISO8601(row.MessageTimestamp), row.Channel, sender, row.MessageText)
}

// Stop gracefully shuts down the worker pool.
func (w *CrmSyncWorker) Stop() {
	if w.pool != nil {
		w.baseLogger.Info("Releasing CRM sync worker pool")
		start := time.Now()
		w.pool.Release()
		w.baseLogger.Info("CRM sync worker pool released", zap.Duration("duration", time.Since(start)))
	}
}
