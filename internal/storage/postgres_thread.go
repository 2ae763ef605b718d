package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

var threadConflictColumns = []clause.Column{
	{Name: "business_id"},
	{Name: "channel"},
	{Name: "conversation_key"},
}

// UpsertInbound creates or refreshes the thread for an inbound message.
// A single INSERT ... ON CONFLICT statement increments unread_count in SQL,
// so concurrent inbound messages never lose an increment. Contact fields
// are filled only when the stored value is empty.
func (r *PostgresRepo) UpsertInbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return thread, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != thread.BusinessID {
		return thread, fmt.Errorf("%w: thread BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, thread.BusinessID, businessID)
	}

	thread.Status = model.ThreadStatusOpen
	thread.UnreadCount = 1
	thread.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(
			clause.OnConflict{
				Columns: threadConflictColumns,
				DoUpdates: clause.Assignments(map[string]interface{}{
					"contact_name":           gorm.Expr("COALESCE(NULLIF(conversation_threads.contact_name, ''), excluded.contact_name)"),
					"contact_handle":         gorm.Expr("COALESCE(NULLIF(conversation_threads.contact_handle, ''), excluded.contact_handle)"),
					"status":                 model.ThreadStatusOpen,
					"unread_count":           gorm.Expr("conversation_threads.unread_count + 1"),
					"last_message_text":      gorm.Expr("excluded.last_message_text"),
					"last_message_direction": gorm.Expr("excluded.last_message_direction"),
					"last_message_at":        gorm.Expr("excluded.last_message_at"),
					"last_intent":            gorm.Expr("excluded.last_intent"),
					"updated_at":             gorm.Expr("excluded.updated_at"),
				}),
			},
			clause.Returning{},
		).Create(&thread)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertThreadInbound Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "thread", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert inbound thread after retries",
			zap.String("conversation_key", thread.ConversationKey), zap.Error(commitErr))
		return thread, commitErr
	}

	return thread, nil
}

// UpsertOutbound creates or refreshes the thread for an outbound message,
// resetting unread_count. The stored last_intent is left untouched.
func (r *PostgresRepo) UpsertOutbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return thread, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != thread.BusinessID {
		return thread, fmt.Errorf("%w: thread BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, thread.BusinessID, businessID)
	}

	thread.Status = model.ThreadStatusOpen
	thread.UnreadCount = 0
	thread.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(
			clause.OnConflict{
				Columns: threadConflictColumns,
				DoUpdates: clause.Assignments(map[string]interface{}{
					"status":                 model.ThreadStatusOpen,
					"unread_count":           0,
					"last_message_text":      gorm.Expr("excluded.last_message_text"),
					"last_message_direction": gorm.Expr("excluded.last_message_direction"),
					"last_message_at":        gorm.Expr("excluded.last_message_at"),
					"updated_at":             gorm.Expr("excluded.updated_at"),
				}),
			},
			clause.Returning{},
		).Create(&thread)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertThreadOutbound Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "thread", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert outbound thread after retries",
			zap.String("conversation_key", thread.ConversationKey), zap.Error(commitErr))
		return thread, commitErr
	}

	return thread, nil
}

// ClaimUsageWindow stamps last_usage_window_at when the thread has no open
// window. The conditional UPDATE makes exactly one concurrent caller win.
func (r *PostgresRepo) ClaimUsageWindow(ctx context.Context, threadID int64, windowDur time.Duration) (bool, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	now := utils.Now()
	cutoff := now.Add(-windowDur)
	var claimed bool

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.ConversationThread{}).
			Where("id = ? AND business_id = ? AND (last_usage_window_at IS NULL OR last_usage_window_at <= ?)",
				threadID, businessID, cutoff).
			Update("last_usage_window_at", now)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		claimed = result.RowsAffected > 0
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "ClaimUsageWindow Commit", operation)
	observer.ObserveDbOperationDuration("update", "thread", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to claim usage window after retries",
			zap.Int64("thread_id", threadID), zap.Error(commitErr))
		return false, commitErr
	}

	return claimed, nil
}

// ClaimPromoSlot stamps last_promo_sent_at when the thread is outside the
// promo cooldown. Same conditional-update shape as ClaimUsageWindow.
func (r *PostgresRepo) ClaimPromoSlot(ctx context.Context, threadID int64, cooldown time.Duration) (bool, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	now := utils.Now()
	cutoff := now.Add(-cooldown)
	var claimed bool

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.ConversationThread{}).
			Where("id = ? AND business_id = ? AND (last_promo_sent_at IS NULL OR last_promo_sent_at <= ?)",
				threadID, businessID, cutoff).
			Update("last_promo_sent_at", now)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		claimed = result.RowsAffected > 0
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "ClaimPromoSlot Commit", operation)
	observer.ObserveDbOperationDuration("update", "thread", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to claim promo slot after retries",
			zap.Int64("thread_id", threadID), zap.Error(commitErr))
		return false, commitErr
	}

	return claimed, nil
}
