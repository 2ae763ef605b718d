package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// SaveMessage appends one row to the message log.
func (r *PostgresRepo) SaveMessage(ctx context.Context, message model.Message) error {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != message.BusinessID {
		return fmt.Errorf("%w: message BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.BusinessID, businessID)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Create(&message)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveMessage Commit", operation)
	observer.ObserveDbOperationDuration("insert", "message", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save message after retries",
			zap.String("conversation_id", message.ConversationID), zap.Error(commitErr))
		return commitErr
	}

	return nil
}

// OutboundExistsByProviderID reports whether an outbound message with this
// provider id was already logged for the tenant and channel.
func (r *PostgresRepo) OutboundExistsByProviderID(ctx context.Context, channel, providerMessageID string) (bool, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if providerMessageID == "" {
		return false, nil
	}

	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Message{}).
			Where("business_id = ? AND channel = ? AND direction = ? AND provider_message_id = ?",
				businessID, channel, model.MessageDirectionOutbound, providerMessageID).
			Count(&count)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "OutboundExistsByProviderID Read", operation)
	observer.ObserveDbOperationDuration("read", "message", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to check outbound message existence",
			zap.String("provider_message_id", providerMessageID), zap.Error(readErr))
		return false, readErr
	}

	return count > 0, nil
}

// FindRecentByConversation returns the latest limit messages of a
// conversation, oldest first.
func (r *PostgresRepo) FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var messages []model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("business_id = ? AND conversation_id = ?", businessID, conversationID).
			Order("message_timestamp DESC").
			Limit(limit).
			Find(&messages)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "FindRecentByConversation Read", operation)
	observer.ObserveDbOperationDuration("read", "message", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to find recent messages",
			zap.String("conversation_id", conversationID), zap.Error(readErr))
		return nil, readErr
	}

	// Query fetched newest-first for the limit, flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// FindAllByConversation returns the full conversation oldest first.
func (r *PostgresRepo) FindAllByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var messages []model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("business_id = ? AND conversation_id = ?", businessID, conversationID).
			Order("message_timestamp ASC").
			Find(&messages)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "FindAllByConversation Read", operation)
	observer.ObserveDbOperationDuration("read", "message", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to find conversation messages",
			zap.String("conversation_id", conversationID), zap.Error(readErr))
		return nil, readErr
	}

	return messages, nil
}
