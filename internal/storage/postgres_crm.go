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

// NoteExists reports whether the customer already has a note with this
// exact body. CRM replays dedupe on it so re-syncs stay idempotent.
func (r *PostgresRepo) NoteExists(ctx context.Context, customerID, body string) (bool, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.CrmNote{}).
			Where("business_id = ? AND customer_id = ? AND body = ?", businessID, customerID, body).
			Count(&count)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "NoteExists Read", operation)
	observer.ObserveDbOperationDuration("read", "crm_note", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to check CRM note existence",
			zap.String("customer_id", customerID), zap.Error(readErr))
		return false, readErr
	}

	return count > 0, nil
}

// SaveNote stores one CRM note.
func (r *PostgresRepo) SaveNote(ctx context.Context, note model.CrmNote) error {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != note.BusinessID {
		return fmt.Errorf("%w: note BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, note.BusinessID, businessID)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Create(&note)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveNote Commit", operation)
	observer.ObserveDbOperationDuration("insert", "crm_note", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save CRM note after retries",
			zap.String("customer_id", note.CustomerID), zap.Error(commitErr))
		return commitErr
	}

	return nil
}

// PendingChatbotBookingExists reports whether the customer already has a
// pending chatbot-sourced booking. At most one may exist.
func (r *PostgresRepo) PendingChatbotBookingExists(ctx context.Context, customerID string) (bool, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Booking{}).
			Where("business_id = ? AND customer_id = ? AND status = ? AND source = ?",
				businessID, customerID, model.BookingStatusPending, model.BookingSourceChatbot).
			Count(&count)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "PendingChatbotBookingExists Read", operation)
	observer.ObserveDbOperationDuration("read", "booking", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to check pending booking existence",
			zap.String("customer_id", customerID), zap.Error(readErr))
		return false, readErr
	}

	return count > 0, nil
}

// SaveBooking stores one booking.
func (r *PostgresRepo) SaveBooking(ctx context.Context, booking model.Booking) error {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != booking.BusinessID {
		return fmt.Errorf("%w: booking BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, booking.BusinessID, businessID)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Create(&booking)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveBooking Commit", operation)
	observer.ObserveDbOperationDuration("insert", "booking", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save booking after retries",
			zap.String("customer_id", booking.CustomerID), zap.Error(commitErr))
		return commitErr
	}

	return nil
}
