package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// FindBusinessByID returns the tenant record. Wraps ErrNotFound when the
// business does not exist; the cache layer caches that outcome too.
func (r *PostgresRepo) FindBusinessByID(ctx context.Context, businessID string) (*model.Business, error) {
	var business model.Business
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("id = ?", businessID).
			First(&business)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "FindBusinessByID Read", operation)
	observer.ObserveDbOperationDuration("read", "business", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		if errors.Is(readErr, gorm.ErrRecordNotFound) || errors.Is(readErr, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: business %s", apperrors.ErrNotFound, businessID)
		}
		logger.FromContext(ctx).Error("Failed to find business",
			zap.String("business_id", businessID), zap.Error(readErr))
		return nil, readErr
	}

	return &business, nil
}

// FindActiveServices returns the tenant's active services ordered by name,
// the order they are listed in the AI system prompt.
func (r *PostgresRepo) FindActiveServices(ctx context.Context, businessID string) ([]model.BusinessService, error) {
	var services []model.BusinessService
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("business_id = ? AND active = ?", businessID, true).
			Order("name ASC").
			Find(&services)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "FindActiveServices Read", operation)
	observer.ObserveDbOperationDuration("read", "business_service", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to find business services",
			zap.String("business_id", businessID), zap.Error(readErr))
		return nil, readErr
	}

	return services, nil
}
