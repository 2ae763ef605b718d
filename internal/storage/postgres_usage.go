package storage

import (
	"context"
	"errors"
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

// Increment adds n to the tenant's (metric, period) counter. The additive
// assignment runs inside ON CONFLICT so concurrent increments never lose
// updates and negative drift is impossible.
func (r *PostgresRepo) Increment(ctx context.Context, metric, period string, n int64) error {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if n <= 0 {
		return fmt.Errorf("%w: increment must be positive, got %d", apperrors.ErrBadRequest, n)
	}

	now := utils.Now()
	counter := model.UsageCounter{
		BusinessID: businessID,
		Metric:     metric,
		Period:     period,
		Value:      n,
		UpdatedAt:  now,
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "business_id"},
				{Name: "metric"},
				{Name: "period"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      gorm.Expr("usage_counters.value + ?", n),
				"updated_at": now,
			}),
		}).Create(&counter)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "IncrementUsage Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "usage_counter", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to increment usage counter after retries",
			zap.String("metric", metric), zap.String("period", period), zap.Error(commitErr))
		return commitErr
	}

	return nil
}

// Get returns the tenant's counter value for (metric, period), zero when
// the row does not exist.
func (r *PostgresRepo) Get(ctx context.Context, metric, period string) (int64, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var counter model.UsageCounter
	var value int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("business_id = ? AND metric = ? AND period = ?", businessID, metric, period).
			First(&counter)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				value = 0
				return nil
			}
			return checkConstraintViolation(result.Error)
		}
		value = counter.Value
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "GetUsage Read", operation)
	observer.ObserveDbOperationDuration("read", "usage_counter", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to read usage counter",
			zap.String("metric", metric), zap.String("period", period), zap.Error(readErr))
		return 0, readErr
	}

	return value, nil
}
