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

// FindByEmail returns the tenant's customer with this email, or nil when
// none matches.
func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return r.findCustomer(ctx, "email = ?", email)
}

// FindByPhone returns the tenant's customer with this phone, or nil when
// none matches.
func (r *PostgresRepo) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	return r.findCustomer(ctx, "phone = ?", phone)
}

func (r *PostgresRepo) findCustomer(ctx context.Context, cond string, value string) (*model.Customer, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if value == "" {
		return nil, nil
	}

	var customer model.Customer
	var found bool
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("business_id = ?", businessID).
			Where(cond, value).
			First(&customer)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return checkConstraintViolation(result.Error)
		}
		found = true
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	readErr := retryableOperation(ctx, readPolicy, "FindCustomer Read", operation)
	observer.ObserveDbOperationDuration("read", "customer", businessID, time.Since(startTime), readErr)

	if readErr != nil {
		logger.FromContext(ctx).Error("Failed to find customer", zap.Error(readErr))
		return nil, readErr
	}
	if !found {
		return nil, nil
	}

	return &customer, nil
}

// SaveCustomer stores a customer record.
func (r *PostgresRepo) SaveCustomer(ctx context.Context, customer model.Customer) error {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != customer.BusinessID {
		return fmt.Errorf("%w: customer BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, customer.BusinessID, businessID)
	}

	customer.UpdatedAt = utils.Now()

	operation := func() error {
		// Upsert keyed on the id so replays of the same customer are idempotent
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "updated_at"}),
		}).Create(&customer)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveCustomer Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "customer", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save customer after retries",
			zap.String("customer_id", customer.ID), zap.Error(commitErr))
		return commitErr
	}

	return nil
}
