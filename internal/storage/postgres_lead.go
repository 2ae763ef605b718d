package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// Upsert creates the lead or refreshes the existing (business, conversation)
// row. The insert uses ON CONFLICT DO NOTHING so RowsAffected tells us
// whether a brand new lead was created; on conflict the updatable fields are
// refreshed in a follow-up update and the stored row is read back.
func (r *PostgresRepo) Upsert(ctx context.Context, lead model.Lead) (model.Lead, bool, error) {
	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return lead, false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if businessID != lead.BusinessID {
		return lead, false, fmt.Errorf("%w: lead BusinessID %s does not match tenant ID %s", apperrors.ErrBadRequest, lead.BusinessID, businessID)
	}

	lead.UpdatedAt = utils.Now()
	var created bool

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "business_id"},
				{Name: "conversation_id"},
			},
			DoNothing: true,
		}).Create(&lead)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}

		if result.RowsAffected > 0 {
			created = true
			return nil
		}

		// Conflict path: refresh the existing row and read it back so the
		// caller sees the stored lead id.
		created = false
		updates := map[string]interface{}{
			"customer_id": lead.CustomerID,
			"name":        lead.Name,
			"email":       lead.Email,
			"phone":       lead.Phone,
			"stage":       lead.Stage,
			"reason":      lead.Reason,
			"updated_at":  lead.UpdatedAt,
		}
		updateResult := r.db.WithContext(ctx).Model(&model.Lead{}).
			Where("business_id = ? AND conversation_id = ?", lead.BusinessID, lead.ConversationID).
			Updates(updates)
		if updateResult.Error != nil {
			return checkConstraintViolation(updateResult.Error)
		}

		var stored model.Lead
		findResult := r.db.WithContext(ctx).
			Where("business_id = ? AND conversation_id = ?", lead.BusinessID, lead.ConversationID).
			First(&stored)
		if findResult.Error != nil {
			return checkConstraintViolation(findResult.Error)
		}
		lead = stored
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertLead Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "lead", businessID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert lead after retries",
			zap.String("conversation_id", lead.ConversationID), zap.Error(commitErr))
		return lead, false, commitErr
	}

	return lead, created, nil
}
