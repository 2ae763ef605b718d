package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// TrackConversationWindow opens a 24h usage window on the thread when no
// window is currently open, and increments the monthly conversations
// counter for the window-opening message only. The window claim is a
// single conditional UPDATE, so concurrent messages on the same thread
// increment at most once.
func (s *PipelineService) TrackConversationWindow(ctx context.Context, threadID int64, msg model.NormalizedMessage) (bool, error) {
	windowDur := time.Duration(s.cfg.Usage.WindowHours) * time.Hour

	claimed, err := s.threadRepo.ClaimUsageWindow(ctx, threadID, windowDur)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	period := utils.MonthPeriod(msg.Timestamp)
	if err := s.usageRepo.Increment(ctx, model.MetricConversations24h, period, 1); err != nil {
		return false, err
	}

	event := model.ConversationTrackedEvent{
		BusinessID:     msg.BusinessID,
		ConversationID: msg.ConversationID,
		Channel:        msg.Channel,
		Period:         period,
		TrackedAt:      utils.Now(),
	}
	if pubErr := s.publisher.PublishConversationTracked(ctx, event); pubErr != nil {
		logger.FromContext(ctx).Warn("Failed to publish conversation tracked event", zap.Error(pubErr))
	}

	logger.FromContext(ctx).Debug("Opened conversation usage window",
		zap.Int64("thread_id", threadID), zap.String("period", period))
	return true, nil
}
