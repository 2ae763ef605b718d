package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/intent"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/normalizer"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/internal/validator"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

// Per-message pipeline outcomes.
const (
	OutcomeReplied         = "replied"
	OutcomeProcessed       = "processed"
	OutcomeSkippedEcho     = "skipped_echo"
	OutcomeSkippedOutbound = "skipped_outbound"
	OutcomeFailed          = "failed"
)

// MessageResult reports the outcome of one message in a webhook delivery.
type MessageResult struct {
	ConversationID string `json:"conversation_id"`
	Outcome        string `json:"outcome"`
	Error          string `json:"error,omitempty"`
}

// Failed reports whether the message ended in a failure outcome.
func (r MessageResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// ProcessPayload normalizes a raw webhook body and runs every extracted
// message through the pipeline. A malformed payload is returned as an
// error; one message's failure never aborts its siblings.
func (s *PipelineService) ProcessPayload(ctx context.Context, channelName string, payload []byte) ([]MessageResult, error) {
	messages, err := normalizer.Parse(channelName, payload)
	if err != nil {
		observer.IncWebhookPayloadsRejected(channelName)
		return nil, err
	}

	results := make([]MessageResult, 0, len(messages))
	for _, msg := range messages {
		if err := validator.Validate(msg); err != nil {
			logger.FromContext(ctx).Warn("Dropping invalid normalized message",
				zap.String("channel", channelName),
				zap.String("conversation_id", msg.ConversationID),
				zap.Error(err),
			)
			results = append(results, MessageResult{
				ConversationID: msg.ConversationID,
				Outcome:        OutcomeFailed,
				Error:          err.Error(),
			})
			continue
		}
		observer.IncWebhookMessagesNormalized(channelName, msg.BusinessID)
		results = append(results, s.ProcessMessage(ctx, msg))
	}
	return results, nil
}

// ProcessMessage runs one normalized message through the stage sequence:
// echo filter, thread + message recording, intent classification, usage
// metering, reply generation and send, promo, qualification and CRM sync.
// Stage failures after the inbound record are caught here and degrade;
// only persistence failures fail the message.
func (s *PipelineService) ProcessMessage(ctx context.Context, msg model.NormalizedMessage) MessageResult {
	start := time.Now()
	ctx = tenant.WithBusinessID(ctx, msg.BusinessID)
	log := logger.FromContext(ctx).With(
		zap.String("business_id", msg.BusinessID),
		zap.String("channel", msg.Channel),
		zap.String("conversation_id", msg.ConversationID),
	)
	ctx = logger.WithLogger(ctx, log)

	result := MessageResult{ConversationID: msg.ConversationID}
	defer func() {
		observer.ObservePipelineProcessingDuration(msg.Channel, msg.BusinessID, time.Since(start))
		observer.IncPipelineMessagesProcessed(msg.Channel, msg.BusinessID, result.Outcome)
	}()

	echo, err := s.IsEcho(ctx, msg)
	if err != nil {
		// Treat the message as fresh; redelivery is at-least-once anyway.
		log.Warn("Echo check failed, continuing as non-echo", zap.Error(err))
	}
	if echo {
		log.Debug("Dropping echoed message", zap.String("provider_message_id", msg.ProviderMessageID()))
		result.Outcome = OutcomeSkippedEcho
		return result
	}

	if msg.IsOutbound() {
		// The business's own sent message delivered through the webhook.
		// Record it so the thread state and echo filter stay accurate, then
		// stop; it never gets a reply or qualification.
		if _, err := s.RecordOutbound(ctx, msg, msg.MessageText, ""); err != nil {
			log.Error("Failed to record own outbound message", zap.Error(err))
			result.Outcome = OutcomeFailed
			result.Error = err.Error()
			return result
		}
		result.Outcome = OutcomeSkippedOutbound
		return result
	}

	intentLabel := intent.Classify(msg.MessageText)

	thread, err := s.RecordInbound(ctx, msg, intentLabel)
	if err != nil {
		log.Error("Failed to record inbound message", zap.Error(err))
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}

	bizCtx, err := s.contextCache.Get(ctx, msg.BusinessID)
	if err != nil {
		log.Warn("Failed to load business context, continuing degraded", zap.Error(err))
		bizCtx = model.BusinessContext{BusinessID: msg.BusinessID, Missing: true}
	}

	if _, err := s.TrackConversationWindow(ctx, thread.ID, msg); err != nil {
		log.Warn("Failed to track conversation window", zap.Error(err))
	}

	replied := s.replyStage(ctx, msg, bizCtx)
	s.promoStage(ctx, thread.ID, msg, bizCtx, intentLabel)

	qualification, err := s.Qualify(ctx, msg, intentLabel)
	if err != nil {
		log.Error("Lead qualification failed", zap.Error(err))
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}
	if qualification.Qualified && s.crmWorker != nil {
		task := CrmSyncTask{
			Ctx:            context.WithoutCancel(ctx),
			BusinessID:     msg.BusinessID,
			ConversationID: msg.ConversationID,
			Channel:        msg.Channel,
			LeadID:         qualification.LeadID,
			CustomerID:     qualification.CustomerID,
			SenderName:     msg.SenderName,
			Email:          qualification.Email,
			Phone:          qualification.Phone,
			BookingIntent:  qualification.BookingIntent,
		}
		if err := s.crmWorker.SubmitTask(task); err != nil {
			log.Warn("Failed to submit CRM sync task", zap.String("lead_id", qualification.LeadID), zap.Error(err))
		}
	}

	if replied {
		result.Outcome = OutcomeReplied
	} else {
		result.Outcome = OutcomeProcessed
	}
	return result
}

// replyStage generates, records and sends a reply. Returns whether a
// reply went out. Failures degrade; the remaining stages still run.
func (s *PipelineService) replyStage(ctx context.Context, msg model.NormalizedMessage, bizCtx model.BusinessContext) bool {
	log := logger.FromContext(ctx)

	reply, err := s.replier.BuildReply(ctx, msg, bizCtx)
	if err != nil {
		log.Warn("Reply generation failed", zap.Error(err))
		return false
	}
	if reply == nil {
		return false
	}
	observer.IncReplyRuleChosen(msg.BusinessID, reply.Rule)

	if _, err := s.RecordOutbound(ctx, msg, reply.Text, reply.Rule); err != nil {
		log.Error("Failed to record outbound reply, not sending", zap.Error(err))
		return false
	}

	sender, ok := s.senders[msg.Channel]
	if !ok {
		log.Warn("No sender configured for channel", zap.String("channel", msg.Channel))
		return false
	}
	sendResult := sender.Send(ctx, msg.BusinessID, msg.SenderHandle, reply.Text)
	if !sendResult.Sent {
		log.Warn("Reply send failed", zap.String("rule", reply.Rule), zap.String("send_error", sendResult.Error))
		return false
	}

	log.Info("Reply sent", zap.String("rule", reply.Rule))
	return true
}

// promoStage sends the tenant's promotional message when the classified
// intent is one of the tenant's promo intents and the per-thread cooldown
// has elapsed. The cooldown claim is atomic, so concurrent messages on
// the same thread send at most one promo per window.
func (s *PipelineService) promoStage(ctx context.Context, threadID int64, msg model.NormalizedMessage, bizCtx model.BusinessContext, intentLabel string) {
	if bizCtx.Missing || bizCtx.PromoMessage == "" || !containsString(bizCtx.PromoIntents, intentLabel) {
		return
	}
	log := logger.FromContext(ctx)

	cooldown := time.Duration(s.cfg.Promo.CooldownHours) * time.Hour
	claimed, err := s.threadRepo.ClaimPromoSlot(ctx, threadID, cooldown)
	if err != nil {
		log.Warn("Failed to claim promo slot", zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	if _, err := s.RecordOutbound(ctx, msg, bizCtx.PromoMessage, ReplyRulePromo); err != nil {
		log.Error("Failed to record promo message, not sending", zap.Error(err))
		return
	}
	sender, ok := s.senders[msg.Channel]
	if !ok {
		return
	}
	sendResult := sender.Send(ctx, msg.BusinessID, msg.SenderHandle, bizCtx.PromoMessage)
	if !sendResult.Sent {
		log.Warn("Promo send failed", zap.String("send_error", sendResult.Error))
		return
	}
	log.Info("Promo sent", zap.String("intent", intentLabel))
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
