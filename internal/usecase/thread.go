package usecase

import (
	"context"

	"gorm.io/datatypes"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// RecordInbound upserts the conversation thread for an inbound message and
// appends the message to the flat log. Either write failing fails the whole
// operation with ErrPersistence; no partial state is tolerated.
func (s *PipelineService) RecordInbound(ctx context.Context, msg model.NormalizedMessage, intentLabel string) (model.ConversationThread, error) {
	thread := model.ConversationThread{
		BusinessID:           msg.BusinessID,
		Channel:              msg.Channel,
		ConversationKey:      msg.ConversationKey(),
		ContactName:          msg.SenderName,
		ContactHandle:        msg.SenderHandle,
		Status:               model.ThreadStatusOpen,
		LastMessageText:      msg.MessageText,
		LastMessageDirection: model.MessageDirectionInbound,
		LastMessageAt:        msg.Timestamp,
		LastIntent:           intentLabel,
	}

	stored, err := s.threadRepo.UpsertInbound(ctx, thread)
	if err != nil {
		return model.ConversationThread{}, apperrors.NewFatal(apperrors.ErrPersistence, "failed to upsert inbound thread: %v", err)
	}

	if err := s.appendMessage(ctx, stored.ID, msg, model.MessageDirectionInbound, msg.MessageText, msg.ProviderMessageID(), msg.Metadata); err != nil {
		return model.ConversationThread{}, err
	}

	return stored, nil
}

// RecordOutbound upserts the thread for an outbound message (a generated
// reply, a promo, or the business's own sent message redelivered by the
// platform) and appends it to the flat log. The thread's unread count is
// reset and last_intent is left untouched.
func (s *PipelineService) RecordOutbound(ctx context.Context, msg model.NormalizedMessage, text, rule string) (model.ConversationThread, error) {
	thread := model.ConversationThread{
		BusinessID:           msg.BusinessID,
		Channel:              msg.Channel,
		ConversationKey:      msg.ConversationKey(),
		ContactName:          msg.SenderName,
		ContactHandle:        msg.SenderHandle,
		Status:               model.ThreadStatusOpen,
		LastMessageText:      text,
		LastMessageDirection: model.MessageDirectionOutbound,
		LastMessageAt:        utils.Now(),
	}

	stored, err := s.threadRepo.UpsertOutbound(ctx, thread)
	if err != nil {
		return model.ConversationThread{}, apperrors.NewFatal(apperrors.ErrPersistence, "failed to upsert outbound thread: %v", err)
	}

	metadata := map[string]interface{}{}
	if rule != "" {
		metadata[model.MetaReplyRule] = rule
	}
	providerID := ""
	if msg.IsOutbound() {
		// A redelivered own-sent message keeps its provider id so the echo
		// filter can match later redeliveries of the same message.
		providerID = msg.ProviderMessageID()
	}
	if err := s.appendMessage(ctx, stored.ID, msg, model.MessageDirectionOutbound, text, providerID, metadata); err != nil {
		return model.ConversationThread{}, err
	}

	return stored, nil
}

func (s *PipelineService) appendMessage(ctx context.Context, threadID int64, msg model.NormalizedMessage, direction, text, providerID string, metadata map[string]interface{}) error {
	var metadataJSON datatypes.JSON
	if len(metadata) > 0 {
		metadataJSON = datatypes.JSON(utils.MustMarshalJSON(metadata))
	}

	row := model.Message{
		BusinessID:        msg.BusinessID,
		ThreadID:          threadID,
		ConversationID:    msg.ConversationID,
		Channel:           msg.Channel,
		Direction:         direction,
		SenderName:        msg.SenderName,
		SenderHandle:      msg.SenderHandle,
		MessageText:       text,
		ProviderMessageID: providerID,
		Metadata:          metadataJSON,
		MessageTimestamp:  msg.Timestamp,
	}
	if err := s.messageRepo.SaveMessage(ctx, row); err != nil {
		return apperrors.NewFatal(apperrors.ErrPersistence, "failed to append message: %v", err)
	}
	return nil
}
