package usecase

import (
	"context"

	"github.com/chatlead/convo-pipeline/internal/model"
)

// IsEcho reports whether the inbound message is a redelivery of the
// business's own sent message. Platforms may feed a just-sent outbound
// message back through the same webhook; without this check the pipeline
// would answer its own reply.
//
// Only WhatsApp messages are checked. Messages whose own metadata marks
// them outbound are not echoes (they are recorded as outbound instead),
// and a message without a provider id cannot be matched.
func (s *PipelineService) IsEcho(ctx context.Context, msg model.NormalizedMessage) (bool, error) {
	if msg.Channel != model.ChannelWhatsApp {
		return false, nil
	}
	if msg.IsOutbound() {
		return false, nil
	}
	providerID := msg.ProviderMessageID()
	if providerID == "" {
		return false, nil
	}
	return s.messageRepo.OutboundExistsByProviderID(ctx, msg.Channel, providerID)
}
