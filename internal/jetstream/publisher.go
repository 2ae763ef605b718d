package jetstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

// EventPublisher emits pipeline domain events. Implementations are
// best-effort: callers log failures and continue.
type EventPublisher interface {
	PublishLeadQualified(ctx context.Context, event model.LeadQualifiedEvent) error
	PublishConversationTracked(ctx context.Context, event model.ConversationTrackedEvent) error
}

// Publisher writes domain events to JetStream under a subject prefix.
type Publisher struct {
	client        ClientInterface
	subjectPrefix string
}

// NewPublisher creates a publisher and provisions the event stream.
func NewPublisher(ctx context.Context, client ClientInterface, streamName, subjectPrefix string) (*Publisher, error) {
	streamConfig := &nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  nats.FileStorage,
	}
	if err := client.SetupStream(ctx, streamConfig); err != nil {
		return nil, fmt.Errorf("failed to setup event stream: %w", err)
	}

	return &Publisher{
		client:        client,
		subjectPrefix: subjectPrefix,
	}, nil
}

// PublishLeadQualified emits a lead-qualified event.
func (p *Publisher) PublishLeadQualified(ctx context.Context, event model.LeadQualifiedEvent) error {
	return p.publish(ctx, model.SubjectLeadQualified, event.BusinessID, event)
}

// PublishConversationTracked emits a conversation-window-opened event.
func (p *Publisher) PublishConversationTracked(ctx context.Context, event model.ConversationTrackedEvent) error {
	return p.publish(ctx, model.SubjectConversationTracked, event.BusinessID, event)
}

func (p *Publisher) publish(ctx context.Context, subjectSuffix, businessID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, subjectSuffix)
	headers := map[string]string{"business_id": businessID}

	if err := p.client.Publish(subject, data, headers); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish domain event",
			zap.String("subject", subject), zap.Error(err))
		return err
	}

	return nil
}

// NoopPublisher satisfies EventPublisher when NATS is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishLeadQualified(ctx context.Context, event model.LeadQualifiedEvent) error {
	return nil
}

func (NoopPublisher) PublishConversationTracked(ctx context.Context, event model.ConversationTrackedEvent) error {
	return nil
}

var _ EventPublisher = (*Publisher)(nil)
var _ EventPublisher = NoopPublisher{}
