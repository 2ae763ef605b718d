// Package usecase holds the pipeline's business logic: echo filtering,
// thread recording, intent-driven qualification, usage metering, reply
// generation and the per-message orchestrator tying them together.
package usecase

import (
	"context"

	"github.com/chatlead/convo-pipeline/internal/channel"
	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/jetstream"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/storage"
)

// BusinessContextProvider yields cached tenant configuration. Satisfied by
// cache.BusinessContextCache.
type BusinessContextProvider interface {
	Get(ctx context.Context, businessID string) (model.BusinessContext, error)
}

// PipelineService wires the storage, cache, reply and transport
// collaborators behind the per-message processing entrypoint.
type PipelineService struct {
	threadRepo   storage.ThreadRepo
	messageRepo  storage.MessageRepo
	customerRepo storage.CustomerRepo
	leadRepo     storage.LeadRepo
	usageRepo    storage.UsageRepo
	contextCache BusinessContextProvider
	replier      ReplyBuilder
	crmWorker    ICrmSyncWorker
	senders      map[string]channel.Sender
	publisher    jetstream.EventPublisher
	cfg          *config.Config
}

// NewPipelineService creates the orchestrating service. Senders are keyed
// by channel name; a nil crmWorker or publisher disables that stage.
func NewPipelineService(
	threadRepo storage.ThreadRepo,
	messageRepo storage.MessageRepo,
	customerRepo storage.CustomerRepo,
	leadRepo storage.LeadRepo,
	usageRepo storage.UsageRepo,
	contextCache BusinessContextProvider,
	replier ReplyBuilder,
	crmWorker ICrmSyncWorker,
	senders []channel.Sender,
	publisher jetstream.EventPublisher,
	cfg *config.Config,
) *PipelineService {
	senderMap := make(map[string]channel.Sender, len(senders))
	for _, s := range senders {
		senderMap[s.Channel()] = s
	}
	if publisher == nil {
		publisher = jetstream.NoopPublisher{}
	}
	return &PipelineService{
		threadRepo:   threadRepo,
		messageRepo:  messageRepo,
		customerRepo: customerRepo,
		leadRepo:     leadRepo,
		usageRepo:    usageRepo,
		contextCache: contextCache,
		replier:      replier,
		crmWorker:    crmWorker,
		senders:      senderMap,
		publisher:    publisher,
		cfg:          cfg,
	}
}
