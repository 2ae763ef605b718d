package mock

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"

	"github.com/chatlead/convo-pipeline/internal/jetstream"
	"github.com/chatlead/convo-pipeline/internal/model"
)

// ClientMock is a mock implementation of the JetStream Client
type ClientMock struct {
	mock.Mock
}

// Ensure ClientMock implements jetstream.ClientInterface
var _ jetstream.ClientInterface = (*ClientMock)(nil)

// SetupStream mocks the SetupStream method
func (m *ClientMock) SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error {
	args := m.Called(ctx, streamConfig)
	return args.Error(0)
}

// Publish mocks the Publish method
func (m *ClientMock) Publish(subject string, data []byte, headers map[string]string) error {
	args := m.Called(subject, data, headers)
	return args.Error(0)
}

// NatsConn returns the underlying *nats.Conn (mocked)
func (m *ClientMock) NatsConn() *nats.Conn {
	m.Called()
	return nil
}

// Close mocks the Close method
func (m *ClientMock) Close() {
	m.Called()
}

// EventPublisherMock is a mock implementation of jetstream.EventPublisher
type EventPublisherMock struct {
	mock.Mock
}

var _ jetstream.EventPublisher = (*EventPublisherMock)(nil)

func (m *EventPublisherMock) PublishLeadQualified(ctx context.Context, event model.LeadQualifiedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *EventPublisherMock) PublishConversationTracked(ctx context.Context, event model.ConversationTrackedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
