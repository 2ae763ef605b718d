package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/usecase"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

type processorMock struct {
	mock.Mock
}

func (m *processorMock) ProcessPayload(ctx context.Context, channel string, payload []byte) ([]usecase.MessageResult, error) {
	args := m.Called(ctx, channel, payload)
	if results := args.Get(0); results != nil {
		return results.([]usecase.MessageResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestServer(t *testing.T) (*Server, *processorMock) {
	t.Helper()

	originalLogger := logger.Log
	logger.Log = zaptest.NewLogger(t)
	t.Cleanup(func() { logger.Log = originalLogger })

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Channels.WhatsApp.VerifyToken = "secret-verify-token"

	processor := new(processorMock)
	return NewServer(processor, cfg), processor
}

func TestHandleVerification(t *testing.T) {
	t.Run("Valid Token Echoes Challenge", func(t *testing.T) {
		server, _ := newTestServer(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secret-verify-token&hub.challenge=challenge-123", nil)
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "challenge-123", w.Body.String())
	})

	t.Run("Wrong Token Forbidden", func(t *testing.T) {
		server, _ := newTestServer(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=challenge-123", nil)
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Missing Token Forbidden", func(t *testing.T) {
		server, _ := newTestServer(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe", nil)
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server, processor := newTestServer(t)
		results := []usecase.MessageResult{
			{ConversationID: "conv-1", Outcome: usecase.OutcomeReplied},
			{ConversationID: "conv-2", Outcome: usecase.OutcomeSkippedEcho},
		}
		processor.On("ProcessPayload", mock.Anything, "whatsapp", []byte(`{"ok":true}`)).Return(results, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{"ok":true}`))
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"messages":2`)
		assert.Contains(t, w.Body.String(), `"failed":0`)
		processor.AssertExpectations(t)
	})

	t.Run("Malformed Payload Rejected With 400", func(t *testing.T) {
		server, processor := newTestServer(t)
		processor.On("ProcessPayload", mock.Anything, "whatsapp", mock.Anything).
			Return(nil, apperrors.ErrMalformedPayload).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{}`))
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("All Messages Failed Returns 500", func(t *testing.T) {
		server, processor := newTestServer(t)
		results := []usecase.MessageResult{
			{ConversationID: "conv-1", Outcome: usecase.OutcomeFailed, Error: "persistence failed"},
		}
		processor.On("ProcessPayload", mock.Anything, "instagram", mock.Anything).Return(results, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/instagram", strings.NewReader(`{}`))
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("Partial Failure Returns 200", func(t *testing.T) {
		server, processor := newTestServer(t)
		results := []usecase.MessageResult{
			{ConversationID: "conv-1", Outcome: usecase.OutcomeFailed, Error: "persistence failed"},
			{ConversationID: "conv-2", Outcome: usecase.OutcomeProcessed},
		}
		processor.On("ProcessPayload", mock.Anything, "whatsapp", mock.Anything).Return(results, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{}`))
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"failed":1`)
	})

	t.Run("Unsupported Channel Returns 404", func(t *testing.T) {
		server, processor := newTestServer(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{}`))
		server.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		processor.AssertNotCalled(t, "ProcessPayload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Request ID Propagated", func(t *testing.T) {
		server, processor := newTestServer(t)
		processor.On("ProcessPayload", mock.Anything, "whatsapp", mock.Anything).
			Return([]usecase.MessageResult{}, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{}`))
		req.Header.Set("X-Request-ID", "req-42")
		server.Engine().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})
}
