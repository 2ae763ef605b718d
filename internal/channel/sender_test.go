package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatlead/convo-pipeline/pkg/logger"
)

func setTestLogger(t *testing.T) {
	t.Helper()

	originalLogger := logger.Log
	logger.Log = zaptest.NewLogger(t)
	t.Cleanup(func() { logger.Log = originalLogger })
}

func TestWhatsAppSender_Send(t *testing.T) {
	setTestLogger(t)

	t.Run("Success", func(t *testing.T) {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/messages", r.URL.Path)
			assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Write([]byte(`{"messages": [{"id": "wamid.sent"}]}`))
		}))
		defer server.Close()

		sender := NewWhatsAppSender("wa-token", server.URL, 5*time.Second)
		result := sender.Send(context.Background(), "biz-1", "628123456789", "A haircut is $30.")

		assert.True(t, result.Sent)
		assert.Empty(t, result.Error)
		assert.Equal(t, "whatsapp", captured["messaging_product"])
		assert.Equal(t, "628123456789", captured["to"])
	})

	t.Run("Non-2xx Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		sender := NewWhatsAppSender("bad-token", server.URL, 5*time.Second)
		result := sender.Send(context.Background(), "biz-1", "628123456789", "hello")

		assert.False(t, result.Sent)
		assert.Contains(t, result.Error, "401")
	})

	t.Run("Unconfigured", func(t *testing.T) {
		sender := NewWhatsAppSender("", "http://unused", 5*time.Second)
		result := sender.Send(context.Background(), "biz-1", "628123456789", "hello")

		assert.False(t, result.Sent)
		assert.Contains(t, result.Error, "not configured")
	})
}

func TestInstagramSender_Send(t *testing.T) {
	setTestLogger(t)

	t.Run("Success", func(t *testing.T) {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/me/messages", r.URL.Path)
			assert.Equal(t, "Bearer ig-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Write([]byte(`{"message_id": "mid.sent"}`))
		}))
		defer server.Close()

		sender := NewInstagramSender("ig-token", server.URL, 5*time.Second)
		result := sender.Send(context.Background(), "biz-1", "ig-user-1", "We are open Mon-Fri.")

		assert.True(t, result.Sent)
		recipient := captured["recipient"].(map[string]interface{})
		assert.Equal(t, "ig-user-1", recipient["id"])
	})

	t.Run("Network Failure", func(t *testing.T) {
		sender := NewInstagramSender("ig-token", "http://127.0.0.1:1", 500*time.Millisecond)
		result := sender.Send(context.Background(), "biz-1", "ig-user-1", "hello")

		assert.False(t, result.Sent)
		assert.NotEmpty(t, result.Error)
	})
}
