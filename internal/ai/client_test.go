package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
)

func TestOpenAIClient_Complete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "A haircut is $30."}}]}`))
		}))
		defer server.Close()

		client := NewOpenAIClient("test-key", server.URL, "gpt-4o-mini", 300, 0.7, 5*time.Second)
		text, err := client.Complete(context.Background(), "You are a salon assistant.", "How much is a haircut?")
		require.NoError(t, err)
		assert.Equal(t, "A haircut is $30.", text)
	})

	t.Run("Non-2xx Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewOpenAIClient("test-key", server.URL, "gpt-4o-mini", 300, 0.7, 5*time.Second)
		_, err := client.Complete(context.Background(), "sys", "user")
		assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})

	t.Run("Empty Choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		client := NewOpenAIClient("test-key", server.URL, "gpt-4o-mini", 300, 0.7, 5*time.Second)
		_, err := client.Complete(context.Background(), "sys", "user")
		assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})

	t.Run("Unconfigured", func(t *testing.T) {
		client := NewOpenAIClient("", "http://unused", "gpt-4o-mini", 300, 0.7, 5*time.Second)
		assert.False(t, client.Configured())
		_, err := client.Complete(context.Background(), "sys", "user")
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}

func TestHTTPKnowledgeRetriever(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/retrieve", r.URL.Path)
			w.Write([]byte(`{"chunks": ["We offer haircuts from $30.", "Open Mon-Fri."]}`))
		}))
		defer server.Close()

		retriever := NewHTTPKnowledgeRetriever(server.URL, 5*time.Second)
		chunks, err := retriever.RetrieveChunks(context.Background(), "biz-1", "haircut price", 1)
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("Unconfigured Returns Nothing", func(t *testing.T) {
		retriever := NewHTTPKnowledgeRetriever("", 5*time.Second)
		chunks, err := retriever.RetrieveChunks(context.Background(), "biz-1", "anything", 1)
		require.NoError(t, err)
		assert.Nil(t, chunks)
	})

	t.Run("Upstream Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		retriever := NewHTTPKnowledgeRetriever(server.URL, 5*time.Second)
		_, err := retriever.RetrieveChunks(context.Background(), "biz-1", "anything", 1)
		assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})
}
