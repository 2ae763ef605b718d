package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
)

// KnowledgeRetriever queries the external knowledge base for relevant
// chunks. Only the query contract is consumed here; chunking and vector
// search belong to the knowledge base service.
type KnowledgeRetriever interface {
	RetrieveChunks(ctx context.Context, businessID, query string, k int) ([]string, error)
}

// HTTPKnowledgeRetriever calls the knowledge base service over HTTP.
type HTTPKnowledgeRetriever struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPKnowledgeRetriever creates a retriever. An empty baseURL yields a
// retriever that always returns no chunks, treated as feature-disabled.
func NewHTTPKnowledgeRetriever(baseURL string, timeout time.Duration) *HTTPKnowledgeRetriever {
	return &HTTPKnowledgeRetriever{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type knowledgeRequest struct {
	BusinessID string `json:"business_id"`
	Query      string `json:"query"`
	K          int    `json:"k"`
}

type knowledgeResponse struct {
	Chunks []string `json:"chunks"`
}

// RetrieveChunks returns the top-k chunks for the query, or nil when the
// retriever is unconfigured.
func (r *HTTPKnowledgeRetriever) RetrieveChunks(ctx context.Context, businessID, query string, k int) ([]string, error) {
	if r.baseURL == "" {
		return nil, nil
	}

	body, err := json.Marshal(knowledgeRequest{BusinessID: businessID, Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal knowledge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/retrieve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build knowledge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: knowledge base call failed: %w", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: knowledge base returned status %d", apperrors.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var decoded knowledgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: failed to decode knowledge response: %w", apperrors.ErrUpstreamUnavailable, err)
	}

	return decoded.Chunks, nil
}
