package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

// InstagramSender posts text messages through the Messenger platform API.
type InstagramSender struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewInstagramSender creates the Instagram adapter. An empty accessToken
// leaves the adapter unconfigured; sends report an error result.
func NewInstagramSender(accessToken, baseURL string, timeout time.Duration) *InstagramSender {
	return &InstagramSender{
		accessToken: accessToken,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (s *InstagramSender) Channel() string {
	return model.ChannelInstagram
}

type instagramSendRequest struct {
	Recipient instagramID      `json:"recipient"`
	Message   instagramMessage `json:"message"`
}

type instagramID struct {
	ID string `json:"id"`
}

type instagramMessage struct {
	Text string `json:"text"`
}

// Send posts the text to the recipient's user id.
func (s *InstagramSender) Send(ctx context.Context, businessID, recipientHandle, text string) SendResult {
	if s.accessToken == "" {
		return SendResult{Sent: false, Error: "instagram access token not configured"}
	}

	body, err := json.Marshal(instagramSendRequest{
		Recipient: instagramID{ID: recipientHandle},
		Message:   instagramMessage{Text: text},
	})
	if err != nil {
		return SendResult{Sent: false, Error: fmt.Sprintf("failed to marshal send request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return SendResult{Sent: false, Error: fmt.Sprintf("failed to build send request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		observer.IncChannelSend(model.ChannelInstagram, businessID, "error")
		logger.FromContext(ctx).Warn("Instagram send failed",
			zap.String("recipient", recipientHandle), zap.Error(err))
		return SendResult{Sent: false, Error: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observer.IncChannelSend(model.ChannelInstagram, businessID, "error")
		logger.FromContext(ctx).Warn("Instagram send returned non-success status",
			zap.String("recipient", recipientHandle), zap.Int("status", resp.StatusCode))
		return SendResult{Sent: false, Error: fmt.Sprintf("instagram send returned status %d", resp.StatusCode)}
	}

	observer.IncChannelSend(model.ChannelInstagram, businessID, "sent")
	return SendResult{Sent: true}
}
