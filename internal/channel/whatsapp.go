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

// WhatsAppSender posts text messages through the Cloud API.
type WhatsAppSender struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewWhatsAppSender creates the WhatsApp adapter. An empty accessToken
// leaves the adapter unconfigured; sends report an error result.
func NewWhatsAppSender(accessToken, baseURL string, timeout time.Duration) *WhatsAppSender {
	return &WhatsAppSender{
		accessToken: accessToken,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (s *WhatsAppSender) Channel() string {
	return model.ChannelWhatsApp
}

type whatsAppSendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsAppSendText `json:"text"`
}

type whatsAppSendText struct {
	Body string `json:"body"`
}

// Send posts the text to the recipient's wa_id.
func (s *WhatsAppSender) Send(ctx context.Context, businessID, recipientHandle, text string) SendResult {
	if s.accessToken == "" {
		return SendResult{Sent: false, Error: "whatsapp access token not configured"}
	}

	body, err := json.Marshal(whatsAppSendRequest{
		MessagingProduct: "whatsapp",
		To:               recipientHandle,
		Type:             "text",
		Text:             whatsAppSendText{Body: text},
	})
	if err != nil {
		return SendResult{Sent: false, Error: fmt.Sprintf("failed to marshal send request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return SendResult{Sent: false, Error: fmt.Sprintf("failed to build send request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		observer.IncChannelSend(model.ChannelWhatsApp, businessID, "error")
		logger.FromContext(ctx).Warn("WhatsApp send failed",
			zap.String("recipient", recipientHandle), zap.Error(err))
		return SendResult{Sent: false, Error: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observer.IncChannelSend(model.ChannelWhatsApp, businessID, "error")
		logger.FromContext(ctx).Warn("WhatsApp send returned non-success status",
			zap.String("recipient", recipientHandle), zap.Int("status", resp.StatusCode))
		return SendResult{Sent: false, Error: fmt.Sprintf("whatsapp send returned status %d", resp.StatusCode)}
	}

	observer.IncChannelSend(model.ChannelWhatsApp, businessID, "sent")
	return SendResult{Sent: true}
}
