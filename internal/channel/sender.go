// Package channel implements outbound reply delivery, one adapter per
// messaging platform. Delivery failures are reported in the result and
// never abort the pipeline.
package channel

import (
	"context"
)

// SendResult is the outcome of one send attempt.
type SendResult struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// Sender delivers one text message to a recipient handle on a platform.
type Sender interface {
	Channel() string
	// Send posts the text using the platform's native send API. An
	// unconfigured adapter reports Sent=false with a descriptive error.
	Send(ctx context.Context, businessID, recipientHandle, text string) SendResult
}
