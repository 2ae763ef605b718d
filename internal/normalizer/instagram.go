package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
)

// ParseInstagram walks entry[].messaging[], emitting one NormalizedMessage
// per event with a non-empty message.text. Events without text (likes,
// reactions, attachments) are skipped silently.
func ParseInstagram(raw []byte) ([]model.NormalizedMessage, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid instagram payload: %w", apperrors.ErrMalformedPayload, err)
	}

	businessID := stringField(payload, "business_id")
	if businessID == "" {
		return nil, fmt.Errorf("%w: instagram payload missing business_id", apperrors.ErrMalformedPayload)
	}

	entries := sliceField(payload, "entry")
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: instagram payload has empty entry array", apperrors.ErrMalformedPayload)
	}

	var out []model.NormalizedMessage
	for _, entryRaw := range entries {
		entry, ok := entryRaw.(map[string]interface{})
		if !ok {
			continue
		}
		for _, eventRaw := range sliceField(entry, "messaging") {
			event, ok := eventRaw.(map[string]interface{})
			if !ok {
				continue
			}
			message := mapField(event, "message")
			text := stringField(message, "text")
			if text == "" {
				continue
			}

			senderID := stringField(mapField(event, "sender"), "id")
			recipientID := stringField(mapField(event, "recipient"), "id")
			mid := stringField(message, "mid")

			metadata := map[string]interface{}{
				model.MetaProviderMessageID: mid,
			}
			if isEcho, _ := message["is_echo"].(bool); isEcho {
				metadata[model.MetaDirection] = "outbound"
			}

			out = append(out, model.NormalizedMessage{
				BusinessID:     businessID,
				Channel:        model.ChannelInstagram,
				ConversationID: firstNonEmpty("instagram", mid, recipientID, senderID),
				SenderHandle:   senderID,
				MessageText:    text,
				Timestamp:      normalizeTimestamp(event["timestamp"]),
				Metadata:       metadata,
			})
		}
	}

	return out, nil
}
