package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
)

// ParseWhatsApp walks the Cloud API webhook shape entry[].changes[].value,
// emitting one NormalizedMessage per messages[] element that carries a
// non-empty text body. Entries without text are skipped silently; a
// missing business_id or an empty entry[] is a hard parse failure.
func ParseWhatsApp(raw []byte) ([]model.NormalizedMessage, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid whatsapp payload: %w", apperrors.ErrMalformedPayload, err)
	}

	businessID := stringField(payload, "business_id")
	if businessID == "" {
		return nil, fmt.Errorf("%w: whatsapp payload missing business_id", apperrors.ErrMalformedPayload)
	}

	entries := sliceField(payload, "entry")
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: whatsapp payload has empty entry array", apperrors.ErrMalformedPayload)
	}

	var out []model.NormalizedMessage
	for _, entryRaw := range entries {
		entry, ok := entryRaw.(map[string]interface{})
		if !ok {
			continue
		}
		for _, changeRaw := range sliceField(entry, "changes") {
			change, ok := changeRaw.(map[string]interface{})
			if !ok {
				continue
			}
			value := mapField(change, "value")
			if value == nil {
				continue
			}

			senderName, senderHandle := whatsAppContact(value)
			businessPhone := stringField(mapField(value, "metadata"), "display_phone_number")

			for _, msgRaw := range sliceField(value, "messages") {
				msg, ok := msgRaw.(map[string]interface{})
				if !ok {
					continue
				}
				body := stringField(mapField(msg, "text"), "body")
				if body == "" {
					continue
				}

				providerID := stringField(msg, "id")
				from := stringField(msg, "from")
				handle := firstNonEmpty(from, senderHandle)
				replyContextID := stringField(mapField(msg, "context"), "id")

				metadata := map[string]interface{}{
					model.MetaProviderMessageID: providerID,
				}
				// The business's own sent messages can be reflected back through
				// the webhook; mark them so the echo filter and reply generator
				// skip them.
				if businessPhone != "" && from == businessPhone {
					metadata[model.MetaDirection] = "outbound"
				}

				out = append(out, model.NormalizedMessage{
					BusinessID:     businessID,
					Channel:        model.ChannelWhatsApp,
					ConversationID: firstNonEmpty("whatsapp", replyContextID, providerID, handle),
					SenderName:     senderName,
					SenderHandle:   handle,
					MessageText:    body,
					Timestamp:      normalizeTimestamp(msg["timestamp"]),
					Metadata:       metadata,
				})
			}
		}
	}

	return out, nil
}

// whatsAppContact pulls sender name and wa_id from contacts[0].
func whatsAppContact(value map[string]interface{}) (name, handle string) {
	contacts := sliceField(value, "contacts")
	if len(contacts) == 0 {
		return "", ""
	}
	contact, ok := contacts[0].(map[string]interface{})
	if !ok {
		return "", ""
	}
	return stringField(mapField(contact, "profile"), "name"), stringField(contact, "wa_id")
}
