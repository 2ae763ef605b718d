package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

func validMessage() model.NormalizedMessage {
	return model.NormalizedMessage{
		BusinessID:     "biz-1",
		Channel:        model.ChannelWhatsApp,
		ConversationID: "conv-1",
		SenderHandle:   "628123456789",
		MessageText:    "hello",
		Timestamp:      utils.Now(),
	}
}

func TestValidate_NormalizedMessage(t *testing.T) {
	t.Run("Valid Message Passes", func(t *testing.T) {
		require.NoError(t, Validate(validMessage()))
	})

	t.Run("Missing Required Fields", func(t *testing.T) {
		msg := validMessage()
		msg.BusinessID = ""
		msg.MessageText = ""

		err := Validate(msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "business_id")
		assert.Contains(t, err.Error(), "message_text")
		assert.Contains(t, err.Error(), "is required")
	})

	t.Run("Unknown Channel Rejected", func(t *testing.T) {
		msg := validMessage()
		msg.Channel = "telegram"

		err := Validate(msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel")
		assert.Contains(t, err.Error(), "must be one of")
	})
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar("jordan@example.com", "email"))
	assert.Error(t, ValidateVar("not-an-email", "email"))
}
