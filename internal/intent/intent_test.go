package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "Pricing question",
			text:     "What's the price for ceramic coating?",
			expected: IntentPricing,
		},
		{
			name:     "Pricing in Spanish",
			text:     "Cuánto cuesta el servicio completo?",
			expected: IntentPricing,
		},
		{
			name:     "Booking request",
			text:     "Can I book an appointment?",
			expected: IntentBooking,
		},
		{
			name:     "Booking in Spanish",
			text:     "Quiero agendar una cita para mañana",
			expected: IntentBooking,
		},
		{
			name:     "Availability question",
			text:     "Are you open on Saturdays?",
			expected: IntentAvailability,
		},
		{
			name:     "Availability in Spanish",
			text:     "Cuál es su horario?",
			expected: IntentAvailability,
		},
		{
			name:     "Plain greeting",
			text:     "hello",
			expected: IntentGeneralQuestion,
		},
		{
			name:     "Empty text",
			text:     "",
			expected: IntentGeneralQuestion,
		},
		{
			name:     "Pricing wins over booking",
			text:     "How much does it cost to book an appointment?",
			expected: IntentPricing,
		},
		{
			name:     "Booking wins over availability",
			text:     "Can I schedule when you are open?",
			expected: IntentBooking,
		},
		{
			name:     "Case insensitive",
			text:     "WHAT IS THE PRICE",
			expected: IntentPricing,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.text))
		})
	}
}
