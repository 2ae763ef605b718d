// Package intent provides deterministic, rule-based classification of
// inbound message text. Callers must treat the result as a coarse routing
// signal, not a semantic interpretation.
package intent

import (
	"strings"
)

const (
	IntentPricing         = "pricing"
	IntentBooking         = "booking"
	IntentAvailability    = "availability"
	IntentGeneralQuestion = "general_question"
)

// Keyword sets are English + Spanish, matched case-insensitively as
// substrings. Priority when several match: pricing > booking > availability.
var (
	pricingKeywords = []string{
		"price", "pricing", "cost", "how much", "rate", "fee", "quote",
		"precio", "costo", "cuanto cuesta", "cuánto cuesta", "tarifa", "cotizacion", "cotización",
	}
	bookingKeywords = []string{
		"book", "appointment", "schedule", "reserve", "reservation",
		"reservar", "reserva", "cita", "agendar", "turno",
	}
	availabilityKeywords = []string{
		"available", "availability", "open", "opening hours", "what time", "when are you",
		"disponible", "disponibilidad", "horario", "abierto", "a que hora", "a qué hora",
	}
)

// Classify maps message text to an intent label. Unmatched text falls
// through to general_question.
func Classify(text string) string {
	lower := strings.ToLower(text)

	if matchesAny(lower, pricingKeywords) {
		return IntentPricing
	}
	if matchesAny(lower, bookingKeywords) {
		return IntentBooking
	}
	if matchesAny(lower, availabilityKeywords) {
		return IntentAvailability
	}
	return IntentGeneralQuestion
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
