package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/intent"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/storage"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9()\-. ]{5,}[0-9]`)
	nonDigits    = regexp.MustCompile(`[^0-9]`)
)

// bookingPhrases is matched independently of the intent classifier. It
// overlaps the classifier's booking keywords on purpose: explicit booking
// language is a qualification signal even when the primary intent landed
// on pricing or availability.
var bookingPhrases = []string{
	"book", "appointment", "schedule", "reserve", "reservation",
	"i want to come", "can i come", "sign me up",
	"reservar", "reserva", "cita", "agendar", "turno",
	"quiero reservar", "quisiera una cita", "quiero agendar",
}

// QualificationResult is the outcome of running the qualification rule
// over one inbound message.
type QualificationResult struct {
	Qualified     bool
	BookingIntent bool
	NewLead       bool
	LeadID        string
	CustomerID    string
	Email         string
	Phone         string
	Reason        string
}

// Qualify applies the conjunctive qualification rule to an inbound
// message: a pricing or booking intent alone is not enough, a contact
// signal (email or phone in the text) or explicit booking language must
// accompany it. On qualification it resolves or creates the customer,
// upserts the lead keyed by (business_id, conversation_id) and, for a
// newly created lead only, increments the qualified-leads counter.
func (s *PipelineService) Qualify(ctx context.Context, msg model.NormalizedMessage, intentLabel string) (QualificationResult, error) {
	result := QualificationResult{
		Email:         extractEmail(msg.MessageText),
		Phone:         extractPhone(msg.MessageText),
		BookingIntent: hasBookingLanguage(msg.MessageText),
	}

	hasContact := result.Email != "" || result.Phone != ""
	interested := intentLabel == intent.IntentPricing || intentLabel == intent.IntentBooking
	if !interested || !(hasContact || result.BookingIntent) {
		return result, nil
	}
	result.Qualified = true
	result.Reason = fmt.Sprintf("intent=%s has_contact=%t booking_language=%t", intentLabel, hasContact, result.BookingIntent)

	log := logger.FromContext(ctx)

	customer, err := resolveCustomer(ctx, s.customerRepo, msg.SenderName, result.Email, result.Phone)
	if err != nil {
		return result, apperrors.NewFatal(apperrors.ErrPersistence, "failed to resolve customer: %v", err)
	}
	result.CustomerID = customer.ID

	lead := model.Lead{
		ID:             uuid.New().String(),
		BusinessID:     msg.BusinessID,
		ConversationID: msg.ConversationID,
		CustomerID:     customer.ID,
		Name:           msg.SenderName,
		Email:          result.Email,
		Phone:          result.Phone,
		Channel:        msg.Channel,
		Stage:          model.LeadStageQualified,
		Reason:         result.Reason,
	}
	stored, created, err := s.leadRepo.Upsert(ctx, lead)
	if err != nil {
		return result, apperrors.NewFatal(apperrors.ErrPersistence, "failed to upsert lead: %v", err)
	}
	result.LeadID = stored.ID
	result.NewLead = created

	if created {
		period := utils.MonthPeriod(msg.Timestamp)
		if incErr := s.usageRepo.Increment(ctx, model.MetricQualifiedLeads, period, 1); incErr != nil {
			log.Warn("Failed to increment qualified-leads counter",
				zap.String("lead_id", stored.ID), zap.Error(incErr))
		}
	}

	event := model.LeadQualifiedEvent{
		BusinessID:     msg.BusinessID,
		ConversationID: msg.ConversationID,
		LeadID:         stored.ID,
		CustomerID:     customer.ID,
		Channel:        msg.Channel,
		Intent:         intentLabel,
		Reason:         result.Reason,
		NewLead:        created,
		QualifiedAt:    utils.Now(),
	}
	if pubErr := s.publisher.PublishLeadQualified(ctx, event); pubErr != nil {
		log.Warn("Failed to publish lead qualified event", zap.Error(pubErr))
	}

	log.Info("Lead qualified",
		zap.String("lead_id", stored.ID),
		zap.String("customer_id", customer.ID),
		zap.Bool("new_lead", created),
		zap.String("reason", result.Reason))

	return result, nil
}

// resolveCustomer finds the tenant's customer by email, then by phone,
// creating one when neither matches. Qualification and CRM sync both
// resolve through this so they converge on the same customer row.
func resolveCustomer(ctx context.Context, repo storage.CustomerRepo, name, email, phone string) (model.Customer, error) {
	if email != "" {
		existing, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return model.Customer{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}
	if phone != "" {
		existing, err := repo.FindByPhone(ctx, phone)
		if err != nil {
			return model.Customer{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	businessID, err := tenant.FromContext(ctx)
	if err != nil {
		return model.Customer{}, err
	}
	customer := model.Customer{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		Name:       name,
		Email:      email,
		Phone:      phone,
	}
	if err := repo.SaveCustomer(ctx, customer); err != nil {
		return model.Customer{}, err
	}
	return customer, nil
}

func extractEmail(text string) string {
	return emailPattern.FindString(text)
}

// extractPhone returns the first phone-looking run with at least 8 digits
// after separators are stripped, normalized to digits (with a leading +
// preserved).
func extractPhone(text string) string {
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		digits := nonDigits.ReplaceAllString(candidate, "")
		if len(digits) < 8 {
			continue
		}
		if strings.HasPrefix(candidate, "+") {
			return "+" + digits
		}
		return digits
	}
	return ""
}

func hasBookingLanguage(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range bookingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
