package model

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewBusiness creates a Business with fake data for testing.
// Pass a partial Business to override specific fields.
func NewBusiness(overrideDefaults ...*Business) *Business {
	b := &Business{
		ID:                 uuid.NewString(),
		Name:               gofakeit.Company(),
		LanguagePreference: "en",
		OfficeHours:        "Mon-Fri 9:00-18:00",
		AIReplyEnabled:     true,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		o := overrideDefaults[0]
		if o.ID != "" {
			b.ID = o.ID
		}
		if o.Name != "" {
			b.Name = o.Name
		}
		if o.LanguagePreference != "" {
			b.LanguagePreference = o.LanguagePreference
		}
		if o.OfficeHours != "" {
			b.OfficeHours = o.OfficeHours
		}
		if o.BookingRules != "" {
			b.BookingRules = o.BookingRules
		}
		if o.PromoIntents != nil {
			b.PromoIntents = o.PromoIntents
		}
		if o.PromoMessage != "" {
			b.PromoMessage = o.PromoMessage
		}
		b.AIReplyEnabled = o.AIReplyEnabled
	}
	return b
}

// NewBusinessService creates a BusinessService with fake data for testing.
func NewBusinessService(businessID string, overrideDefaults ...*BusinessService) *BusinessService {
	s := &BusinessService{
		BusinessID:  businessID,
		Name:        gofakeit.ProductName(),
		Description: gofakeit.Sentence(6),
		Price:       fmt.Sprintf("$%d", gofakeit.Number(20, 200)),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		o := overrideDefaults[0]
		if o.Name != "" {
			s.Name = o.Name
		}
		if o.Description != "" {
			s.Description = o.Description
		}
		if o.Price != "" {
			s.Price = o.Price
		}
		s.Active = o.Active
	}
	return s
}

// NewNormalizedMessage creates an inbound NormalizedMessage with fake data
// for testing. Pass a partial NormalizedMessage to override fields.
func NewNormalizedMessage(overrideDefaults ...*NormalizedMessage) *NormalizedMessage {
	m := &NormalizedMessage{
		BusinessID:     uuid.NewString(),
		Channel:        ChannelWhatsApp,
		SenderName:     gofakeit.Name(),
		SenderHandle:   gofakeit.Phone(),
		ConversationID: uuid.NewString(),
		MessageText:    gofakeit.Sentence(8),
		Timestamp:      time.Now().UTC(),
		Metadata:       map[string]interface{}{},
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		o := overrideDefaults[0]
		if o.BusinessID != "" {
			m.BusinessID = o.BusinessID
		}
		if o.Channel != "" {
			m.Channel = o.Channel
		}
		if o.SenderName != "" {
			m.SenderName = o.SenderName
		}
		if o.SenderHandle != "" {
			m.SenderHandle = o.SenderHandle
		}
		if o.ConversationID != "" {
			m.ConversationID = o.ConversationID
		}
		if o.MessageText != "" {
			m.MessageText = o.MessageText
		}
		if !o.Timestamp.IsZero() {
			m.Timestamp = o.Timestamp
		}
		if o.Metadata != nil {
			m.Metadata = o.Metadata
		}
	}
	return m
}

// NewLead creates a Lead with fake data for testing.
func NewLead(overrideDefaults ...*Lead) *Lead {
	l := &Lead{
		ID:             uuid.NewString(),
		BusinessID:     uuid.NewString(),
		ConversationID: uuid.NewString(),
		Name:           gofakeit.Name(),
		Email:          gofakeit.Email(),
		Phone:          gofakeit.Phone(),
		Channel:        ChannelWhatsApp,
		Stage:          LeadStageQualified,
		Reason:         "contact_email",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		o := overrideDefaults[0]
		if o.ID != "" {
			l.ID = o.ID
		}
		if o.BusinessID != "" {
			l.BusinessID = o.BusinessID
		}
		if o.ConversationID != "" {
			l.ConversationID = o.ConversationID
		}
		if o.CustomerID != "" {
			l.CustomerID = o.CustomerID
		}
		if o.Name != "" {
			l.Name = o.Name
		}
		if o.Email != "" {
			l.Email = o.Email
		}
		if o.Phone != "" {
			l.Phone = o.Phone
		}
		if o.Channel != "" {
			l.Channel = o.Channel
		}
		if o.Stage != "" {
			l.Stage = o.Stage
		}
		if o.Reason != "" {
			l.Reason = o.Reason
		}
	}
	return l
}

// JSONStringList marshals a list of strings into a datatypes.JSON value,
// handy for seeding Business.PromoIntents in tests.
func JSONStringList(values ...string) datatypes.JSON {
	out := []byte("[")
	for i, v := range values {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, fmt.Sprintf("%q", v)...)
	}
	out = append(out, ']')
	return datatypes.JSON(out)
}
