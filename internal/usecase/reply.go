package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/ai"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/storage"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

// Rules identifying which tier of the fallback chain produced a reply.
const (
	ReplyRuleAI        = "ai"
	ReplyRuleKnowledge = "knowledge"
	ReplyRuleFallback  = "fallback"
	ReplyRulePromo     = "promo"
)

// Reply is a generated outbound answer and the rule that produced it.
type Reply struct {
	Text string
	Rule string
}

// ReplyBuilder generates a reply for an inbound message, or nil when the
// message does not warrant one.
type ReplyBuilder interface {
	BuildReply(ctx context.Context, msg model.NormalizedMessage, bizCtx model.BusinessContext) (*Reply, error)
}

// ReplyGenerator is the tiered reply chain: model completion when a
// credential is configured, knowledge-base top-1 otherwise, localized
// static fallback last. Provider failures degrade down the chain and are
// never surfaced to the end user.
type ReplyGenerator struct {
	modelClient    ai.ModelClient
	retriever      ai.KnowledgeRetriever
	messageRepo    storage.MessageRepo
	historyWindow  int
	serviceSummary int
}

var _ ReplyBuilder = (*ReplyGenerator)(nil)

// NewReplyGenerator creates the reply chain. A nil retriever disables the
// knowledge tier.
func NewReplyGenerator(modelClient ai.ModelClient, retriever ai.KnowledgeRetriever, messageRepo storage.MessageRepo, historyWindow, serviceSummary int) *ReplyGenerator {
	return &ReplyGenerator{
		modelClient:    modelClient,
		retriever:      retriever,
		messageRepo:    messageRepo,
		historyWindow:  historyWindow,
		serviceSummary: serviceSummary,
	}
}

// BuildReply returns the reply for an inbound WhatsApp message, or nil
// when the message is not reply-eligible: wrong channel, marked outbound,
// unknown tenant, or the tenant disabled AI replies.
func (g *ReplyGenerator) BuildReply(ctx context.Context, msg model.NormalizedMessage, bizCtx model.BusinessContext) (*Reply, error) {
	if msg.Channel != model.ChannelWhatsApp {
		return nil, nil
	}
	if msg.IsOutbound() {
		return nil, nil
	}
	if bizCtx.Missing || !bizCtx.AIReplyEnabled {
		return nil, nil
	}

	lang := bizCtx.PreferredLanguage()

	if g.modelClient != nil && g.modelClient.Configured() {
		text, err := g.modelClient.Complete(ctx, g.systemPrompt(ctx, msg, bizCtx, lang), msg.MessageText)
		if err == nil && strings.TrimSpace(text) != "" {
			return &Reply{Text: strings.TrimSpace(text), Rule: ReplyRuleAI}, nil
		}
		logger.FromContext(ctx).Warn("Model completion failed, falling back to static reply",
			zap.String("business_id", bizCtx.BusinessID), zap.Error(err))
		return &Reply{Text: staticFallback(lang), Rule: ReplyRuleFallback}, nil
	}

	if g.retriever != nil {
		chunks, err := g.retriever.RetrieveChunks(ctx, bizCtx.BusinessID, msg.MessageText, 1)
		if err != nil {
			logger.FromContext(ctx).Warn("Knowledge retrieval failed",
				zap.String("business_id", bizCtx.BusinessID), zap.Error(err))
		} else if len(chunks) > 0 && strings.TrimSpace(chunks[0]) != "" {
			return &Reply{Text: knowledgeReply(lang, chunks[0]), Rule: ReplyRuleKnowledge}, nil
		}
	}

	return &Reply{Text: staticFallback(lang), Rule: ReplyRuleFallback}, nil
}

// systemPrompt assembles the tenant profile (name, hours, booking rules,
// a short service summary) plus recent conversation history into the
// system message for the model call.
func (g *ReplyGenerator) systemPrompt(ctx context.Context, msg model.NormalizedMessage, bizCtx model.BusinessContext, lang string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a helpful assistant answering customers of %s over %s.\n", bizCtx.BusinessName, msg.Channel)
	if lang == "es" {
		b.WriteString("Answer in Spanish.\n")
	} else {
		b.WriteString("Answer in English.\n")
	}
	if bizCtx.OfficeHours != "" {
		fmt.Fprintf(&b, "Office hours: %s\n", bizCtx.OfficeHours)
	}
	if bizCtx.BookingRules != "" {
		fmt.Fprintf(&b, "Booking rules: %s\n", bizCtx.BookingRules)
	}

	if len(bizCtx.Services) > 0 {
		b.WriteString("Services:\n")
		limit := g.serviceSummary
		if limit <= 0 || limit > len(bizCtx.Services) {
			limit = len(bizCtx.Services)
		}
		for _, svc := range bizCtx.Services[:limit] {
			fmt.Fprintf(&b, "- %s", svc.Name)
			if svc.Price != "" {
				fmt.Fprintf(&b, " (%s)", svc.Price)
			}
			if svc.Description != "" {
				fmt.Fprintf(&b, ": %s", svc.Description)
			}
			b.WriteString("\n")
		}
	}

	if history := g.recentHistory(ctx, msg); len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, line := range history {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("Keep replies short and friendly. Do not invent prices or availability.")
	return b.String()
}

// recentHistory returns up to historyWindow prior messages, oldest first.
// Rows repeating the triggering inbound text are excluded so the prompt
// doesn't duplicate the user message.
func (g *ReplyGenerator) recentHistory(ctx context.Context, msg model.NormalizedMessage) []string {
	if g.historyWindow <= 0 {
		return nil
	}

	rows, err := g.messageRepo.FindRecentByConversation(ctx, msg.ConversationID, g.historyWindow+1)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to load conversation history for prompt",
			zap.String("conversation_id", msg.ConversationID), zap.Error(err))
		return nil
	}

	lines := make([]string, 0, g.historyWindow)
	for _, row := range rows {
		if row.MessageText == msg.MessageText {
			continue
		}
		role := "Customer"
		if row.Direction == model.MessageDirectionOutbound {
			role = "Business"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, row.MessageText))
	}
	if len(lines) > g.historyWindow {
		lines = lines[len(lines)-g.historyWindow:]
	}
	return lines
}

func knowledgeReply(lang, chunk string) string {
	chunk = strings.TrimSpace(chunk)
	if lang == "es" {
		return "De nuestra base de conocimiento: " + chunk
	}
	return "From our knowledge base: " + chunk
}

func staticFallback(lang string) string {
	if lang == "es" {
		return "¡Gracias por escribirnos! Un miembro de nuestro equipo te responderá en breve."
	}
	return "Thanks for reaching out! A member of our team will get back to you shortly."
}
