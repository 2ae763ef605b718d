package ingestion

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20 // 1MB

// handleVerification answers the WhatsApp webhook handshake: echo
// hub.challenge when the verify token matches, 403 otherwise.
func (s *Server) handleVerification(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.cfg.Channels.WhatsApp.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	logger.FromContext(c.Request.Context()).Warn("Webhook verification rejected",
		zap.String("mode", mode))
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

// handleWebhook accepts one channel delivery, runs every contained
// message through the pipeline and reports per-message results. The
// response status tells the platform whether to redeliver: 400 for
// malformed payloads (no retry), 500 when every message failed.
func (s *Server) handleWebhook(c *gin.Context) {
	channelName := c.Param("channel")
	if channelName != model.ChannelWhatsApp && channelName != model.ChannelInstagram {
		c.JSON(http.StatusNotFound, gin.H{"error": "unsupported channel"})
		return
	}

	ctx := c.Request.Context()
	log := logger.FromContext(ctx).With(zap.String("channel", channelName))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	observer.IncWebhookEventsReceived(channelName, "")

	results, err := s.processor.ProcessPayload(ctx, channelName, body)
	if err != nil {
		if errors.Is(err, apperrors.ErrMalformedPayload) {
			log.Warn("Rejected malformed webhook payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	status := http.StatusOK
	if len(results) > 0 && failed == len(results) {
		// Every message failed persistence; let the platform redeliver.
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{
		"messages": len(results),
		"failed":   failed,
		"results":  results,
	})
}
