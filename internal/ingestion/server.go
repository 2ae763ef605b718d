// Package ingestion exposes the webhook HTTP surface: one verification
// handshake endpoint and one delivery endpoint per channel.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/tenant"
	"github.com/chatlead/convo-pipeline/internal/usecase"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

// PayloadProcessor runs a raw webhook body through the pipeline.
// Satisfied by usecase.PipelineService.
type PayloadProcessor interface {
	ProcessPayload(ctx context.Context, channel string, payload []byte) ([]usecase.MessageResult, error)
}

// Server is the webhook HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	processor  PayloadProcessor
	cfg        *config.Config
}

// NewServer builds the gin engine and routes. The server is not listening
// until Start is called.
func NewServer(processor PayloadProcessor, cfg *config.Config) *Server {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestContext())

	s := &Server{
		engine:    engine,
		processor: processor,
		cfg:       cfg,
	}

	engine.GET("/webhook/whatsapp", s.handleVerification)
	engine.POST("/webhook/:channel", s.handleWebhook)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	logger.Log.Info("Webhook server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestContext stamps every request with a request id carried through
// the context into log lines.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := tenant.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
