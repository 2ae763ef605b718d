package main

import (
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// webhookTask is one payload to POST at the target server.
type webhookTask struct {
	channel string
	body    []byte
}

var sampleTexts = []string{
	"What's the price for ceramic coating?",
	"Can I book an appointment for tomorrow?",
	"Are you open on Saturdays?",
	"hello",
	"cuanto cuesta el lavado completo?",
	"Quisiera una cita, mi correo es %s",
	"How much is a full detail? Call me at %s",
}

func main() {
	targetURL := flag.String("url", "http://localhost:8080", "Base URL of the webhook server")
	rate := flag.Int("rate", 20, "Target webhook deliveries per second")
	duration := flag.Duration("duration", 1*time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 8, "Number of concurrent workers")
	businessIDsStr := flag.String("business_ids", "biz-load-1,biz-load-2", "Comma-separated list of business IDs")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webhook Load Generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generates realistic WhatsApp and Instagram webhook payloads and POSTs them at the pipeline.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	businessIDs := strings.Split(*businessIDsStr, ",")
	httpClient := &http.Client{Timeout: 10 * time.Second}

	var sent, failed int64

	pool, err := ants.NewPoolWithFunc(*concurrency, func(i interface{}) {
		task, ok := i.(webhookTask)
		if !ok {
			return
		}
		resp, err := httpClient.Post(
			fmt.Sprintf("%s/webhook/%s", *targetURL, task.channel),
			"application/json",
			bytes.NewReader(task.body),
		)
		if err != nil {
			atomic.AddInt64(&failed, 1)
			logger.Log.Debug("Delivery failed", zap.Error(err))
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			atomic.AddInt64(&failed, 1)
			logger.Log.Debug("Delivery rejected", zap.Int("status", resp.StatusCode))
			return
		}
		atomic.AddInt64(&sent, 1)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	logger.Log.Info("Starting webhook load generator",
		zap.String("target", *targetURL),
		zap.Int("rate", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()
	deadline := time.After(*duration)

loop:
	for {
		select {
		case <-ticker.C:
			businessID := businessIDs[rand.Intn(len(businessIDs))]
			task := generateTask(businessID)
			if err := pool.Invoke(task); err != nil {
				atomic.AddInt64(&failed, 1)
			}
		case <-deadline:
			logger.Log.Info("Duration elapsed")
			break loop
		case sig := <-sigChan:
			logger.Log.Info("Received signal, stopping", zap.String("signal", sig.String()))
			break loop
		}
	}

	logger.Log.Info("Load test complete",
		zap.Int64("delivered", atomic.LoadInt64(&sent)),
		zap.Int64("failed", atomic.LoadInt64(&failed)),
	)
}

func generateTask(businessID string) webhookTask {
	if rand.Intn(4) == 0 {
		return webhookTask{channel: model.ChannelInstagram, body: instagramPayload(businessID)}
	}
	return webhookTask{channel: model.ChannelWhatsApp, body: whatsappPayload(businessID)}
}

func randomText() string {
	text := sampleTexts[rand.Intn(len(sampleTexts))]
	if strings.Contains(text, "%s") {
		if strings.Contains(text, "correo") {
			return fmt.Sprintf(text, gofakeit.Email())
		}
		return fmt.Sprintf(text, gofakeit.Phone())
	}
	return text
}

func whatsappPayload(businessID string) []byte {
	waID := fmt.Sprintf("62%d", gofakeit.Number(100000000, 999999999))
	payload := map[string]interface{}{
		"business_id": businessID,
		"entry": []map[string]interface{}{{
			"id": gofakeit.UUID(),
			"changes": []map[string]interface{}{{
				"value": map[string]interface{}{
					"metadata": map[string]interface{}{
						"display_phone_number": "628000000000",
					},
					"contacts": []map[string]interface{}{{
						"profile": map[string]interface{}{"name": gofakeit.Name()},
						"wa_id":   waID,
					}},
					"messages": []map[string]interface{}{{
						"id":        "wamid." + gofakeit.UUID(),
						"from":      waID,
						"timestamp": fmt.Sprintf("%d", utils.Now().Unix()),
						"text":      map[string]interface{}{"body": randomText()},
					}},
				},
			}},
		}},
	}
	return utils.MustMarshalJSON(payload)
}

func instagramPayload(businessID string) []byte {
	payload := map[string]interface{}{
		"business_id": businessID,
		"entry": []map[string]interface{}{{
			"id":   gofakeit.UUID(),
			"time": utils.Now().UnixMilli(),
			"messaging": []map[string]interface{}{{
				"sender":    map[string]interface{}{"id": gofakeit.UUID()},
				"recipient": map[string]interface{}{"id": gofakeit.UUID()},
				"timestamp": utils.Now().UnixMilli(),
				"message": map[string]interface{}{
					"mid":  "mid." + gofakeit.UUID(),
					"text": randomText(),
				},
			}},
		}},
	}
	return utils.MustMarshalJSON(payload)
}
