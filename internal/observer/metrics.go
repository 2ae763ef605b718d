package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for webhook ingress metrics
	webhookLabels = []string{"channel", "business_id"}
	// Labels for pipeline outcomes per message
	pipelineOutcomeLabels = []string{"channel", "business_id", "outcome"}
	// Labels for the reply fallback chain
	replyRuleLabels = []string{"business_id", "rule"}

	// Webhook counters
	WebhookEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_webhook_events_received_total",
			Help: "Total number of webhook payloads received, labeled by channel.",
		},
		webhookLabels,
	)
	WebhookMessagesNormalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_webhook_messages_normalized_total",
			Help: "Total number of messages extracted from webhook payloads.",
		},
		webhookLabels,
	)
	WebhookPayloadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_webhook_payloads_rejected_total",
			Help: "Total number of webhook payloads rejected as malformed.",
		},
		[]string{"channel"},
	)

	// Pipeline counters and durations
	PipelineMessagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_messages_processed_total",
			Help: "Total number of messages run through the pipeline, labeled by final outcome.",
		},
		pipelineOutcomeLabels,
	)
	PipelineProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convo_pipeline_message_processing_duration_seconds",
			Help:    "Histogram of per-message pipeline processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		webhookLabels,
	)

	// Reply chain counter
	ReplyRuleChosenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_reply_rule_chosen_total",
			Help: "Total number of replies generated, labeled by the rule that produced the text.",
		},
		replyRuleLabels,
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "business_id", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convo_pipeline_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// Business-context cache metrics
var (
	cacheResultLabels = []string{"result"} // hit, miss, expired

	contextCacheChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_context_cache_checks_total",
			Help: "Total number of business context cache lookups, labeled by result.",
		},
		cacheResultLabels,
	)
	contextCacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convo_pipeline_context_cache_invalidations_total",
		Help: "Total number of explicit business context cache invalidations.",
	})
)

// CRM sync worker pool metrics
var (
	crmLabels       = []string{"business_id"}
	crmStatusLabels = []string{"business_id", "status"}

	crmTasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_crm_tasks_submitted_total",
			Help: "Total number of CRM sync tasks submitted to the worker pool.",
		},
		crmLabels,
	)
	crmTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_crm_tasks_processed_total",
			Help: "Total number of CRM sync tasks processed, labeled by final status.",
		},
		crmStatusLabels,
	)
	crmProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convo_pipeline_crm_processing_duration_seconds",
			Help:    "Histogram of processing durations for CRM sync tasks.",
			Buckets: prometheus.DefBuckets,
		},
		crmLabels,
	)
	crmQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convo_pipeline_crm_queue_length",
		Help: "Approximate number of tasks waiting in the CRM sync worker pool queue.",
	})
)

// Outbound channel send metrics
var (
	sendLabels = []string{"channel", "business_id", "status"}

	channelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_pipeline_channel_sends_total",
			Help: "Total number of outbound platform send attempts, labeled by status.",
		},
		sendLabels,
	)
)

// InitMetrics initializes Prometheus metric collection if enabled.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncWebhookEventsReceived increments the webhook payloads received counter.
func IncWebhookEventsReceived(channel, businessID string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsReceivedTotal.WithLabelValues(channel, sanitizeTenant(businessID)).Inc()
}

// IncWebhookMessagesNormalized increments the normalized messages counter.
func IncWebhookMessagesNormalized(channel, businessID string) {
	if !metricsEnabled {
		return
	}
	WebhookMessagesNormalizedTotal.WithLabelValues(channel, sanitizeTenant(businessID)).Inc()
}

// IncWebhookPayloadsRejected increments the malformed payload counter.
func IncWebhookPayloadsRejected(channel string) {
	if !metricsEnabled {
		return
	}
	WebhookPayloadsRejectedTotal.WithLabelValues(channel).Inc()
}

// IncPipelineMessagesProcessed increments the per-message outcome counter.
// Outcome is one of: replied, processed, skipped_echo, skipped_outbound, failed.
func IncPipelineMessagesProcessed(channel, businessID, outcome string) {
	if !metricsEnabled {
		return
	}
	PipelineMessagesProcessedTotal.WithLabelValues(channel, sanitizeTenant(businessID), outcome).Inc()
}

// ObservePipelineProcessingDuration records per-message pipeline processing time.
func ObservePipelineProcessingDuration(channel, businessID string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	PipelineProcessingDurationSeconds.WithLabelValues(channel, sanitizeTenant(businessID)).Observe(duration.Seconds())
}

// IncReplyRuleChosen increments the counter for the reply chain rule that won.
func IncReplyRuleChosen(businessID, rule string) {
	if !metricsEnabled {
		return
	}
	ReplyRuleChosenTotal.WithLabelValues(sanitizeTenant(businessID), rule).Inc()
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, businessID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(businessID), status).Observe(duration.Seconds())
}

// IncContextCacheCheck increments the cache lookup counter.
// Result is one of: hit, miss, expired.
func IncContextCacheCheck(result string) {
	if !metricsEnabled {
		return
	}
	contextCacheChecksTotal.WithLabelValues(result).Inc()
}

// IncContextCacheInvalidation increments the explicit invalidation counter.
func IncContextCacheInvalidation() {
	if !metricsEnabled {
		return
	}
	contextCacheInvalidationsTotal.Inc()
}

// IncCrmTasksSubmitted increments the counter for submitted CRM sync tasks.
func IncCrmTasksSubmitted(businessID string) {
	if !metricsEnabled {
		return
	}
	crmTasksSubmittedTotal.WithLabelValues(sanitizeTenant(businessID)).Inc()
}

// IncCrmTasksProcessed increments the counter for processed CRM sync tasks by status.
func IncCrmTasksProcessed(businessID, status string) {
	if !metricsEnabled {
		return
	}
	crmTasksProcessedTotal.WithLabelValues(sanitizeTenant(businessID), status).Inc()
}

// ObserveCrmProcessingDuration records the processing time for a CRM sync task.
func ObserveCrmProcessingDuration(businessID string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	crmProcessingDurationSeconds.WithLabelValues(sanitizeTenant(businessID)).Observe(duration.Seconds())
}

// SetCrmQueueLength sets the current CRM sync queue length.
func SetCrmQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	crmQueueLength.Set(float64(length))
}

// IncChannelSend increments the outbound send counter.
func IncChannelSend(channel, businessID, status string) {
	if !metricsEnabled {
		return
	}
	channelSendsTotal.WithLabelValues(channel, sanitizeTenant(businessID), status).Inc()
}

// sanitizeTenant ensures the tenant label is valid or returns a default value.
func sanitizeTenant(businessID string) string {
	if businessID == "" {
		return "unknown"
	}
	return businessID
}
