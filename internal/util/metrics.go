package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TipIntentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tip_intents_created_total",
		Help: "Total number of tip payment intents issued",
	})

	TipIntentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tip_intents_failed_total",
		Help: "Total number of tip payment intents rejected or failed",
	}, []string{"reason"})

	TipPersistenceFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tip_persistence_failures_total",
		Help: "Payment intents created at the processor whose ledger row could not be stored",
	})

	TipAmountCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tip_amount_cents",
		Help:    "Distribution of issued tip amounts in minor units",
		Buckets: []float64{1000, 2000, 5000, 10000, 20000, 50000},
	})

	ProcessorRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "processor_request_latency_seconds",
		Help:    "Latency of payment processor API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events by type and outcome",
	}, []string{"type", "outcome"})

	WebhookDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_duplicates_total",
		Help: "Webhook deliveries skipped as already processed",
	})

	WebhookSignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Webhook deliveries rejected for a missing or invalid signature",
	})

	WebhookProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webhook_processing_latency_seconds",
		Help:    "Latency of webhook event processing",
		Buckets: prometheus.DefBuckets,
	})

	SongsQueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "songs_queued_total",
		Help: "Total number of song requests appended to a session queue",
	})

	QueueCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_cache_requests_total",
		Help: "Queue reads by cache result",
	}, []string{"result"})

	ConnectAccountsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connect_accounts_created_total",
		Help: "Total number of connected accounts created during onboarding",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
