package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_votes_cast_total",
			Help: "Total number of accepted vote transitions",
		},
		[]string{"target", "transition"},
	)

	VotesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_votes_rejected_total",
			Help: "Total number of rejected vote submissions",
		},
		[]string{"target", "reason"},
	)

	AnswersAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_answers_accepted_total",
			Help: "Total number of answer acceptances",
		},
	)

	SoftDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_soft_deletes_total",
			Help: "Total number of soft deletions",
		},
		[]string{"entity"},
	)

	CascadedAnswerDeletes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_cascaded_answer_deletes_total",
			Help: "Total number of answers hidden by a question delete",
		},
	)

	ConditionalUpdateRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_conditional_update_retries_total",
			Help: "Total number of retries after losing a conditional update",
		},
		[]string{"operation"},
	)

	ReputationApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_reputation_applied_total",
			Help: "Total number of reputation increments applied",
		},
		[]string{"action"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_side_effect_failures_total",
			Help: "Total number of best-effort side effects that failed",
		},
		[]string{"effect"},
	)

	EffectQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_effect_queue_size",
			Help: "Number of side effects waiting in the queue",
		},
	)

	EffectWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_effect_workers",
			Help: "Number of running side effect workers",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_cache_errors_total",
			Help: "Total number of cache errors",
		},
		[]string{"cache", "op"},
	)

	GoroutinePanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_goroutine_panics_total",
			Help: "Total number of recovered goroutine panics",
		},
		[]string{"goroutine"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_websocket_clients",
			Help: "Number of connected notification stream clients",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_http_requests_total",
			Help: "Total number of HTTP requests by route and status class",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
