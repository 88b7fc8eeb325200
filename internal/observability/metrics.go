package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration on the ops server
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "app_identidade_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// CommandsTotal counts handled slash commands by outcome
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_identidade_commands_total",
			Help: "Number of slash commands handled",
		},
		[]string{"command", "result"},
	)

	// CommandDuration tracks slash command handling time
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_identidade_command_duration_seconds",
			Help:    "Duration of slash command handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// UploadsTotal counts follow-up image messages by outcome
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_identidade_uploads_total",
			Help: "Number of follow-up image uploads processed",
		},
		[]string{"result"},
	)

	// RenderDuration tracks card rendering time
	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "app_identidade_render_duration_seconds",
			Help:    "Duration of card rendering in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StoreOperations tracks persistence operations
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_identidade_store_operations_total",
			Help: "Number of persistence operations",
		},
		[]string{"driver", "operation", "status"},
	)

	// CacheHits tracks rendered image cache hits/misses
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_identidade_cache_hits_total",
			Help: "Number of rendered image cache lookups",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks pending create/edit sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_identidade_active_sessions",
			Help: "Number of pending sessions awaiting a photo",
		},
	)
)
