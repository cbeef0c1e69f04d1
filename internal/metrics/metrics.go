package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WalletsCreated counts wallet provisioning outcomes
	WalletsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_creations_total",
			Help: "Total number of wallet creation requests",
		},
		[]string{"status"},
	)

	// TransfersTotal counts transfer submissions by outcome
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Total number of transfer submissions",
		},
		[]string{"status"},
	)

	// PipelineDuration tracks end-to-end pipeline execution time
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_pipeline_duration_seconds",
			Help:    "Transaction pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ProviderRequests counts calls to the custody provider
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_provider_requests_total",
			Help: "Total number of custody provider requests",
		},
		[]string{"endpoint", "status"},
	)

	// RegisteredWallets tracks the number of wallets in the registry
	RegisteredWallets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_registered_total",
			Help: "Number of wallets currently registered",
		},
	)
)
