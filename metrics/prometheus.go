// Package metrics exposes the engine's Prometheus collectors through a
// process-wide singleton.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all engine metrics
type Collector struct {
	// Market metrics
	MarketsCreated prometheus.Counter
	MarketsSettled *prometheus.CounterVec
	MarketsDeleted prometheus.Counter
	MarketsActive  prometheus.Gauge

	// Trade metrics
	BetsTotal *prometheus.CounterVec
	BetVolume *prometheus.CounterVec

	// Oracle metrics
	ReportsTotal     *prometheus.CounterVec
	ConsensusReached *prometheus.CounterVec
	ReportsRejected  *prometheus.CounterVec

	// Ledger metrics
	CCLocked prometheus.Gauge

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
}

// Get returns the singleton collector, registering it on first use.
func Get() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
		collector.register()
	})
	return collector
}

func newCollector() *Collector {
	return &Collector{
		MarketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "markets_created_total",
			Help:      "Markets submitted",
		}),
		MarketsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "markets_settled_total",
			Help:      "Markets settled by outcome",
		}, []string{"outcome"}),
		MarketsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "markets_deleted_total",
			Help:      "Markets deleted by their submitter",
		}),
		MarketsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "claimdex",
			Name:      "markets_active",
			Help:      "Currently active markets",
		}),
		BetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "bets_total",
			Help:      "Executed bets by side",
		}, []string{"side"}),
		BetVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "bet_volume_cc",
			Help:      "CC committed to bets by side",
		}, []string{"side"}),
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "oracle_reports_total",
			Help:      "Accepted oracle reports by verdict",
		}, []string{"verdict"}),
		ConsensusReached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "oracle_consensus_total",
			Help:      "Consensus verdicts reached by outcome",
		}, []string{"outcome"}),
		ReportsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "oracle_reports_rejected_total",
			Help:      "Rejected report submissions by reason",
		}, []string{"reason"}),
		CCLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "claimdex",
			Name:      "cc_locked",
			Help:      "Total CC locked across all users",
		}),
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdex",
			Name:      "api_requests_total",
			Help:      "API requests by route and status",
		}, []string{"route", "status"}),
		APIRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claimdex",
			Name:      "api_request_duration_seconds",
			Help:      "API request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "claimdex",
			Name:      "ws_connections_active",
			Help:      "Open websocket connections",
		}),
	}
}

func (c *Collector) register() {
	prometheus.MustRegister(
		c.MarketsCreated,
		c.MarketsSettled,
		c.MarketsDeleted,
		c.MarketsActive,
		c.BetsTotal,
		c.BetVolume,
		c.ReportsTotal,
		c.ConsensusReached,
		c.ReportsRejected,
		c.CCLocked,
		c.APIRequestsTotal,
		c.APIRequestLatency,
		c.WSConnectionsActive,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one API request.
func (c *Collector) ObserveRequest(route, status string, elapsed time.Duration) {
	c.APIRequestsTotal.WithLabelValues(route, status).Inc()
	c.APIRequestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
