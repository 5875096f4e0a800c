// Package metrics exposes Prometheus instrumentation for the engine,
// relabeled from the teacher's market-data-engine metric set onto this
// engine's cache/execution/sweep surfaces.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric the engine exports.
type Metrics struct {
	CandlesProcessedTotal *prometheus.CounterVec // labels: strategy_family
	DedupRejectsTotal     *prometheus.CounterVec // labels: strategy_family
	BundleAdvanceDur      prometheus.Histogram
	CacheUpdateDur        prometheus.Histogram
	StrategyEvalDur       *prometheus.HistogramVec // labels: strategy_family
	SignalsFiredTotal     *prometheus.CounterVec   // labels: strategy_family, direction
	PositionsOpenedTotal  *prometheus.CounterVec   // labels: strategy_family, side
	PositionsClosedTotal  *prometheus.CounterVec   // labels: strategy_family, reason
	OrderPlaceErrorsTotal *prometheus.CounterVec   // labels: op

	ExchangeCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	ExchangeCircuitBreakerTrips prometheus.Counter
	ExchangeRequestDur          *prometheus.HistogramVec // labels: op

	SweepBatchesTotal    prometheus.Counter
	SweepCombinationsRun prometheus.Counter
	SweepActiveWorkers   prometheus.Gauge

	DBWriteDur      *prometheus.HistogramVec // labels: store (mysql, sqlite)
	DBWriteErrTotal *prometheus.CounterVec   // labels: store
}

// NewMetrics builds and registers every metric against the default
// registry, following the teacher's NewMetrics-registers-everything shape.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_candles_processed_total",
			Help: "Candles dispatched through the live execution loop",
		}, []string{"strategy_family"}),
		DedupRejectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_dedup_rejects_total",
			Help: "Candle events rejected as duplicate (key, ts) pairs",
		}, []string{"strategy_family"}),
		BundleAdvanceDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "perpswap_bundle_advance_duration_seconds",
			Help:    "Time to fan one candle out through an indicator bundle",
			Buckets: prometheus.DefBuckets,
		}),
		CacheUpdateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "perpswap_cache_update_duration_seconds",
			Help:    "Time holding the per-key mutex during UpdateAtomic",
			Buckets: prometheus.DefBuckets,
		}),
		StrategyEvalDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpswap_strategy_eval_duration_seconds",
			Help:    "Strategy evaluator wall time",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy_family"}),
		SignalsFiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_signals_fired_total",
			Help: "Actionable signals emitted by a strategy evaluator",
		}, []string{"strategy_family", "direction"}),
		PositionsOpenedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_positions_opened_total",
			Help: "Positions opened by the risk state machine",
		}, []string{"strategy_family", "side"}),
		PositionsClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_positions_closed_total",
			Help: "Positions closed, labeled by the exit reason string",
		}, []string{"strategy_family", "reason"}),
		OrderPlaceErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_order_place_errors_total",
			Help: "Order placer errors by operation (entry, close)",
		}, []string{"op"}),
		ExchangeCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "perpswap_exchange_circuit_breaker_state",
			Help: "Exchange REST circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		ExchangeCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpswap_exchange_circuit_breaker_trips_total",
			Help: "Exchange REST circuit breaker trips",
		}),
		ExchangeRequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpswap_exchange_request_duration_seconds",
			Help:    "Exchange REST request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		SweepBatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpswap_sweep_batches_total",
			Help: "Parameter sweep batches completed",
		}),
		SweepCombinationsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpswap_sweep_combinations_run_total",
			Help: "Parameter combinations backtested",
		}),
		SweepActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "perpswap_sweep_active_workers",
			Help: "Backtests currently running under the sweep semaphore",
		}),
		DBWriteDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpswap_db_write_duration_seconds",
			Help:    "Batch write duration against a persistence backend",
			Buckets: prometheus.DefBuckets,
		}, []string{"store"}),
		DBWriteErrTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpswap_db_write_errors_total",
			Help: "Batch write failures against a persistence backend",
		}, []string{"store"}),
	}

	prometheus.MustRegister(
		m.CandlesProcessedTotal, m.DedupRejectsTotal, m.BundleAdvanceDur, m.CacheUpdateDur,
		m.StrategyEvalDur, m.SignalsFiredTotal, m.PositionsOpenedTotal, m.PositionsClosedTotal,
		m.OrderPlaceErrorsTotal, m.ExchangeCircuitBreakerState, m.ExchangeCircuitBreakerTrips,
		m.ExchangeRequestDur, m.SweepBatchesTotal, m.SweepCombinationsRun, m.SweepActiveWorkers,
		m.DBWriteDur, m.DBWriteErrTotal,
	)
	return m
}

// HealthStatus is the process health snapshot served at /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	ExchangeWSConnected bool      `json:"exchange_ws_connected"`
	LastCandleTime      time.Time `json:"last_candle_time"`
	RedisConnected      bool      `json:"redis_connected"`
	MySQLConnected      bool      `json:"mysql_connected"`
}

// SetExchangeWS records the exchange WS connection state.
func (h *HealthStatus) SetExchangeWS(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ExchangeWSConnected = connected
}

// SetLastCandleTime records the timestamp of the most recently processed candle.
func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastCandleTime = t
}

// SetRedisConnected records Redis connectivity.
func (h *HealthStatus) SetRedisConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.RedisConnected = connected
}

// SetMySQLConnected records MySQL connectivity.
func (h *HealthStatus) SetMySQLConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.MySQLConnected = connected
}

// ServeHTTP reports 200 when the exchange WS and Redis are both connected,
// 503 otherwise. MySQLConnected and LastCandleTime are included in the
// body but do not affect the status code.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	snap := struct {
		ExchangeWSConnected bool      `json:"exchange_ws_connected"`
		LastCandleTime      time.Time `json:"last_candle_time"`
		RedisConnected      bool      `json:"redis_connected"`
		MySQLConnected      bool      `json:"mysql_connected"`
	}{h.ExchangeWSConnected, h.LastCandleTime, h.RedisConnected, h.MySQLConnected}
	h.mu.RUnlock()

	httpCode := http.StatusOK
	if !snap.ExchangeWSConnected || !snap.RedisConnected {
		httpCode = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	json.NewEncoder(w).Encode(snap)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer builds a metrics+health server bound to addr.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)
	return &Server{health: health, addr: addr, srv: &http.Server{Addr: addr, Handler: mux}}
}

// ListenAndServe starts the server; it blocks until the server stops.
func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

// Close shuts the server down immediately.
func (s *Server) Close() error { return s.srv.Close() }
