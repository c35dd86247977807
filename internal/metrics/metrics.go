package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of the service. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AttemptsStarted *prometheus.CounterVec
	AttemptsScored  *prometheus.CounterVec
	ScorePercentage *prometheus.HistogramVec
	ActiveAttempts  prometheus.Gauge
	CatalogLoads    *prometheus.CounterVec
}

// New builds the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		AttemptsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tryout_attempts_started_total",
				Help: "Attempts started, including retries",
			},
			[]string{"tryout", "kind"},
		),
		AttemptsScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tryout_attempts_scored_total",
				Help: "Attempts submitted and scored",
			},
			[]string{"tryout", "passed", "auto"},
		),
		ScorePercentage: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tryout_score_percentage",
				Help:    "Distribution of attempt percentages",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"tryout"},
		),
		ActiveAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tryout_active_attempts",
			Help: "Attempts currently held in the session store",
		}),
		CatalogLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tryout_catalog_loads_total",
				Help: "Catalog loads by source and outcome",
			},
			[]string{"source", "outcome"},
		),
	}
	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.AttemptsStarted,
		m.AttemptsScored,
		m.ScorePercentage,
		m.ActiveAttempts,
		m.CatalogLoads,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) AttemptStarted(tryoutID string, retry bool) {
	if m == nil {
		return
	}
	kind := "start"
	if retry {
		kind = "retry"
	}
	m.AttemptsStarted.WithLabelValues(tryoutID, kind).Inc()
}

func (m *Metrics) AttemptScored(tryoutID string, percentage int, passed, auto bool) {
	if m == nil {
		return
	}
	m.AttemptsScored.WithLabelValues(tryoutID, strconv.FormatBool(passed), strconv.FormatBool(auto)).Inc()
	m.ScorePercentage.WithLabelValues(tryoutID).Observe(float64(percentage))
}

func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.ActiveAttempts.Set(float64(n))
}

func (m *Metrics) CatalogLoad(source string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CatalogLoads.WithLabelValues(source, outcome).Inc()
}

// Middleware records request count and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
