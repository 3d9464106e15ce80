package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics exported by the API.
type Collector struct {
	authAttempts    *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "useradmin_auth_attempts_total",
			Help: "Authentication attempts by result.",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "useradmin_account_mutations_total",
			Help: "Successful account mutations by operation.",
		}, []string{"op"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "useradmin_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(c.authAttempts, c.mutations, c.requestDuration)

	return c
}

func (c *Collector) RecordAuth(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.authAttempts.WithLabelValues(result).Inc()
}

func (c *Collector) RecordMutation(op string) {
	c.mutations.WithLabelValues(op).Inc()
}

func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// MetricsHandler serves the Prometheus scrape endpoint for gatherer.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
