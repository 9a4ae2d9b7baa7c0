// Package metrics exposes Prometheus collectors for the referer classifier service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	classificationsTotal       *prometheus.CounterVec
	searchTermsTotal           *prometheus.CounterVec
	classificationErrorsTotal  prometheus.Counter
	indexBuildsTotal           *prometheus.CounterVec
	databaseReloadsTotal       *prometheus.CounterVec
	databaseKeys               prometheus.Gauge
	eventsTotal                *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitRejectionsTotal   prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referer_classifications_total",
				Help: "Total number of referers classified, labeled by medium and whether the scheme was known.",
			},
			[]string{"medium", "known"},
		)

		searchTermsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referer_search_terms_total",
				Help: "Total number of search terms extracted, labeled by search engine.",
			},
			[]string{"referer"},
		)

		classificationErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "referer_classification_errors_total",
				Help: "Total number of classifications rejected because a URL could not be parsed.",
			},
		)

		indexBuildsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referer_index_lookups_total",
				Help: "Total number of index requests against the classifier cache, labeled by result (hit or build).",
			},
			[]string{"result"},
		)

		databaseReloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referer_database_reloads_total",
				Help: "Total number of referer database loads, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		databaseKeys = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "referer_database_index_keys",
				Help: "Number of keys in the active referer index.",
			},
		)

		eventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referer_events_total",
				Help: "Total number of classification events, labeled by outcome (delivered, failed, dropped).",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method, route and code.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		rateLimitRejectionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limit_rejections_total",
				Help: "Total number of requests rejected by the per-client rate limiter.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveClassification records one classification outcome.
func ObserveClassification(medium string, known bool, referer string, searchTerm bool) {
	Init()
	classificationsTotal.WithLabelValues(medium, strconv.FormatBool(known)).Inc()
	if searchTerm {
		searchTermsTotal.WithLabelValues(referer).Inc()
	}
}

// ObserveClassificationError increments the rejected-classification counter.
func ObserveClassificationError() {
	Init()
	classificationErrorsTotal.Inc()
}

// ObserveIndexLookup records whether a classifier came from the cache.
func ObserveIndexLookup(cached bool) {
	Init()
	result := "build"
	if cached {
		result = "hit"
	}
	indexBuildsTotal.WithLabelValues(result).Inc()
}

// ObserveDatabaseReload records a database load and, on success, the size of
// the active index.
func ObserveDatabaseReload(err error, keys int) {
	Init()
	if err != nil {
		databaseReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	databaseReloadsTotal.WithLabelValues("success").Inc()
	databaseKeys.Set(float64(keys))
}

// ObserveEvent increments the event counter for the given outcome.
func ObserveEvent(outcome string) {
	Init()
	eventsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitRejection increments the rate limiter rejection counter.
func ObserveRateLimitRejection() {
	Init()
	rateLimitRejectionsTotal.Inc()
}
