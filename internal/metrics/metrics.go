package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service.
// All recording methods are safe to call on a nil receiver, so wiring
// metrics is optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	questionsTotal    *prometheus.CounterVec
	noContextTotal    prometheus.Counter
	gateRejectedTotal prometheus.Counter
	approvalsTotal    *prometheus.CounterVec
	answerDuration    prometheus.Histogram
	indexedDocsTotal  prometheus.Counter
}

// New creates the metrics set with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notechat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notechat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notechat",
			Subsystem: "chat",
			Name:      "questions_total",
			Help:      "Total questions processed by classification kind.",
		},
		[]string{"kind"},
	)
	noContextTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notechat",
			Subsystem: "chat",
			Name:      "no_context_total",
			Help:      "Total questions where retrieval found no usable context.",
		},
	)
	gateRejectedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notechat",
			Subsystem: "chat",
			Name:      "gate_rejected_total",
			Help:      "Total answers rejected by the confidence gate.",
		},
	)
	approvalsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notechat",
			Subsystem: "chat",
			Name:      "approvals_total",
			Help:      "Total external-knowledge confirmation resolutions by decision.",
		},
		[]string{"decision"},
	)
	answerDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "notechat",
			Subsystem: "chat",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end question processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	indexedDocsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notechat",
			Subsystem: "index",
			Name:      "documents_total",
			Help:      "Total documents indexed.",
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		questionsTotal,
		noContextTotal,
		gateRejectedTotal,
		approvalsTotal,
		answerDuration,
		indexedDocsTotal,
	)

	return &Metrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		questionsTotal:    questionsTotal,
		noContextTotal:    noContextTotal,
		gateRejectedTotal: gateRejectedTotal,
		approvalsTotal:    approvalsTotal,
		answerDuration:    answerDuration,
		indexedDocsTotal:  indexedDocsTotal,
	}
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations per route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordQuestion counts one processed question by classification kind.
func (m *Metrics) RecordQuestion(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.questionsTotal.WithLabelValues(kind).Inc()
	m.answerDuration.Observe(duration.Seconds())
}

// RecordNoContext counts a retrieval miss.
func (m *Metrics) RecordNoContext() {
	if m == nil {
		return
	}
	m.noContextTotal.Inc()
}

// RecordGateRejected counts an answer the confidence gate discarded.
func (m *Metrics) RecordGateRejected() {
	if m == nil {
		return
	}
	m.gateRejectedTotal.Inc()
}

// RecordApproval counts a confirmation resolution ("approved" or "declined").
func (m *Metrics) RecordApproval(decision string) {
	if m == nil {
		return
	}
	m.approvalsTotal.WithLabelValues(decision).Inc()
}

// RecordIndexedDocument counts one indexed document.
func (m *Metrics) RecordIndexedDocument() {
	if m == nil {
		return
	}
	m.indexedDocsTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
