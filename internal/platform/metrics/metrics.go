// Package metrics exposes Prometheus metrics for the HTTP API, the
// background generation runner and the study content pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nextudy"

// Metrics holds the application collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	TasksQueued      *prometheus.CounterVec
	TasksFinished    *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	StudyGenerations *prometheus.CounterVec
	UploadsTotal     *prometheus.CounterVec
	UploadBytesTotal *prometheus.CounterVec
}

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		TasksQueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "queued_total",
			Help:      "Background tasks accepted by the runner",
		}, []string{"type"}),
		TasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "Background tasks finished, by outcome",
		}, []string{"type", "outcome"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Background task duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"type"}),
		StudyGenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "generations_total",
			Help:      "Summaries, flashcard sets and QCM generated, by outcome",
		}, []string{"kind", "outcome"}),
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "uploads_total",
			Help:      "Document uploads, by kind and outcome",
		}, []string{"kind", "outcome"}),
		UploadBytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "upload_bytes_total",
			Help:      "Bytes of successfully stored uploads",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterQueueDepth exposes the runner's queue depth as a gauge.
func (m *Metrics) RegisterQueueDepth(depth func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "queue_depth",
		Help:      "Tasks waiting for a worker",
	}, func() float64 { return float64(depth()) }))
}

// Middleware records request counts and durations by chi route pattern so
// ids in paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// TaskQueued implements task.Observer.
func (m *Metrics) TaskQueued(taskType string) {
	m.TasksQueued.WithLabelValues(taskType).Inc()
}

// TaskFinished implements task.Observer.
func (m *Metrics) TaskFinished(taskType string, err error, elapsed time.Duration) {
	m.TasksFinished.WithLabelValues(taskType, outcome(err)).Inc()
	m.TaskDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
}

// RecordStudyGeneration counts one summary, flashcard or QCM generation.
func (m *Metrics) RecordStudyGeneration(kind string, err error) {
	m.StudyGenerations.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordUpload counts one document upload.
func (m *Metrics) RecordUpload(kind string, size int64, err error) {
	m.UploadsTotal.WithLabelValues(kind, outcome(err)).Inc()
	if err == nil {
		m.UploadBytesTotal.WithLabelValues(kind).Add(float64(size))
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
