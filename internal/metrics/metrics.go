// Package metrics exposes marketplace and HTTP counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/chatmate/internal/core/events"
)

const namespace = "chatmate"

type Metrics struct {
	Registry *prometheus.Registry

	events        *prometheus.CounterVec
	volume        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marketplace",
				Name:      "events_total",
				Help:      "Marketplace events published, by type.",
			},
			[]string{"type"},
		),
		volume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marketplace",
				Name:      "payment_volume_total",
				Help:      "Currency moved to assistant owners, by payment kind.",
			},
			[]string{"kind"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifier",
				Name:      "deliveries_total",
				Help:      "Webhook deliveries, by event type and outcome.",
			},
			[]string{"type", "success"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "route"},
		),
	}

	m.Registry.MustRegister(
		m.events,
		m.volume,
		m.notifications,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Register(bus *events.EventBus) {
	bus.SubscribeAll(m.HandleEvent)
}

func (m *Metrics) HandleEvent(_ context.Context, event events.Event) error {
	m.events.WithLabelValues(event.EventType()).Inc()
	switch e := event.(type) {
	case *events.PaymentReceivedEvent:
		m.volume.WithLabelValues("access_fee").Add(float64(e.Amount))
	case *events.TipReceivedEvent:
		m.volume.WithLabelValues("tip").Add(float64(e.Amount))
	}
	return nil
}

// RecordDelivery matches the notifier's delivery hook.
func (m *Metrics) RecordDelivery(eventType string, ok bool) {
	m.notifications.WithLabelValues(eventType, strconv.FormatBool(ok)).Inc()
}

// InstrumentHandler labels requests by their chi route pattern so path
// parameters do not explode cardinality.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
