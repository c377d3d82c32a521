// Package observability holds the Prometheus collector and the tracing setup.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/resilience"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Command bus
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Graph
	GraphEvents *prometheus.CounterVec
	Nodes       prometheus.Gauge
	Edges       prometheus.Gauge

	// Background services
	IconResolutions *prometheus.CounterVec
	EmailsExtracted prometheus.Counter
	Enrichments     *prometheus.CounterVec
	EnrichDuration  prometheus.Histogram
	AsyncTasks      *prometheus.GaugeVec
	BreakerState    *prometheus.GaugeVec
	Autosaves       *prometheus.CounterVec
}

var (
	_ services.Metrics         = (*Collector)(nil)
	_ bus.Observer             = (*Collector)(nil)
	_ resilience.StateObserver = (*Collector)(nil)
)

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed, by outcome",
		}, []string{"command", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"command"}),
		GraphEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_events_total",
			Help:      "Committed graph mutations by event type",
		}, []string{"type"}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes currently in the graph",
		}),
		Edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges currently in the graph",
		}),
		IconResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "icon_resolutions_total",
			Help:      "Link icons resolved, by source",
		}, []string{"source"}),
		EmailsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_extracted_total",
			Help:      "Email attachments added by the resolver",
		}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Enrichment passes by outcome",
		}, []string{"outcome"}),
		EnrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Enrichment pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		AsyncTasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "async_tasks_in_flight",
			Help:      "Background tasks currently running",
		}, []string{"kind"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while a circuit breaker is open, 0.5 half-open, 0 closed",
		}, []string{"breaker"}),
		Autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosaves_total",
			Help:      "Snapshot writes by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.Commands,
		c.CommandDuration,
		c.GraphEvents,
		c.Nodes,
		c.Edges,
		c.IconResolutions,
		c.EmailsExtracted,
		c.Enrichments,
		c.EnrichDuration,
		c.AsyncTasks,
		c.BreakerState,
		c.Autosaves,
	)
	return c
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveHTTP records one HTTP request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCommand implements bus.Observer. Failed commands are labelled with
// their error type.
func (c *Collector) ObserveCommand(name string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if appErr := pkgerrors.GetAppError(err); appErr != nil {
			outcome = string(appErr.Type)
		}
	}
	c.Commands.WithLabelValues(name, outcome).Inc()
	c.CommandDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveBreakerState implements resilience.StateObserver
func (c *Collector) ObserveBreakerState(name string, state string) {
	var v float64
	switch state {
	case "open":
		v = 1
	case "half-open":
		v = 0.5
	}
	c.BreakerState.WithLabelValues(name).Set(v)
}

// RecordIconResolution implements services.Metrics
func (c *Collector) RecordIconResolution(source string) {
	c.IconResolutions.WithLabelValues(source).Inc()
}

// RecordEmailsExtracted implements services.Metrics
func (c *Collector) RecordEmailsExtracted(count int) {
	if count > 0 {
		c.EmailsExtracted.Add(float64(count))
	}
}

// RecordEnrichment implements services.Metrics
func (c *Collector) RecordEnrichment(outcome string, duration time.Duration) {
	c.Enrichments.WithLabelValues(outcome).Inc()
	c.EnrichDuration.Observe(duration.Seconds())
}

// RecordAsyncTask implements services.Metrics
func (c *Collector) RecordAsyncTask(kind string, delta int) {
	c.AsyncTasks.WithLabelValues(kind).Add(float64(delta))
}

// RecordAutosave counts one snapshot write
func (c *Collector) RecordAutosave(err error) {
	if err != nil {
		c.Autosaves.WithLabelValues("error").Inc()
		return
	}
	c.Autosaves.WithLabelValues("ok").Inc()
}

// GraphCounter reports the current graph size
type GraphCounter interface {
	NodeCount() int
	EdgeCount() int
}

// GraphEventHandler returns an events.Handler counting mutations and keeping
// the size gauges current
func (c *Collector) GraphEventHandler(graph GraphCounter) events.Handler {
	c.Nodes.Set(float64(graph.NodeCount()))
	c.Edges.Set(float64(graph.EdgeCount()))
	return func(_ context.Context, evt events.DomainEvent) {
		c.GraphEvents.WithLabelValues(evt.GetEventType()).Inc()
		c.Nodes.Set(float64(graph.NodeCount()))
		c.Edges.Set(float64(graph.EdgeCount()))
	}
}
