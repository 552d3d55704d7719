// Package metrics exposes the Prometheus collectors for the reports service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	ReportsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "water_reports",
		Name:      "reports_created_total",
		Help:      "Reports successfully created.",
	})

	ReportCreateFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "water_reports",
		Name:      "report_create_failures_total",
		Help:      "Report creations that failed, by stage (upload, insert, cleanup).",
	}, []string{"stage"})

	ModerationTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "water_reports",
		Name:      "moderation_transitions_total",
		Help:      "Applied solved/pending transitions, by target state.",
	}, []string{"state"})

	RealtimeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "water_reports",
		Name:      "realtime_subscriptions",
		Help:      "Open change-notification subscriptions.",
	})

	RealtimeRefetches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "water_reports",
		Name:      "realtime_refetches_total",
		Help:      "List re-queries triggered by change events.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ReportsCreated,
		ReportCreateFailures,
		ModerationTransitions,
		RealtimeSubscriptions,
		RealtimeRefetches,
	)
}

// Handler serves the scrape endpoint for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
