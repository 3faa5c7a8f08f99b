package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login routing metrics
var (
	// ResolutionsTotal counts authentication attempts by outcome
	// (routed, nodomain, nohost).
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domainmap_resolutions_total",
			Help: "Login route resolutions by result",
		},
		[]string{"result"},
	)

	// HookInvocationsTotal counts hook calls by hook name and status.
	HookInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domainmap_hook_invocations_total",
			Help: "Hook invocations by hook and status",
		},
		[]string{"hook", "status"},
	)

	// PluginActivationsTotal counts per-domain plugin activations.
	PluginActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domainmap_plugin_activations_total",
			Help: "Extra plugin activations by plugin and status",
		},
		[]string{"plugin", "status"},
	)
)

// Domain map metrics
var (
	// SourceLoadsTotal counts domain map loads by source type and status.
	SourceLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domainmap_source_loads_total",
			Help: "Domain map loads by source and status",
		},
		[]string{"source", "status"},
	)

	// DomainsConfigured is the number of domains in the loaded map.
	DomainsConfigured = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "domainmap_domains_configured",
			Help: "Number of domains in the loaded domain map",
		},
	)
)

// Probe metrics
var (
	// ProbeResultsTotal counts endpoint probes by service and status.
	ProbeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domainmap_probe_results_total",
			Help: "Endpoint probes by service and status",
		},
		[]string{"service", "status"},
	)
)
