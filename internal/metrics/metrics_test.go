package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		ResolutionsTotal,
		HookInvocationsTotal,
		PluginActivationsTotal,
		SourceLoadsTotal,
		DomainsConfigured,
		ProbeResultsTotal,
	}

	for _, c := range collectors {
		require.NotNil(t, c)
	}
}

func TestResolutionsTotalCounts(t *testing.T) {
	before := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("routed"))
	ResolutionsTotal.WithLabelValues("routed").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ResolutionsTotal.WithLabelValues("routed")))
}

func TestDomainsConfiguredGauge(t *testing.T) {
	DomainsConfigured.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(DomainsConfigured))
}
