package observability

import (
	"context"
	"testing"
	"translator/internal/models"
	"translator/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name        string
		metrics     bool
		tracing     bool
		wantTracer  bool
		wantMetrics bool
	}{
		{name: "metrics only", metrics: true, wantMetrics: true},
		{name: "tracing only", tracing: true, wantTracer: true},
		{name: "both", metrics: true, tracing: true, wantTracer: true, wantMetrics: true},
		{name: "neither"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := models.MetricsConfig{Enabled: tt.metrics, Path: "/metrics", Port: 9465}
			obs := models.ObservabilityConfig{
				ServiceName: "translator-test",
				Tracing: models.TracingConfig{
					Enabled:    tt.tracing,
					Exporter:   "stdout",
					SampleRate: 1.0,
				},
			}

			provider, err := Setup(metrics, obs, version.Info{Version: "1.2.3"})
			require.NoError(t, err)
			require.NotNil(t, provider)

			assert.Equal(t, tt.wantTracer, provider.tracerProvider != nil)
			assert.Equal(t, tt.wantMetrics, provider.promExporter != nil)
			assert.NotNil(t, provider.TracerProvider())
			assert.NotNil(t, provider.MeterProvider())

			assert.NoError(t, provider.Shutdown(context.Background()))
		})
	}
}

func TestSetup_InvalidExporter(t *testing.T) {
	obs := models.ObservabilityConfig{
		ServiceName: "translator-test",
		Tracing: models.TracingConfig{
			Enabled:  true,
			Exporter: "zipkin",
		},
	}

	provider, err := Setup(models.MetricsConfig{}, obs, version.Info{})
	require.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 2.0, want: "AlwaysOnSampler"},
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: 0.5, want: "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		assert.Contains(t, sampler(tt.rate).Description(), "ParentBased{root:"+tt.want)
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("TRANSLATOR_ENVIRONMENT", "")
	t.Setenv("ENVIRONMENT", "")
	assert.Equal(t, "desktop", getEnvironment())

	t.Setenv("ENVIRONMENT", "staging")
	assert.Equal(t, "staging", getEnvironment())

	t.Setenv("TRANSLATOR_ENVIRONMENT", "kiosk")
	assert.Equal(t, "kiosk", getEnvironment())
}

func TestProvider_NilSafeAccessors(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.TracerProvider())
	assert.NotNil(t, p.MeterProvider())

	assert.NoError(t, (&Provider{}).Shutdown(context.Background()))
}
