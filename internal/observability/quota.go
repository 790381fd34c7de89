package observability

import (
	"context"
	"translator/internal/quota"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QuotaMetrics records quota controller events as OpenTelemetry counters.
type QuotaMetrics struct {
	checks      metric.Int64Counter
	usage       metric.Int64Counter
	escalations metric.Int64Counter
	rollovers   metric.Int64Counter
}

var _ quota.Recorder = (*QuotaMetrics)(nil)

func NewQuotaMetrics(mp metric.MeterProvider) (*QuotaMetrics, error) {
	meter := mp.Meter("translator/quota")

	checks, err := meter.Int64Counter("quota.checks",
		metric.WithDescription("Eligibility checks by outcome"),
		metric.WithUnit("{check}"))
	if err != nil {
		return nil, err
	}
	usage, err := meter.Int64Counter("quota.usage",
		metric.WithDescription("Translations counted against the window"),
		metric.WithUnit("{translation}"))
	if err != nil {
		return nil, err
	}
	escalations, err := meter.Int64Counter("quota.escalations",
		metric.WithDescription("Administrator escalations triggered"),
		metric.WithUnit("{escalation}"))
	if err != nil {
		return nil, err
	}
	rollovers, err := meter.Int64Counter("quota.rollovers",
		metric.WithDescription("Windows replaced, by reason"),
		metric.WithUnit("{window}"))
	if err != nil {
		return nil, err
	}

	return &QuotaMetrics{
		checks:      checks,
		usage:       usage,
		escalations: escalations,
		rollovers:   rollovers,
	}, nil
}

func (m *QuotaMetrics) Checked(allowed, exempt bool) {
	m.checks.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Bool("allowed", allowed),
		attribute.Bool("exempt", exempt),
	))
}

func (m *QuotaMetrics) UsageRegistered() {
	m.usage.Add(context.Background(), 1)
}

func (m *QuotaMetrics) Escalated() {
	m.escalations.Add(context.Background(), 1)
}

func (m *QuotaMetrics) RolledOver(reason string) {
	m.rollovers.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
