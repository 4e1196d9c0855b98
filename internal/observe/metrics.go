// Package observe provides OpenTelemetry metrics for the voice pipeline.
//
// Metrics are recorded through the OTel Metrics API; a Prometheus exporter
// bridge is available via [InitProvider] so they can be scraped from the
// standard /metrics endpoint. Tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all agripos metrics.
const meterName = "github.com/quangvo/agripos"

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the synchronous pipeline, which finishes well under a second.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// Metrics holds all metric instruments for the voice pipeline. All fields
// are safe for concurrent use — the underlying OTel types handle their own
// synchronisation.
type Metrics struct {
	// Sessions counts recognition sessions by terminal outcome. Attribute:
	//   outcome = "final" | "error" | "end" | "cancelled"
	Sessions metric.Int64Counter

	// Intents counts classified intents. Attribute: kind.
	Intents metric.Int64Counter

	// Resolutions counts product resolution attempts. Attribute:
	//   status = "hit" | "miss"
	Resolutions metric.Int64Counter

	// AliasSyncs counts alias cache sync attempts. Attribute:
	//   status = "ok" | "failed"
	AliasSyncs metric.Int64Counter

	// PipelineDuration tracks the latency of one Normalize→Classify→Resolve
	// pass.
	PipelineDuration metric.Float64Histogram

	// CachedAliases tracks the current alias cache size.
	CachedAliases metric.Int64UpDownCounter
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("agripos.voice.sessions",
		metric.WithDescription("Recognition sessions by terminal outcome."),
	); err != nil {
		return nil, err
	}
	if met.Intents, err = m.Int64Counter("agripos.voice.intents",
		metric.WithDescription("Classified intents by kind."),
	); err != nil {
		return nil, err
	}
	if met.Resolutions, err = m.Int64Counter("agripos.voice.resolutions",
		metric.WithDescription("Product resolution attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.AliasSyncs, err = m.Int64Counter("agripos.voice.alias_syncs",
		metric.WithDescription("Alias cache sync attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("agripos.voice.pipeline.duration",
		metric.WithDescription("Latency of one pipeline pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CachedAliases, err = m.Int64UpDownCounter("agripos.voice.cached_aliases",
		metric.WithDescription("Current alias cache size."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordSession increments the session counter for outcome.
func (m *Metrics) RecordSession(ctx context.Context, outcome string) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordIntent increments the intent counter for kind and the resolution
// counter when the intent carried a product phrase.
func (m *Metrics) RecordIntent(ctx context.Context, kind string, resolved, attempted bool) {
	m.Intents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	if !attempted {
		return
	}
	status := "miss"
	if resolved {
		status = "hit"
	}
	m.Resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordAliasSync increments the sync counter and adjusts the cache size
// gauge by delta (new size minus old size) on success.
func (m *Metrics) RecordAliasSync(ctx context.Context, ok bool, delta int64) {
	status := "failed"
	if ok {
		status = "ok"
		m.CachedAliases.Add(ctx, delta)
	}
	m.AliasSyncs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
