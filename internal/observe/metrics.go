// Package observe provides application-wide observability primitives for
// Cadence: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
//
// All Record* helpers are safe to call on a nil *Metrics, so subsystems can
// treat metrics as optional.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Cadence metrics.
const meterName = "github.com/MrWong99/cadence"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// AdvanceDuration tracks how long a queue advance takes, including the
	// now-playing announcement and the play request to the audio node.
	AdvanceDuration metric.Float64Histogram

	// SearchDuration tracks track resolution latency. Use with attribute:
	//   attribute.String("cache", "hit"|"miss")
	SearchDuration metric.Float64Histogram

	// --- Counters ---

	// TracksPlayed counts tracks handed to the audio node. Use with attribute:
	//   attribute.String("guild_id", ...)
	TracksPlayed metric.Int64Counter

	// MenuInputs counts dispatched menu inputs. Use with attributes:
	//   attribute.String("menu", ...), attribute.String("symbol", ...)
	MenuInputs metric.Int64Counter

	// Interactions counts routed Discord interactions. Use with attributes:
	//   attribute.String("kind", "command"|"autocomplete"),
	//   attribute.String("command", ...), attribute.String("result", ...)
	Interactions metric.Int64Counter

	// --- Error counters ---

	// NodeErrors counts failed audio node operations. Use with attributes:
	//   attribute.String("node", ...), attribute.String("op", ...)
	NodeErrors metric.Int64Counter

	// --- Gauges ---

	// ActivePlayers tracks the number of live playback controllers.
	ActivePlayers metric.Int64UpDownCounter

	// ActiveMenus tracks the number of running menus across all guilds.
	ActiveMenus metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// Discord and Lavalink round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AdvanceDuration, err = m.Float64Histogram("cadence.advance.duration",
		metric.WithDescription("Latency of advancing a playback queue to its next track."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SearchDuration, err = m.Float64Histogram("cadence.search.duration",
		metric.WithDescription("Latency of resolving a search query into tracks."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TracksPlayed, err = m.Int64Counter("cadence.tracks.played",
		metric.WithDescription("Total tracks started by guild."),
	); err != nil {
		return nil, err
	}
	if met.MenuInputs, err = m.Int64Counter("cadence.menu.inputs",
		metric.WithDescription("Total dispatched menu inputs by menu kind and symbol."),
	); err != nil {
		return nil, err
	}

	if met.Interactions, err = m.Int64Counter("cadence.interactions",
		metric.WithDescription("Total routed Discord interactions by kind, command and result."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.NodeErrors, err = m.Int64Counter("cadence.node.errors",
		metric.WithDescription("Total failed audio node operations by node and operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActivePlayers, err = m.Int64UpDownCounter("cadence.active_players",
		metric.WithDescription("Number of live playback controllers."),
	); err != nil {
		return nil, err
	}
	if met.ActiveMenus, err = m.Int64UpDownCounter("cadence.active_menus",
		metric.WithDescription("Number of running interactive menus."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("cadence.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTrackPlayed records a started track and the time the advance took.
func (m *Metrics) RecordTrackPlayed(ctx context.Context, guildID string, took time.Duration) {
	if m == nil {
		return
	}
	m.TracksPlayed.Add(ctx, 1, metric.WithAttributes(attribute.String("guild_id", guildID)))
	m.AdvanceDuration.Record(ctx, took.Seconds())
}

// RecordMenuInput records a dispatched menu input.
func (m *Metrics) RecordMenuInput(ctx context.Context, menu, symbol string) {
	if m == nil {
		return
	}
	m.MenuInputs.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("menu", menu),
			attribute.String("symbol", symbol),
		),
	)
}

// RecordInteraction records a routed interaction and how its dispatch ended.
func (m *Metrics) RecordInteraction(ctx context.Context, kind, command, result string) {
	if m == nil {
		return
	}
	m.Interactions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("command", command),
			attribute.String("result", result),
		),
	)
}

// RecordNodeError records a failed audio node operation.
func (m *Metrics) RecordNodeError(ctx context.Context, node, op string) {
	if m == nil {
		return
	}
	m.NodeErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("node", node),
			attribute.String("op", op),
		),
	)
}

// RecordSearch records a search round trip. cacheHit distinguishes answers
// served from the local cache.
func (m *Metrics) RecordSearch(ctx context.Context, took time.Duration, cacheHit bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.SearchDuration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("cache", cache)))
}

// AddActivePlayers adjusts the live controller gauge by delta.
func (m *Metrics) AddActivePlayers(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActivePlayers.Add(ctx, delta)
}

// AddActiveMenus adjusts the running menu gauge by delta.
func (m *Metrics) AddActiveMenus(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveMenus.Add(ctx, delta)
}
