package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the Cadence tracer.
const tracerName = "github.com/MrWong99/cadence"

// GuildKey is the span attribute holding the guild a span works for.
const GuildKey = attribute.Key("cadence.guild_id")

type guildKey struct{}

// Tracer returns the package-level [trace.Tracer] for Cadence. It uses the
// globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// WithGuild tags ctx with guildID. Spans started by [StartSpan] and loggers
// returned by [Logger] pick the guild up from ctx.
func WithGuild(ctx context.Context, guildID string) context.Context {
	if guildID == "" {
		return ctx
	}
	return context.WithValue(ctx, guildKey{}, guildID)
}

// GuildID returns the guild ctx was tagged with, or "".
func GuildID(ctx context.Context) string {
	id, _ := ctx.Value(guildKey{}).(string)
	return id
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if id := GuildID(ctx); id != "" {
		opts = append(opts, trace.WithAttributes(GuildKey.String(id)))
	}
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger enriched with the guild, trace and span
// IDs found in ctx.
func Logger(ctx context.Context) *slog.Logger {
	var attrs []any
	if id := GuildID(ctx); id != "" {
		attrs = append(attrs, slog.String("guild_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return slog.Default()
	}
	return slog.Default().With(attrs...)
}
