package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

// contextWithValidSpan returns a context carrying a fixed, valid span context.
func contextWithValidSpan(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestWithContext(t *testing.T) {
	l, _ := newObservedLogger()
	ctx := WithContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
}

func TestFromContext_Fallbacks(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		assert.NotPanics(t, func() { l.Info("test") })
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
		l := FromContext(ctx)
		require.NotNil(t, l)
		assert.NotPanics(t, func() { l.Info("test") })
	})
}

func TestContextEnrichment(t *testing.T) {
	base, recorded := newObservedLogger()

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "req-1")
	ctx, _ = WithUserID(ctx, FromContext(ctx), "staff-1")
	ctx, l := WithRole(ctx, FromContext(ctx), "super_admin")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "staff-1", GetUserID(ctx))
	assert.Equal(t, "super_admin", GetRole(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("enriched")
	entries := recorded.FilterMessage("enriched").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "staff-1", fields["user_id"])
	assert.Equal(t, "super_admin", fields["role"])
}

func TestContextGetters_NotFound(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetRole(ctx))
}

func TestWithRequestID_Override(t *testing.T) {
	l, _ := newObservedLogger()
	ctx, _ := WithRequestID(context.Background(), l, "first-id")
	ctx, _ = WithRequestID(ctx, l, "second-id")
	assert.Equal(t, "second-id", GetRequestID(ctx))
}

func TestContextKeys(t *testing.T) {
	keys := []contextKey{LoggerKey, RequestIDKey, UserIDKey, RoleKey}
	seen := make(map[contextKey]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}
}

func TestTraceIDs(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
		assert.Empty(t, GetSpanID(context.Background()))
	})

	t.Run("noop span is invalid", func(t *testing.T) {
		ctx, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "span")
		defer span.End()
		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetSpanID(ctx))
	})

	t.Run("valid span", func(t *testing.T) {
		ctx := contextWithValidSpan(t)
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
		assert.Equal(t, "00f067aa0ba902b7", GetSpanID(ctx))
	})
}

func TestWithTraceContext(t *testing.T) {
	t.Run("returns same logger without span", func(t *testing.T) {
		base := zap.NewNop()
		assert.Same(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("adds trace fields with valid span", func(t *testing.T) {
		base, recorded := newObservedLogger()
		WithTraceContext(contextWithValidSpan(t), base).Info("traced")

		fields := recorded.All()[0].ContextMap()
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("L uses logger from context and adds trace fields", func(t *testing.T) {
		base, recorded := newObservedLogger()
		ctx, _ := WithRequestID(contextWithValidSpan(t), base, "req-123")

		L(ctx).Info("test message", zap.String("extra_field", "extra_value"))

		entries := recorded.FilterMessage("test message").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-123", fields["request_id"])
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
		assert.Equal(t, "extra_value", fields["extra_field"])
	})

	t.Run("With keeps fields across levels", func(t *testing.T) {
		base, recorded := newObservedLogger()
		cl := WithLogger(context.Background(), base).
			With(zap.String("field1", "value1")).
			With(zap.String("field2", "value2"))

		cl.Debug("d")
		cl.Warn("w")
		cl.Error("e")

		require.Equal(t, 3, recorded.Len())
		for _, entry := range recorded.All() {
			fields := entry.ContextMap()
			assert.Equal(t, "value1", fields["field1"])
			assert.Equal(t, "value2", fields["field2"])
		}
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		cl := &ContextLogger{ctx: context.Background()}
		assert.NotPanics(t, func() {
			cl.Info("test")
			cl.Zap().Info("test")
		})
	})

	t.Run("no empty identity fields", func(t *testing.T) {
		base, recorded := newObservedLogger()
		L(WithContext(context.Background(), base)).Info("bare")

		fields := recorded.All()[0].ContextMap()
		assert.NotContains(t, fields, "request_id")
		assert.NotContains(t, fields, "user_id")
		assert.NotContains(t, fields, "trace_id")
	})
}
