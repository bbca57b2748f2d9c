package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor receives a nil meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Upstream call outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeTimeout     = "timeout"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// GatewayMetrics records backend round-trips, session lifecycle events and
// media uploads. A nil *GatewayMetrics is valid and records nothing.
type GatewayMetrics struct {
	upstreamRequests *Counter
	upstreamDuration *Histogram
	upstreamInFlight *UpDownCounter
	sessionEvents    *Counter
	uploadSize       *Histogram
}

// NewGatewayMetrics creates the gateway's instruments on meter.
func NewGatewayMetrics(meter metric.Meter) (*GatewayMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	gm := &GatewayMetrics{}

	var err error
	if gm.upstreamRequests, err = NewCounter(meter,
		"gateway_upstream_requests_total",
		"Total number of requests forwarded to the backend",
		"{requests}",
	); err != nil {
		return nil, err
	}

	if gm.upstreamDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "gateway_upstream_duration_seconds",
		Description: "Backend round-trip duration",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if gm.upstreamInFlight, err = NewUpDownCounter(meter,
		"gateway_upstream_in_flight",
		"Backend requests currently in flight",
		"{requests}",
	); err != nil {
		return nil, err
	}

	if gm.sessionEvents, err = NewCounter(meter,
		"gateway_session_events_total",
		"Session lifecycle events (signin, refresh, signout, rejected)",
		"{events}",
	); err != nil {
		return nil, err
	}

	if gm.uploadSize, err = NewHistogram(meter, HistogramOpts{
		Name:        "gateway_media_upload_bytes",
		Description: "Size of accepted media uploads",
		Unit:        "By",
		Boundaries:  SizeBuckets,
	}); err != nil {
		return nil, err
	}

	return gm, nil
}

// UpstreamStarted marks a backend request as in flight and returns a
// function that records its completion.
func (gm *GatewayMetrics) UpstreamStarted(ctx context.Context, route, method string) func(status int, outcome string) {
	if gm == nil {
		return func(int, string) {}
	}

	start := time.Now()
	routeAttr := AttrUpstreamRoute.String(route)
	gm.upstreamInFlight.Add(ctx, 1, routeAttr)

	return func(status int, outcome string) {
		gm.upstreamInFlight.Add(ctx, -1, routeAttr)
		attrs := []attribute.KeyValue{
			routeAttr,
			AttrHTTPMethod.String(method),
			AttrHTTPStatusCode.Int(status),
			AttrOutcome.String(outcome),
		}
		gm.upstreamRequests.Inc(ctx, attrs...)
		gm.upstreamDuration.RecordDuration(ctx, time.Since(start), attrs...)
	}
}

// RecordSessionEvent counts a session lifecycle event.
func (gm *GatewayMetrics) RecordSessionEvent(ctx context.Context, event, outcome string) {
	if gm == nil {
		return
	}
	gm.sessionEvents.Inc(ctx, AttrSessionEvent.String(event), AttrOutcome.String(outcome))
}

// RecordUpload records the size of an accepted upload.
func (gm *GatewayMetrics) RecordUpload(ctx context.Context, mode string, size int64) {
	if gm == nil {
		return
	}
	gm.uploadSize.Record(ctx, float64(size), AttrMediaMode.String(mode))
}
