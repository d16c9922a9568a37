// Package observability provides a metrics extension for paystream that
// records stream lifecycle counts and value flows via go-utils MetricFactory.
package observability

import (
	"context"

	gometrics "github.com/xraph/go-utils/metrics"

	"github.com/xraph/paystream/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated   = (*MetricsExtension)(nil)
	_ plugin.OnStreamWithdrawn = (*MetricsExtension)(nil)
	_ plugin.OnStreamCanceled  = (*MetricsExtension)(nil)
	_ plugin.OnStreamCompleted = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide stream metrics.
// Register it as a paystream plugin to track streaming volume.
type MetricsExtension struct {
	factory gometrics.MetricFactory

	StreamCreated   gometrics.Counter
	StreamWithdrawn gometrics.Counter
	StreamCanceled  gometrics.Counter
	StreamCompleted gometrics.Counter

	// ActiveStreams is maintained from events seen by this process only.
	ActiveStreams gometrics.Gauge

	DepositVolume   gometrics.Counter
	WithdrawnVolume gometrics.Counter
	RefundedVolume  gometrics.Counter
	DepositSize     gometrics.Histogram
	WithdrawalSize  gometrics.Histogram
	StreamDuration  gometrics.Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory gometrics.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		StreamCreated:   factory.Counter("paystream.stream.created"),
		StreamWithdrawn: factory.Counter("paystream.stream.withdrawn"),
		StreamCanceled:  factory.Counter("paystream.stream.canceled"),
		StreamCompleted: factory.Counter("paystream.stream.completed"),

		ActiveStreams: factory.Gauge("paystream.stream.active"),

		DepositVolume:   factory.Counter("paystream.volume.deposited"),
		WithdrawnVolume: factory.Counter("paystream.volume.withdrawn"),
		RefundedVolume:  factory.Counter("paystream.volume.refunded"),
		DepositSize: factory.Histogram("paystream.deposit.size",
			gometrics.WithExponentialBuckets(1, 10, 12)),
		WithdrawalSize: factory.Histogram("paystream.withdrawal.size",
			gometrics.WithExponentialBuckets(1, 10, 12)),
		StreamDuration: factory.Histogram("paystream.stream.duration_seconds",
			gometrics.WithExponentialBuckets(60, 4, 10)),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnStreamCreated implements plugin.OnStreamCreated.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, evt *plugin.StreamEvent) error {
	m.StreamCreated.Inc()
	m.ActiveStreams.Inc()
	deposit := float64(evt.Stream.Deposit.Int64())
	m.DepositVolume.Add(deposit)
	m.DepositSize.Observe(deposit)
	m.StreamDuration.Observe(float64(evt.Stream.Duration()))
	return nil
}

// OnStreamWithdrawn implements plugin.OnStreamWithdrawn.
func (m *MetricsExtension) OnStreamWithdrawn(_ context.Context, evt *plugin.StreamEvent) error {
	m.StreamWithdrawn.Inc()
	amount := float64(evt.Amount.Int64())
	m.WithdrawnVolume.Add(amount)
	m.WithdrawalSize.Observe(amount)
	return nil
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (m *MetricsExtension) OnStreamCanceled(_ context.Context, evt *plugin.StreamEvent) error {
	m.StreamCanceled.Inc()
	m.ActiveStreams.Dec()
	if evt.Settlement != nil {
		m.WithdrawnVolume.Add(float64(evt.Settlement.RecipientAmount.Int64()))
		m.RefundedVolume.Add(float64(evt.Settlement.SenderAmount.Int64()))
	}
	return nil
}

// OnStreamCompleted implements plugin.OnStreamCompleted.
func (m *MetricsExtension) OnStreamCompleted(_ context.Context, _ *plugin.StreamEvent) error {
	m.StreamCompleted.Inc()
	m.ActiveStreams.Dec()
	return nil
}
