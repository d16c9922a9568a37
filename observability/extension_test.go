package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gometrics "github.com/xraph/go-utils/metrics"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/observability"
	"github.com/xraph/paystream/store/memory"
)

const t0 int64 = 1_700_000_000

func TestMetricsTrackStreamLifecycle(t *testing.T) {
	ctx := context.Background()
	collector := gometrics.NewMetricsCollector("paystream_test")
	m := observability.NewMetricsExtension(collector)

	e := paystream.New(memory.New(), paystream.WithPlugin(m))
	require.NoError(t, e.Start(ctx))
	defer func() { _ = e.Stop() }()

	first, err := e.Create(ctx, paystream.CreateParams{
		Sender: "alice", Recipient: "bob", StartTime: t0, StopTime: t0 + 100, Deposit: 1000,
	}, t0)
	require.NoError(t, err)
	second, err := e.Create(ctx, paystream.CreateParams{
		Sender: "alice", Recipient: "carol", StartTime: t0, StopTime: t0 + 100, Deposit: 500,
	}, t0)
	require.NoError(t, err)

	assert.Equal(t, 2.0, m.StreamCreated.Value())
	assert.Equal(t, 2.0, m.ActiveStreams.Value())
	assert.Equal(t, 1500.0, m.DepositVolume.Value())
	assert.Equal(t, uint64(2), m.DepositSize.Count())

	_, err = e.WithdrawMax(ctx, first, "bob", t0+40)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.StreamWithdrawn.Value())
	assert.Equal(t, 400.0, m.WithdrawnVolume.Value())

	_, err = e.WithdrawMax(ctx, first, "bob", t0+100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.StreamCompleted.Value())
	assert.Equal(t, 1000.0, m.WithdrawnVolume.Value())

	_, err = e.Cancel(ctx, second, "alice", t0+20)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.StreamCanceled.Value())
	assert.Equal(t, 400.0, m.RefundedVolume.Value())
	assert.Equal(t, 1100.0, m.WithdrawnVolume.Value())
	assert.Equal(t, 0.0, m.ActiveStreams.Value())
}
