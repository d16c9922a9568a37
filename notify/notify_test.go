package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/notify"
	"github.com/xraph/paystream/plugin"
	"github.com/xraph/paystream/store/memory"
)

const t0 int64 = 1_700_000_000

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.msgs = append(f.msgs, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (f *fakePublisher) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.channel
	}
	return out
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var msg struct {
		Event map[string]any `json:"event"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg.Event
}

func TestPublishesToStreamAndAccountChannels(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	n := notify.New(pub, notify.WithPrefix("ps"))

	e := paystream.New(memory.New(), paystream.WithPlugin(n))
	require.NoError(t, e.Start(ctx))
	defer func() { _ = e.Stop() }()

	streamID, err := e.Create(ctx, paystream.CreateParams{
		Sender: "alice", Recipient: "bob", StartTime: t0, StopTime: t0 + 10, Deposit: 10,
	}, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ps:stream:" + streamID.String(),
		"ps:account:alice",
		"ps:account:bob",
	}, pub.channels())

	evt := decode(t, pub.msgs[0].payload)
	assert.Equal(t, string(plugin.EventCreated), evt["type"])
	assert.Equal(t, "alice", evt["actor"])
	s, ok := evt["stream"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10", s["deposit"])
}

func TestWithdrawalPublishesAmount(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	n := notify.New(pub)

	e := paystream.New(memory.New(), paystream.WithPlugin(n))
	require.NoError(t, e.Start(ctx))
	defer func() { _ = e.Stop() }()

	streamID, err := e.Create(ctx, paystream.CreateParams{
		Sender: "alice", Recipient: "bob", StartTime: t0, StopTime: t0 + 10, Deposit: 10,
	}, t0)
	require.NoError(t, err)
	_, err = e.WithdrawMax(ctx, streamID, "bob", t0+4)
	require.NoError(t, err)

	require.Len(t, pub.msgs, 6)
	assert.Equal(t, n.StreamChannel(streamID.String()), pub.msgs[3].channel)
	evt := decode(t, pub.msgs[3].payload)
	assert.Equal(t, string(plugin.EventWithdrawn), evt["type"])
	assert.Equal(t, "4", evt["amount"])
}

func TestPublishFailureIsReported(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := notify.New(pub)

	s := &paystream.Stream{Sender: "alice", Recipient: "bob"}
	err := n.OnStreamCreated(context.Background(), plugin.NewStreamEvent(plugin.EventCreated, s, "alice", t0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNilEventIsIgnored(t *testing.T) {
	n := notify.New(&fakePublisher{})
	require.NoError(t, n.OnStreamCanceled(context.Background(), nil))
}
