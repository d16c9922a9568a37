package stream_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

const t0 int64 = 1_700_000_000

func newStream(deposit types.Amount, start, stop int64) *stream.Stream {
	return &stream.Stream{
		ID:            id.NewStreamID(),
		Sender:        "alice",
		Recipient:     "bob",
		Deposit:       deposit,
		RatePerSecond: stream.RateFor(deposit, start, stop),
		StartTime:     start,
		StopTime:      stop,
		Status:        stream.StatusActive,
	}
}

func TestCompute(t *testing.T) {
	s := newStream(3600, t0, t0+3600)

	tests := []struct {
		name      string
		now       int64
		sender    types.Amount
		recipient types.Amount
	}{
		{"before start", t0 - 10, 3600, 0},
		{"at start", t0, 3600, 0},
		{"one second in", t0 + 1, 3599, 1},
		{"midway", t0 + 1800, 1800, 1800},
		{"at stop", t0 + 3600, 0, 3600},
		{"after stop", t0 + 99_999, 0, 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := stream.Compute(s, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.sender, b.Sender)
			assert.Equal(t, tt.recipient, b.Recipient)
			assert.Equal(t, tt.now, b.At)
		})
	}
}

func TestComputeWithWithdrawals(t *testing.T) {
	s := newStream(3600, t0, t0+3600)
	s.Withdrawn = 1800

	b, err := stream.Compute(s, t0+1800)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(0), b.Recipient)
	assert.Equal(t, types.Amount(1800), b.Sender)

	b, err = stream.Compute(s, t0+3600)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(1800), b.Recipient)
	assert.Equal(t, types.Amount(0), b.Sender)
}

func TestComputeNonExactRate(t *testing.T) {
	// 1000 over 3 seconds: rate floors to 333 but nothing is lost.
	s := newStream(1000, t0, t0+3)
	assert.Equal(t, types.Amount(333), s.RatePerSecond)

	want := []types.Amount{0, 333, 666, 1000}
	for i, w := range want {
		b, err := stream.Compute(s, t0+int64(i))
		require.NoError(t, err)
		assert.Equal(t, w, b.Recipient, "elapsed %d", i)
		assert.Equal(t, s.Deposit-w, b.Sender, "elapsed %d", i)
	}
}

func TestComputeLargeDeposit(t *testing.T) {
	// Deposit * elapsed overflows int64; the result must still be exact.
	deposit := types.Amount(math.MaxInt64 - 7)
	s := newStream(deposit, 0, 1_000_000)

	b, err := stream.Compute(s, 500_000)
	require.NoError(t, err)
	assert.Equal(t, deposit/2, b.Recipient)

	b, err = stream.Compute(s, 999_999)
	require.NoError(t, err)
	assert.Positive(t, int64(b.Sender))
	assert.Equal(t, deposit, b.Sender+b.Recipient)
}

func TestComputeMonotonic(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for range 50 {
		duration := r.Int64N(100_000) + 1
		deposit := types.Amount(r.Int64N(math.MaxInt64/2) + 1)
		s := newStream(deposit, t0, t0+duration)

		var prevRecipient types.Amount
		prevSender := deposit
		for now := t0 - 5; now <= t0+duration+5; now += max(1, duration/97) {
			b, err := stream.Compute(s, now)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, b.Recipient, prevRecipient)
			assert.LessOrEqual(t, b.Sender, prevSender)
			prevRecipient, prevSender = b.Recipient, b.Sender
		}
	}
}

func TestComputeConservation(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	for range 200 {
		duration := r.Int64N(1_000_000) + 1
		deposit := types.Amount(r.Int64N(math.MaxInt64-1) + 1)
		s := newStream(deposit, t0, t0+duration)
		s.Withdrawn = types.Amount(r.Int64N(int64(deposit) + 1))
		now := t0 - 10 + r.Int64N(duration+20)

		b, err := stream.Compute(s, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int64(b.Sender), int64(0))
		assert.GreaterOrEqual(t, int64(b.Recipient), int64(0))
		assert.Equal(t, s.Deposit, b.Sender+b.Recipient+b.Withdrawn)
	}
}

func TestComputeClockRegression(t *testing.T) {
	s := newStream(3600, t0, t0+3600)
	s.Withdrawn = 1800

	b, err := stream.Compute(s, t0+600)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(0), b.Recipient)
	assert.Equal(t, types.Amount(1800), b.Sender)
	assert.Equal(t, types.Amount(1800), b.Entitled)
}

func TestComputeCanceledIsFrozen(t *testing.T) {
	s := newStream(3600, t0, t0+3600)
	s.Status = stream.StatusCanceled
	s.CanceledAt = t0 + 900
	s.Withdrawn = 900
	s.SenderSettlement = 2700
	s.RecipientSettlement = 900

	for _, now := range []int64{t0 + 900, t0 + 1800, t0 + 7200} {
		b, err := stream.Compute(s, now)
		require.NoError(t, err)
		assert.Equal(t, types.Amount(0), b.Recipient)
		assert.Equal(t, types.Amount(2700), b.Sender)
	}
}

func TestComputeRejectsCorruptRecords(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *stream.Stream)
	}{
		{"zero deposit", func(s *stream.Stream) { s.Deposit = 0 }},
		{"inverted window", func(s *stream.Stream) { s.StopTime = s.StartTime }},
		{"overdrawn", func(s *stream.Stream) { s.Withdrawn = s.Deposit + 1 }},
		{"negative withdrawn", func(s *stream.Stream) { s.Withdrawn = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStream(100, t0, t0+100)
			tt.mutate(s)
			_, err := stream.Compute(s, t0+50)
			require.ErrorIs(t, err, stream.ErrInvariant)
		})
	}

	_, err := stream.Compute(nil, t0)
	require.ErrorIs(t, err, stream.ErrInvariant)
}

func TestRateFor(t *testing.T) {
	assert.Equal(t, types.Amount(1), stream.RateFor(3600, 0, 3600))
	assert.Equal(t, types.Amount(0), stream.RateFor(10, 0, 100))
	assert.Equal(t, types.Amount(0), stream.RateFor(10, 5, 5))
}

func TestClone(t *testing.T) {
	s := newStream(100, t0, t0+100)
	s.Metadata = map[string]string{"memo": "rent"}

	c := s.Clone()
	c.Metadata["memo"] = "changed"
	c.Withdrawn = 50

	assert.Equal(t, "rent", s.Metadata["memo"])
	assert.Equal(t, types.Amount(0), s.Withdrawn)
	assert.Nil(t, (*stream.Stream)(nil).Clone())
}
