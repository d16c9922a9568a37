// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

// T0 is the logical creation time used by the suite.
const T0 int64 = 1_700_000_000

// Factory returns a fresh, migrated, empty store. The factory owns cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the whole suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateKeepsExplicitID", func(t *testing.T) { testCreateKeepsExplicitID(t, newStore(t)) })
	t.Run("DuplicateID", func(t *testing.T) { testDuplicateID(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("UpdateCommits", func(t *testing.T) { testUpdateCommits(t, newStore(t)) })
	t.Run("UpdateAbortsOnError", func(t *testing.T) { testUpdateAborts(t, newStore(t)) })
	t.Run("IdentityImmutable", func(t *testing.T) { testIdentityImmutable(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("ListBySender", func(t *testing.T) { testListBySender(t, newStore(t)) })
	t.Run("ListByRecipient", func(t *testing.T) { testListByRecipient(t, newStore(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newStore(t)) })
}

// NewStream returns a valid active stream owned by sender and recipient.
func NewStream(sender, recipient string, deposit types.Amount) *stream.Stream {
	return &stream.Stream{
		Entity:        types.NewEntityAt(T0),
		Sender:        sender,
		Recipient:     recipient,
		Deposit:       deposit,
		RatePerSecond: stream.RateFor(deposit, T0, T0+3600),
		StartTime:     T0,
		StopTime:      T0 + 3600,
		Status:        stream.StatusActive,
	}
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := NewStream("alice", "bob", 3600)
	in.Metadata = map[string]string{"memo": "rent"}

	streamID, err := s.CreateStream(ctx, in)
	require.NoError(t, err)
	assert.False(t, streamID.IsNil())
	assert.Equal(t, id.PrefixStream, streamID.Prefix())

	got, err := s.GetStream(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, streamID, got.ID)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, "bob", got.Recipient)
	assert.Equal(t, types.Amount(3600), got.Deposit)
	assert.Equal(t, types.Amount(1), got.RatePerSecond)
	assert.Equal(t, T0, got.StartTime)
	assert.Equal(t, T0+3600, got.StopTime)
	assert.Equal(t, stream.StatusActive, got.Status)
	assert.Equal(t, int64(0), got.Version)
	assert.Equal(t, map[string]string{"memo": "rent"}, got.Metadata)
	assert.True(t, got.CreatedAt.Equal(in.CreatedAt))

	// The caller's record is not aliased by the store.
	in.Metadata["memo"] = "changed"
	got, err = s.GetStream(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, "rent", got.Metadata["memo"])
}

func testCreateKeepsExplicitID(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := NewStream("alice", "bob", 100)
	in.ID = id.NewStreamID()

	streamID, err := s.CreateStream(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, streamID)
}

func testDuplicateID(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := NewStream("alice", "bob", 100)
	first.ID = id.NewStreamID()
	_, err := s.CreateStream(ctx, first)
	require.NoError(t, err)

	second := NewStream("carol", "dave", 999)
	second.ID = first.ID
	_, err = s.CreateStream(ctx, second)
	require.ErrorIs(t, err, paystream.ErrDuplicateID)

	got, err := s.GetStream(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, types.Amount(100), got.Deposit)
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	missing := id.NewStreamID()

	_, err := s.GetStream(ctx, missing)
	require.ErrorIs(t, err, paystream.ErrStreamNotFound)
	assert.True(t, paystream.IsNotFound(err))

	called := false
	_, err = s.UpdateStream(ctx, missing, func(*stream.Stream) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, paystream.ErrStreamNotFound)
	assert.False(t, called)
}

func testUpdateCommits(t *testing.T, s store.Store) {
	ctx := context.Background()
	streamID, err := s.CreateStream(ctx, NewStream("alice", "bob", 3600))
	require.NoError(t, err)

	updated, err := s.UpdateStream(ctx, streamID, func(st *stream.Stream) error {
		st.Withdrawn = 1800
		st.TouchAt(T0 + 1800)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.Amount(1800), updated.Withdrawn)
	assert.Equal(t, int64(1), updated.Version)

	updated, err = s.UpdateStream(ctx, streamID, func(st *stream.Stream) error {
		st.Withdrawn = st.Deposit
		st.Status = stream.StatusCompleted
		st.CompletedAt = T0 + 3600
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	got, err := s.GetStream(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(3600), got.Withdrawn)
	assert.Equal(t, stream.StatusCompleted, got.Status)
	assert.Equal(t, T0+3600, got.CompletedAt)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, T0+1800, got.UpdatedAt.Unix())
}

func testUpdateAborts(t *testing.T, s store.Store) {
	ctx := context.Background()
	streamID, err := s.CreateStream(ctx, NewStream("alice", "bob", 3600))
	require.NoError(t, err)

	errStop := errors.New("stop")
	_, err = s.UpdateStream(ctx, streamID, func(st *stream.Stream) error {
		st.Withdrawn = 100
		return errStop
	})
	require.ErrorIs(t, err, errStop)

	got, err := s.GetStream(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(0), got.Withdrawn)
	assert.Equal(t, int64(0), got.Version)
}

func testIdentityImmutable(t *testing.T, s store.Store) {
	ctx := context.Background()
	streamID, err := s.CreateStream(ctx, NewStream("alice", "bob", 3600))
	require.NoError(t, err)

	_, err = s.UpdateStream(ctx, streamID, func(st *stream.Stream) error {
		st.Recipient = "mallory"
		return nil
	})
	require.ErrorIs(t, err, paystream.ErrInvariant)

	got, err := s.GetStream(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Recipient)
}

func testConcurrentUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	streamID, err := s.CreateStream(ctx, NewStream("alice", "bob", 3600))
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateStream(ctx, streamID, func(st *stream.Stream) error {
				st.Withdrawn++
				return nil
			})
			// Optimistic backends may give up under heavy contention; that
			// must never lose or double-apply an update.
			if err != nil && !errors.Is(err, paystream.ErrConflict) {
				t.Errorf("update: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.GetStream(ctx, streamID)
	require.NoError(t, err)
	assert.Positive(t, succeeded)
	assert.Equal(t, types.Amount(succeeded), got.Withdrawn)
	assert.Equal(t, succeeded, got.Version)
}

func seedAccounts(t *testing.T, s store.Store) []id.StreamID {
	t.Helper()
	ctx := context.Background()

	var ids []id.StreamID
	for i := range 5 {
		recipient := "bob"
		if i%2 == 1 {
			recipient = "carol"
		}
		streamID, err := s.CreateStream(ctx, NewStream("alice", recipient, types.Amount(100*(i+1))))
		require.NoError(t, err)
		ids = append(ids, streamID)
	}
	_, err := s.CreateStream(ctx, NewStream("dave", "bob", 42))
	require.NoError(t, err)

	_, err = s.UpdateStream(ctx, ids[1], func(st *stream.Stream) error {
		st.Status = stream.StatusCanceled
		st.CanceledAt = T0
		st.SenderSettlement = st.Deposit
		return nil
	})
	require.NoError(t, err)
	return ids
}

func testListBySender(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := seedAccounts(t, s)

	all, err := s.ListStreamsBySender(ctx, "alice", stream.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, st := range all {
		assert.Equal(t, ids[i], st.ID, "creation order at %d", i)
	}

	page, err := s.ListStreamsBySender(ctx, "alice", stream.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	tail, err := s.ListStreamsBySender(ctx, "alice", stream.ListOpts{Offset: 3})
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, ids[3], tail[0].ID)

	active, err := s.ListStreamsBySender(ctx, "alice", stream.ListOpts{Status: stream.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 4)

	canceled, err := s.ListStreamsBySender(ctx, "alice", stream.ListOpts{Status: stream.StatusCanceled})
	require.NoError(t, err)
	require.Len(t, canceled, 1)
	assert.Equal(t, ids[1], canceled[0].ID)

	none, err := s.ListStreamsBySender(ctx, "nobody", stream.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testListByRecipient(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedAccounts(t, s)

	bob, err := s.ListStreamsByRecipient(ctx, "bob", stream.ListOpts{})
	require.NoError(t, err)
	require.Len(t, bob, 4)
	senders := make([]string, len(bob))
	for i, st := range bob {
		senders[i] = st.Sender
	}
	assert.Equal(t, []string{"alice", "alice", "alice", "dave"}, senders)

	carol, err := s.ListStreamsByRecipient(ctx, "carol", stream.ListOpts{Status: stream.StatusActive})
	require.NoError(t, err)
	require.Len(t, carol, 1)
	assert.Equal(t, types.Amount(400), carol[0].Deposit)
}

func testClosed(t *testing.T, s store.Store) {
	ctx := context.Background()
	streamID, err := s.CreateStream(ctx, NewStream("alice", "bob", 100))
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Close())

	_, err = s.GetStream(ctx, streamID)
	require.ErrorIs(t, err, paystream.ErrStoreClosed)
	_, err = s.CreateStream(ctx, NewStream("alice", "bob", 100))
	require.ErrorIs(t, err, paystream.ErrStoreClosed)
	require.ErrorIs(t, s.Ping(ctx), paystream.ErrStoreClosed)
}
