package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/store/memory"
	"github.com/xraph/paystream/store/storetest"
	"github.com/xraph/paystream/stream"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestLenCountsCreatedStreams(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	assert.Equal(t, 0, s.Len())

	for range 3 {
		_, err := s.CreateStream(ctx, storetest.NewStream("alice", "bob", 100))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Len())
}

func TestNegativePagingIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, err := s.CreateStream(ctx, storetest.NewStream("alice", "bob", 100))
	require.NoError(t, err)

	got, err := s.ListStreamsBySender(ctx, "alice", stream.ListOpts{Limit: -1, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.ListStreamsBySender(ctx, "alice", stream.ListOpts{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}
