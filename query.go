package paystream

import (
	"context"

	"github.com/samber/lo"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/stream"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// StreamsBySender returns the ids of every stream sent by account, in
// creation order. An unknown account yields an empty slice.
func (e *Engine) StreamsBySender(ctx context.Context, account string) ([]id.StreamID, error) {
	streams, err := e.store.ListStreamsBySender(ctx, account, stream.ListOpts{})
	if err != nil {
		return nil, err
	}
	return streamIDs(streams), nil
}

// StreamsByRecipient returns the ids of every stream paying account, in
// creation order. An unknown account yields an empty slice.
func (e *Engine) StreamsByRecipient(ctx context.Context, account string) ([]id.StreamID, error) {
	streams, err := e.store.ListStreamsByRecipient(ctx, account, stream.ListOpts{})
	if err != nil {
		return nil, err
	}
	return streamIDs(streams), nil
}

// IsActive reports whether the stream still accepts withdrawals.
func (e *Engine) IsActive(ctx context.Context, streamID id.StreamID) (bool, error) {
	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return false, err
	}
	return s.IsActive(), nil
}

// CurrentBalance returns the sender and recipient balances at now.
func (e *Engine) CurrentBalance(ctx context.Context, streamID id.StreamID, now int64) (stream.Balance, error) {
	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return stream.Balance{}, err
	}
	return stream.Compute(s, now)
}

// GetStream returns a copy of the stream record.
func (e *Engine) GetStream(ctx context.Context, streamID id.StreamID) (*stream.Stream, error) {
	return e.store.GetStream(ctx, streamID)
}

// ListStreamsBySender returns copies of the sender's streams filtered and
// paged by opts.
func (e *Engine) ListStreamsBySender(ctx context.Context, account string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return e.store.ListStreamsBySender(ctx, account, opts)
}

// ListStreamsByRecipient returns copies of the recipient's streams filtered
// and paged by opts.
func (e *Engine) ListStreamsByRecipient(ctx context.Context, account string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return e.store.ListStreamsByRecipient(ctx, account, opts)
}

func streamIDs(streams []*stream.Stream) []id.StreamID {
	return lo.Map(streams, func(s *stream.Stream, _ int) id.StreamID {
		return s.ID
	})
}
