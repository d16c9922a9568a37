package stream

import (
	"context"
	"fmt"

	"github.com/xraph/paystream/id"
)

// Store persists stream records. Records are never removed.
type Store interface {
	// CreateStream inserts s, assigning a fresh ID when s.ID is nil.
	// An existing ID is never overwritten.
	CreateStream(ctx context.Context, s *Stream) (id.StreamID, error)

	// GetStream returns a copy of the stream.
	GetStream(ctx context.Context, streamID id.StreamID) (*Stream, error)

	// UpdateStream applies fn to a copy of the stream atomically with respect
	// to other mutations of the same id. When fn returns an error nothing is
	// committed and that error is returned unchanged. On success the
	// committed copy is returned.
	UpdateStream(ctx context.Context, streamID id.StreamID, fn MutateFunc) (*Stream, error)

	ListStreamsBySender(ctx context.Context, sender string, opts ListOpts) ([]*Stream, error)
	ListStreamsByRecipient(ctx context.Context, recipient string, opts ListOpts) ([]*Stream, error)
}

// MutateFunc edits a stream in place inside an atomic update.
type MutateFunc func(s *Stream) error

// ListOpts filters and pages stream listings. Results are in creation order.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}

// CheckIdentity rejects a mutation that changed who a stream belongs to.
// Stores call it after running a MutateFunc and before committing.
func CheckIdentity(prev, next *Stream) error {
	if next.ID != prev.ID || next.Sender != prev.Sender || next.Recipient != prev.Recipient {
		return fmt.Errorf("%w: stream %s: identity fields are immutable", ErrInvariant, prev.ID)
	}
	return nil
}
