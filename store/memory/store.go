// Package memory provides an in-process Store. It is the reference backend
// for tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/stream"
)

var _ store.Store = (*Store)(nil)

// entry guards one stream record. Its mutex serializes mutations of that
// record only, so streams never block each other.
type entry struct {
	mu sync.Mutex
	s  *stream.Stream
}

type Store struct {
	// mu guards the maps and index slices, never a record's contents.
	mu     sync.RWMutex
	closed bool

	streams     map[id.StreamID]*entry
	bySender    map[string][]id.StreamID
	byRecipient map[string][]id.StreamID
}

func New() *Store {
	return &Store{
		streams:     make(map[id.StreamID]*entry),
		bySender:    make(map[string][]id.StreamID),
		byRecipient: make(map[string][]id.StreamID),
	}
}

// CreateStream inserts a copy of s.
func (m *Store) CreateStream(_ context.Context, s *stream.Stream) (id.StreamID, error) {
	rec := s.Clone()
	if rec.ID.IsNil() {
		rec.ID = id.NewStreamID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return id.Nil, paystream.ErrStoreClosed
	}
	if _, exists := m.streams[rec.ID]; exists {
		return id.Nil, fmt.Errorf("%w: %s", paystream.ErrDuplicateID, rec.ID)
	}

	m.streams[rec.ID] = &entry{s: rec}
	m.bySender[rec.Sender] = append(m.bySender[rec.Sender], rec.ID)
	m.byRecipient[rec.Recipient] = append(m.byRecipient[rec.Recipient], rec.ID)
	return rec.ID, nil
}

func (m *Store) GetStream(_ context.Context, streamID id.StreamID) (*stream.Stream, error) {
	e, err := m.lookup(streamID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

// UpdateStream runs fn on a copy under the record's lock and swaps the copy
// in only when fn succeeds.
func (m *Store) UpdateStream(_ context.Context, streamID id.StreamID, fn stream.MutateFunc) (*stream.Stream, error) {
	e, err := m.lookup(streamID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.s.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := stream.CheckIdentity(e.s, next); err != nil {
		return nil, err
	}

	next.Version = e.s.Version + 1
	e.s = next
	return next.Clone(), nil
}

func (m *Store) ListStreamsBySender(_ context.Context, sender string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return m.list(m.bySender, sender, opts)
}

func (m *Store) ListStreamsByRecipient(_ context.Context, recipient string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return m.list(m.byRecipient, recipient, opts)
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error {
	return nil
}

func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return paystream.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored streams.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

func (m *Store) lookup(streamID id.StreamID) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, paystream.ErrStoreClosed
	}
	e, ok := m.streams[streamID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", paystream.ErrStreamNotFound, streamID)
	}
	return e, nil
}

func (m *Store) list(index map[string][]id.StreamID, account string, opts stream.ListOpts) ([]*stream.Stream, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, paystream.ErrStoreClosed
	}
	ids := index[account]
	entries := make([]*entry, 0, len(ids))
	for _, sid := range ids {
		entries = append(entries, m.streams[sid])
	}
	m.mu.RUnlock()

	result := make([]*stream.Stream, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		s := e.s.Clone()
		e.mu.Unlock()

		if opts.Status == "" || s.Status == opts.Status {
			result = append(result, s)
		}
	}

	// Apply limit/offset
	start := max(opts.Offset, 0)
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit <= 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}
