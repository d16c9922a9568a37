// Package plugin provides an extensible plugin system for paystream.
// Plugins hook into stream lifecycle events after each committed mutation.
package plugin

import (
	"context"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called after a stream is inserted.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, evt *StreamEvent) error
}

// OnStreamWithdrawn is called after a withdrawal is committed.
type OnStreamWithdrawn interface {
	Plugin
	OnStreamWithdrawn(ctx context.Context, evt *StreamEvent) error
}

// OnStreamCanceled is called after a cancellation is committed.
type OnStreamCanceled interface {
	Plugin
	OnStreamCanceled(ctx context.Context, evt *StreamEvent) error
}

// OnStreamCompleted is called when a withdrawal drains a stream after its
// stop time. It fires after the matching OnStreamWithdrawn.
type OnStreamCompleted interface {
	Plugin
	OnStreamCompleted(ctx context.Context, evt *StreamEvent) error
}

// ──────────────────────────────────────────────────
// Extension points
// ──────────────────────────────────────────────────

// CreateGuard can veto stream creation, e.g. to enforce an account
// allow-list or a maximum deposit. It runs before the stream is inserted;
// a non-nil error aborts the creation.
type CreateGuard interface {
	Plugin
	GuardCreate(ctx context.Context, s *stream.Stream) error
}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

// EventType names a stream change.
type EventType string

const (
	EventCreated   EventType = "stream.created"
	EventWithdrawn EventType = "stream.withdrawn"
	EventCanceled  EventType = "stream.canceled"
	EventCompleted EventType = "stream.completed"
)

// StreamEvent describes one committed mutation. Stream is a copy of the
// record as committed; plugins may keep it.
type StreamEvent struct {
	ID     id.EventID     `json:"id"`
	Type   EventType      `json:"type"`
	Stream *stream.Stream `json:"stream"`
	// Actor is the account that triggered the change.
	Actor string `json:"actor"`
	// Amount is the withdrawn amount for withdrawals and the recipient
	// settlement for cancellations. Zero otherwise.
	Amount     types.Amount       `json:"amount"`
	Settlement *stream.Settlement `json:"settlement,omitempty"`
	// At is the logical time supplied by the caller.
	At int64 `json:"at"`
}

// NewStreamEvent builds an event with a fresh id.
func NewStreamEvent(typ EventType, s *stream.Stream, actor string, at int64) *StreamEvent {
	return &StreamEvent{
		ID:     id.NewEventID(),
		Type:   typ,
		Stream: s,
		Actor:  actor,
		At:     at,
	}
}
