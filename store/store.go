// Package store defines the storage contract shared by every paystream
// backend.
package store

import (
	"context"

	"github.com/xraph/paystream/stream"
)

// Store is the unified storage interface for paystream. Implementations
// must apply UpdateStream atomically per stream id and must never block
// mutations of one stream on another.
type Store interface {
	stream.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
