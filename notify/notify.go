// Package notify publishes stream change events to Redis pub/sub so that
// front ends can refresh balances without polling.
//
// Every event is published as JSON on two kinds of channel:
//
//	<prefix>:stream:<stream id>
//	<prefix>:account:<sender>
//	<prefix>:account:<recipient>
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/xraph/paystream/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Notifier)(nil)
	_ plugin.OnStreamCreated   = (*Notifier)(nil)
	_ plugin.OnStreamWithdrawn = (*Notifier)(nil)
	_ plugin.OnStreamCanceled  = (*Notifier)(nil)
	_ plugin.OnStreamCompleted = (*Notifier)(nil)
)

// DefaultPrefix namespaces channel names.
const DefaultPrefix = "paystream"

// Publisher is the subset of *redis.Client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Message is the payload published for each event.
type Message struct {
	Event *plugin.StreamEvent `json:"event"`
}

// Notifier is a plugin that fans stream events out to Redis channels.
type Notifier struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(n *Notifier) {
		n.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// New creates a Notifier publishing through pub.
func New(pub Publisher, opts ...Option) *Notifier {
	n := &Notifier{
		pub:    pub,
		prefix: DefaultPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewClient connects to the Redis server at addr and returns a Notifier
// over it. The caller owns the returned client.
func NewClient(ctx context.Context, addr, password string, db int, opts ...Option) (*Notifier, *redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("notify: ping redis %s: %w", addr, err)
	}
	return New(rc, opts...), rc, nil
}

// Name implements plugin.Plugin.
func (n *Notifier) Name() string { return "redis-notify" }

// StreamChannel returns the channel carrying events for one stream.
func (n *Notifier) StreamChannel(streamID string) string {
	return n.prefix + ":stream:" + streamID
}

// AccountChannel returns the channel carrying events for one account.
func (n *Notifier) AccountChannel(account string) string {
	return n.prefix + ":account:" + account
}

// OnStreamCreated implements plugin.OnStreamCreated.
func (n *Notifier) OnStreamCreated(ctx context.Context, evt *plugin.StreamEvent) error {
	return n.publish(ctx, evt)
}

// OnStreamWithdrawn implements plugin.OnStreamWithdrawn.
func (n *Notifier) OnStreamWithdrawn(ctx context.Context, evt *plugin.StreamEvent) error {
	return n.publish(ctx, evt)
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (n *Notifier) OnStreamCanceled(ctx context.Context, evt *plugin.StreamEvent) error {
	return n.publish(ctx, evt)
}

// OnStreamCompleted implements plugin.OnStreamCompleted.
func (n *Notifier) OnStreamCompleted(ctx context.Context, evt *plugin.StreamEvent) error {
	return n.publish(ctx, evt)
}

func (n *Notifier) publish(ctx context.Context, evt *plugin.StreamEvent) error {
	if evt == nil || evt.Stream == nil {
		return nil
	}

	payload, err := json.Marshal(Message{Event: evt})
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", evt.Type, err)
	}

	channels := []string{
		n.StreamChannel(evt.Stream.ID.String()),
		n.AccountChannel(evt.Stream.Sender),
		n.AccountChannel(evt.Stream.Recipient),
	}

	var firstErr error
	for _, ch := range channels {
		if err := n.pub.Publish(ctx, ch, payload).Err(); err != nil {
			n.logger.Warn("notify: publish failed",
				"channel", ch,
				"event", string(evt.Type),
				"error", err,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("notify: publish %s: %w", ch, err)
			}
		}
	}
	return firstErr
}
