// Package audithook bridges paystream lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/paystream/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnStreamCreated   = (*Extension)(nil)
	_ plugin.OnStreamWithdrawn = (*Extension)(nil)
	_ plugin.OnStreamCanceled  = (*Extension)(nil)
	_ plugin.OnStreamCompleted = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges paystream lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, evt *plugin.StreamEvent) error {
	s := evt.Stream
	return e.record(ctx, evt, ActionStreamCreated, SeverityInfo, CategoryStreaming,
		"sender", s.Sender,
		"recipient", s.Recipient,
		"deposit", s.Deposit.String(),
		"start_time", s.StartTime,
		"stop_time", s.StopTime,
	)
}

// OnStreamWithdrawn implements plugin.OnStreamWithdrawn.
func (e *Extension) OnStreamWithdrawn(ctx context.Context, evt *plugin.StreamEvent) error {
	return e.record(ctx, evt, ActionStreamWithdrawn, SeverityInfo, CategoryPayment,
		"amount", evt.Amount.String(),
		"withdrawn", evt.Stream.Withdrawn.String(),
		"version", evt.Stream.Version,
	)
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (e *Extension) OnStreamCanceled(ctx context.Context, evt *plugin.StreamEvent) error {
	kv := []any{"canceled_at", evt.Stream.CanceledAt}
	if evt.Settlement != nil {
		kv = append(kv,
			"sender_settlement", evt.Settlement.SenderAmount.String(),
			"recipient_settlement", evt.Settlement.RecipientAmount.String(),
		)
	}
	return e.record(ctx, evt, ActionStreamCanceled, SeverityWarning, CategoryPayment, kv...)
}

// OnStreamCompleted implements plugin.OnStreamCompleted.
func (e *Extension) OnStreamCompleted(ctx context.Context, evt *plugin.StreamEvent) error {
	return e.record(ctx, evt, ActionStreamCompleted, SeverityInfo, CategoryStreaming,
		"completed_at", evt.Stream.CompletedAt,
		"deposit", evt.Stream.Deposit.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled. Recorder
// failures are logged, never returned: the mutation is already committed.
func (e *Extension) record(
	ctx context.Context,
	evt *plugin.StreamEvent,
	action, severity, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+2)
	meta["event_id"] = evt.ID.String()
	meta["at"] = evt.At
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var resourceID string
	if evt.Stream != nil {
		resourceID = evt.Stream.ID.String()
	}

	ae := &AuditEvent{
		Action:     action,
		Resource:   ResourceStream,
		Category:   category,
		ResourceID: resourceID,
		Actor:      evt.Actor,
		Metadata:   meta,
		Outcome:    OutcomeSuccess,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, ae); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
