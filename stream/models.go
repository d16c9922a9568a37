// Package stream defines the payment stream record and the pure balance
// arithmetic over it.
package stream

import (
	"maps"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Stream is a linear, per-second transfer of Deposit from Sender to
// Recipient between StartTime and StopTime (unix seconds).
type Stream struct {
	types.Entity
	ID            id.StreamID  `json:"id"`
	Sender        string       `json:"sender"`
	Recipient     string       `json:"recipient"`
	Deposit       types.Amount `json:"deposit"`
	RatePerSecond types.Amount `json:"rate_per_second"`
	StartTime     int64        `json:"start_time"`
	StopTime      int64        `json:"stop_time"`
	Withdrawn     types.Amount `json:"withdrawn"`
	Status        Status       `json:"status"`

	// Version increases by one on every committed mutation.
	Version int64 `json:"version"`

	CanceledAt          int64        `json:"canceled_at,omitempty"`
	CompletedAt         int64        `json:"completed_at,omitempty"`
	SenderSettlement    types.Amount `json:"sender_settlement"`
	RecipientSettlement types.Amount `json:"recipient_settlement"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsActive reports whether the stream still accepts withdrawals and
// cancellation.
func (s *Stream) IsActive() bool {
	return s.Status == StatusActive
}

// Duration returns the streaming window length in seconds.
func (s *Stream) Duration() int64 {
	return s.StopTime - s.StartTime
}

// Clone returns a deep copy of the stream.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	c := *s
	if s.Metadata != nil {
		c.Metadata = maps.Clone(s.Metadata)
	}
	return &c
}

// Settlement is the split of a stream's remaining value at cancellation.
type Settlement struct {
	SenderAmount    types.Amount `json:"sender_amount"`
	RecipientAmount types.Amount `json:"recipient_amount"`
}

// RateFor returns floor(deposit / duration). The truncated remainder is
// never lost: entitlement is computed from the deposit directly, and
// whatever is not entitled at cancellation returns to the sender.
func RateFor(deposit types.Amount, startTime, stopTime int64) types.Amount {
	if stopTime <= startTime {
		return 0
	}
	rate, _ := deposit.Div(stopTime - startTime)
	return rate
}
