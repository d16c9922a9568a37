package paystream

import (
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

// Re-export common types for convenience so users don't have to import the
// stream and types packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// Stream is re-exported from stream package.
type Stream = stream.Stream

// Balance is re-exported from stream package.
type Balance = stream.Balance

// Settlement is re-exported from stream package.
type Settlement = stream.Settlement

// Status is re-exported from stream package.
type Status = stream.Status

// Re-export stream statuses
const (
	StatusActive    = stream.StatusActive
	StatusCompleted = stream.StatusCompleted
	StatusCanceled  = stream.StatusCanceled
)

// Re-export helpers
var (
	ParseAmount = types.ParseAmount
	Compute     = stream.Compute
)
