package paystream

import "github.com/xraph/paystream/id"

// ID is the primary identifier type for paystream records.
type ID = id.ID

// StreamID identifies a payment stream.
type StreamID = id.StreamID

// ParseStreamID parses a "strm_..." string.
var ParseStreamID = id.ParseStreamID
