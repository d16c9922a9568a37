package audithook

// Action constants for audit events.
const (
	ActionStreamCreated   = "stream.created"
	ActionStreamWithdrawn = "stream.withdrawn"
	ActionStreamCanceled  = "stream.canceled"
	ActionStreamCompleted = "stream.completed"
)

// Resource constants for audit events.
const (
	ResourceStream = "stream"
)

// Category constants for audit events.
const (
	CategoryStreaming = "streaming"
	CategoryPayment   = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
