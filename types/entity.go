package types

import "time"

// Entity carries the creation and last-modification timestamps of a record.
// Timestamps come from the logical time supplied by the caller, never from
// the wall clock, so replays are deterministic.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at,notnull"`
}

// NewEntityAt creates an Entity stamped with the given unix second.
func NewEntityAt(unixSec int64) Entity {
	t := time.Unix(unixSec, 0).UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// TouchAt moves UpdatedAt to the given unix second. Earlier times are ignored
// so UpdatedAt never runs backwards.
func (e *Entity) TouchAt(unixSec int64) {
	t := time.Unix(unixSec, 0).UTC()
	if t.After(e.UpdatedAt) {
		e.UpdatedAt = t
	}
}

// AgeAt returns how long before unixSec the entity was created.
func (e Entity) AgeAt(unixSec int64) time.Duration {
	return time.Unix(unixSec, 0).Sub(e.CreatedAt)
}

// IsStaleAt reports whether the entity has not been updated within
// staleDuration of unixSec.
func (e Entity) IsStaleAt(unixSec int64, staleDuration time.Duration) bool {
	return time.Unix(unixSec, 0).Sub(e.UpdatedAt) > staleDuration
}
