package stream

import (
	"errors"
	"fmt"

	"github.com/xraph/paystream/types"
)

// ErrInvariant is returned when a stream record is internally inconsistent,
// e.g. Withdrawn exceeds Deposit. It indicates corrupted state.
var ErrInvariant = errors.New("paystream: stream invariant violated")

// Balance is the split of a stream's value at one instant.
//
// Sender + Recipient + Withdrawn == Deposit always holds.
type Balance struct {
	// Sender is the part of the deposit not yet entitled to the recipient.
	Sender types.Amount `json:"sender"`
	// Recipient is the entitled part not yet withdrawn.
	Recipient types.Amount `json:"recipient"`
	// Entitled is the cumulative amount earned by the recipient.
	Entitled  types.Amount `json:"entitled"`
	Withdrawn types.Amount `json:"withdrawn"`
	// At is the logical time the balance was computed for.
	At int64 `json:"at"`
}

// Entitled returns the cumulative amount the recipient has earned at now,
// ignoring withdrawals: 0 before StartTime, Deposit from StopTime on, and
// floor(Deposit * elapsed / duration) in between. The product is formed in
// 128 bits before dividing.
func Entitled(s *Stream, now int64) (types.Amount, error) {
	if err := check(s); err != nil {
		return 0, err
	}

	switch {
	case now <= s.StartTime:
		return 0, nil
	case now >= s.StopTime:
		return s.Deposit, nil
	}

	entitled, err := s.Deposit.MulDiv(now-s.StartTime, s.Duration())
	if err != nil {
		return 0, fmt.Errorf("stream %s: entitlement: %w", s.ID, err)
	}
	return entitled, nil
}

// Compute returns the sender and recipient balances of s at now.
//
// A canceled stream is frozen at CanceledAt. If now falls before a point the
// recipient has already withdrawn up to (the caller's clock went backwards),
// the recipient balance is zero rather than negative.
func Compute(s *Stream, now int64) (Balance, error) {
	at := now
	if s != nil && s.Status == StatusCanceled && now > s.CanceledAt {
		at = s.CanceledAt
	}

	entitled, err := Entitled(s, at)
	if err != nil {
		return Balance{}, err
	}
	if entitled < s.Withdrawn {
		entitled = s.Withdrawn
	}

	b := Balance{
		Sender:    s.Deposit - entitled,
		Recipient: entitled - s.Withdrawn,
		Entitled:  entitled,
		Withdrawn: s.Withdrawn,
		At:        now,
	}
	if b.Sender < 0 || b.Recipient < 0 || b.Sender+b.Recipient+b.Withdrawn != s.Deposit {
		return Balance{}, fmt.Errorf("%w: stream %s balance %+v", ErrInvariant, s.ID, b)
	}
	return b, nil
}

// check rejects records whose stored fields cannot describe a valid stream.
func check(s *Stream) error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil stream", ErrInvariant)
	case s.Deposit <= 0:
		return fmt.Errorf("%w: stream %s deposit %d", ErrInvariant, s.ID, s.Deposit)
	case s.StopTime <= s.StartTime:
		return fmt.Errorf("%w: stream %s window [%d, %d]", ErrInvariant, s.ID, s.StartTime, s.StopTime)
	case s.Withdrawn < 0 || s.Withdrawn > s.Deposit:
		return fmt.Errorf("%w: stream %s withdrawn %d of %d", ErrInvariant, s.ID, s.Withdrawn, s.Deposit)
	}
	return nil
}
