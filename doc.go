// Package paystream provides a payment streaming engine for Go applications.
//
// A stream is a continuous, per-second linear transfer of value from a sender
// to a recipient. The sender locks a deposit up front; the recipient earns it
// second by second between the start and stop times, withdraws incrementally,
// and either party may cancel with a fair split of what remains.
//
// Paystream is designed as a library, not a service. It provides:
//
//   - Exact integer balance arithmetic with 128-bit intermediate products
//   - Per-stream atomic create, withdraw and cancel
//   - Pluggable stores (memory, PostgreSQL, SQLite, MongoDB via Grove)
//   - Change events for audit trails, metrics and push notifiers
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/paystream"
//	    "github.com/xraph/paystream/store/memory"
//	)
//
//	engine := paystream.New(memory.New())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	streamID, err := engine.Create(ctx, paystream.CreateParams{
//	    Sender:    "alice",
//	    Recipient: "bob",
//	    StartTime: now,
//	    StopTime:  now + 3600,
//	    Deposit:   3600,
//	}, now)
//
//	// Half an hour later bob has earned 1800.
//	bal, _ := engine.CurrentBalance(ctx, streamID, now+1800)
//	amount, _ := engine.WithdrawMax(ctx, streamID, "bob", now+1800)
//
// # Logical Time
//
// The engine never reads a wall clock. Every time-dependent call takes now as
// unix seconds, so balances are deterministic and replayable.
//
// # Balances
//
// Entitlement at now is floor(deposit * elapsed / duration), formed before the
// division so that no remainder is lost. At every instant
//
//	sender + recipient + withdrawn == deposit
//
// and neither balance is negative.
//
// # TypeID
//
// Streams use TypeID identifiers:
//
//	strm_01h2xcejqtf2nbrexx3vqjhp41
//
// TypeIDs are K-sortable, making them ideal for database indexes.
package paystream
