// Package dashboard renders read-only HTML views of streams with forgeui
// components.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
	"github.com/xraph/forgeui/components/badge"
	"github.com/xraph/forgeui/components/card"
	"github.com/xraph/forgeui/components/progress"

	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

// StreamView is a stream together with its balances at one instant.
type StreamView struct {
	Stream  *stream.Stream
	Balance stream.Balance
	// Decimals is the number of fractional digits used to format amounts.
	Decimals int
}

// NewStreamView computes the balances of s at now.
func NewStreamView(s *stream.Stream, now int64) (StreamView, error) {
	bal, err := stream.Compute(s, now)
	if err != nil {
		return StreamView{}, err
	}
	return StreamView{Stream: s, Balance: bal}, nil
}

// Percent returns how much of the deposit has streamed, in whole percent.
func (v StreamView) Percent() int {
	if v.Stream == nil || v.Stream.Deposit <= 0 {
		return 0
	}
	p, err := v.Balance.Entitled.MulDiv(100, v.Stream.Deposit.Int64())
	if err != nil {
		return 0
	}
	return int(p.Int64())
}

// StreamCard renders v as a forgeui card: a status badge, a progress bar
// of the streamed share, and the balance table.
func StreamCard(v StreamView) templ.Component {
	s := v.Stream

	header := nest(card.Header(),
		nest(card.Title(), text("Stream "+s.ID.String())),
		nest(card.Description(), text(s.Sender+" to "+s.Recipient)),
	)

	content := nest(card.Content(card.ContentProps{Class: "space-y-4"}),
		nest(badge.Badge(badge.Props{Variant: statusVariant(s.Status)}), text(string(s.Status))),
		progress.Progress(progress.Props{
			Max:       100,
			Value:     v.Percent(),
			Label:     "Streamed",
			ShowValue: true,
			Variant:   progressVariant(s.Status),
		}),
		table(
			row("Deposit", v.amount(s.Deposit)),
			row("Rate per second", v.amount(s.RatePerSecond)),
			row("Streamed", v.amount(v.Balance.Entitled)),
			row("Withdrawn", v.amount(s.Withdrawn)),
			row("Recipient balance", v.amount(v.Balance.Recipient)),
			row("Sender balance", v.amount(v.Balance.Sender)),
			row("Start", formatTime(s.StartTime)),
			row("Stop", formatTime(s.StopTime)),
		),
	)

	parts := []templ.Component{header, content}
	if s.Status == stream.StatusCanceled {
		parts = append(parts, nest(card.Footer(),
			text(fmt.Sprintf("Canceled at %s: %s returned to %s, %s paid to %s",
				formatTime(s.CanceledAt),
				v.amount(s.SenderSettlement), s.Sender,
				v.amount(s.RecipientSettlement), s.Recipient,
			)),
		))
	}

	return nest(card.Card(card.Props{ID: "stream-" + s.ID.String()}), parts...)
}

func (v StreamView) amount(a types.Amount) string {
	return a.FormatDecimal(v.Decimals)
}

func statusVariant(st stream.Status) badge.Variant {
	switch st {
	case stream.StatusActive:
		return badge.VariantDefault
	case stream.StatusCanceled:
		return badge.VariantDestructive
	default:
		return badge.VariantSecondary
	}
}

func progressVariant(st stream.Status) progress.Variant {
	switch st {
	case stream.StatusCompleted:
		return progress.VariantSuccess
	case stream.StatusCanceled:
		return progress.VariantWarning
	default:
		return progress.VariantDefault
	}
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// ──────────────────────────────────────────────────
// Composition helpers
// ──────────────────────────────────────────────────

// nest renders parent with children as its templ children.
func nest(parent templ.Component, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return parent.Render(templ.WithChildren(ctx, templ.Join(children...)), w)
	})
}

func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

func table(rows ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<dl class="grid grid-cols-2 gap-x-4 gap-y-1 text-sm">`); err != nil {
			return err
		}
		if err := templ.Join(rows...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</dl>`)
		return err
	})
}

func row(label, value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<dt class="text-muted-foreground">%s</dt><dd class="text-right font-mono">%s</dd>`,
			templ.EscapeString(label), templ.EscapeString(value))
		return err
	})
}
