package paystream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/plugin"
	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

// Engine is the payment streaming engine. It is the only writer to its
// store. All methods are safe for concurrent use.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates a new Engine backed by s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		validate: newValidator(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("paystream started",
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	e.logger.Info("paystream stopped")

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────

// CreateParams describes a new stream. Times are unix seconds.
type CreateParams struct {
	Sender    string            `json:"sender" validate:"required"`
	Recipient string            `json:"recipient" validate:"required,nefield=Sender"`
	StartTime int64             `json:"start_time" validate:"gte=0"`
	StopTime  int64             `json:"stop_time" validate:"gtfield=StartTime"`
	Deposit   types.Amount      `json:"deposit" validate:"gt=0"`
	Metadata  map[string]string `json:"metadata,omitempty" validate:"omitempty,max=32,dive,keys,required,max=64,endkeys,max=1024"`
}

// Create validates p and records a new active stream. now is the caller's
// logical time; StartTime may not precede it.
func (e *Engine) Create(ctx context.Context, p CreateParams, now int64) (id.StreamID, error) {
	if err := e.validateCreate(p, now); err != nil {
		return id.Nil, err
	}

	s := &stream.Stream{
		Entity:        types.NewEntityAt(now),
		Sender:        p.Sender,
		Recipient:     p.Recipient,
		Deposit:       p.Deposit,
		RatePerSecond: stream.RateFor(p.Deposit, p.StartTime, p.StopTime),
		StartTime:     p.StartTime,
		StopTime:      p.StopTime,
		Status:        stream.StatusActive,
		Metadata:      maps.Clone(p.Metadata),
	}

	if err := e.plugins.GuardCreate(ctx, s); err != nil {
		return id.Nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	streamID, err := e.store.CreateStream(ctx, s)
	if err != nil {
		if errors.Is(err, ErrDuplicateID) {
			e.logger.Error("stream id collision", "error", err)
		}
		return id.Nil, err
	}
	s.ID = streamID

	e.logger.Debug("stream created",
		"stream_id", streamID.String(),
		"sender", s.Sender,
		"recipient", s.Recipient,
		"deposit", s.Deposit.String(),
		"start_time", s.StartTime,
		"stop_time", s.StopTime,
	)

	e.plugins.EmitStreamCreated(ctx, plugin.NewStreamEvent(plugin.EventCreated, s, s.Sender, now))
	return streamID, nil
}

func (e *Engine) validateCreate(p CreateParams, now int64) error {
	var errs MultiError

	if err := e.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		for _, fe := range verrs {
			errs.Add(ValidationError{Field: fe.Field(), Message: describe(fe)})
		}
	}

	if p.StartTime < now {
		errs.Add(ValidationError{Field: "start_time", Message: fmt.Sprintf("must not be before now (%d)", now)})
	}

	if len(errs.Errors) == 1 {
		return errs.First()
	}
	return errs.ErrorOrNil()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe renders a validator failure as a short message.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "nefield":
		return "must differ from sender"
	case "gtfield":
		return "must be after start_time"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// ──────────────────────────────────────────────────
// Withdraw
// ──────────────────────────────────────────────────

// errNothingToWithdraw aborts an update that would not change the record.
var errNothingToWithdraw = errors.New("paystream: nothing to withdraw")

// Withdraw moves amount from the recipient's balance into Withdrawn and
// returns it. Only the recipient may withdraw. amount must be positive and
// at most the current balance.
func (e *Engine) Withdraw(ctx context.Context, streamID id.StreamID, caller string, amount types.Amount, now int64) (types.Amount, error) {
	if amount <= 0 {
		return 0, ValidationError{Field: "amount", Message: "must be greater than 0"}
	}
	return e.withdraw(ctx, streamID, caller, amount, now)
}

// WithdrawMax withdraws the recipient's entire current balance. When the
// balance is zero it returns 0 and commits nothing.
func (e *Engine) WithdrawMax(ctx context.Context, streamID id.StreamID, caller string, now int64) (types.Amount, error) {
	return e.withdraw(ctx, streamID, caller, 0, now)
}

// withdraw runs the withdrawal inside the store's atomic update. A zero
// requested amount means "everything available".
func (e *Engine) withdraw(ctx context.Context, streamID id.StreamID, caller string, requested types.Amount, now int64) (types.Amount, error) {
	var (
		withdrawn types.Amount
		completed bool
	)

	updated, err := e.store.UpdateStream(ctx, streamID, func(s *stream.Stream) error {
		// The store may re-run fn after a lost race.
		withdrawn, completed = 0, false

		if caller != s.Recipient {
			return fmt.Errorf("%w: %q is not the recipient of stream %s", ErrUnauthorized, caller, s.ID)
		}
		if !s.IsActive() {
			return fmt.Errorf("%w: stream %s is %s", ErrInactive, s.ID, s.Status)
		}

		bal, err := stream.Compute(s, now)
		if err != nil {
			return err
		}

		amount := requested
		if amount == 0 {
			amount = bal.Recipient
		}
		if amount > bal.Recipient {
			return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, amount, bal.Recipient)
		}
		if amount == 0 {
			return errNothingToWithdraw
		}

		total, err := s.Withdrawn.Add(amount)
		if err != nil {
			return err
		}
		s.Withdrawn = total
		s.TouchAt(now)

		if s.Withdrawn == s.Deposit && now >= s.StopTime {
			s.Status = stream.StatusCompleted
			s.CompletedAt = now
			completed = true
		}

		withdrawn = amount
		return nil
	})
	if errors.Is(err, errNothingToWithdraw) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	e.logger.Debug("stream withdrawn",
		"stream_id", streamID.String(),
		"amount", withdrawn.String(),
		"withdrawn", updated.Withdrawn.String(),
		"completed", completed,
	)

	evt := plugin.NewStreamEvent(plugin.EventWithdrawn, updated, caller, now)
	evt.Amount = withdrawn
	e.plugins.EmitStreamWithdrawn(ctx, evt)

	if completed {
		e.plugins.EmitStreamCompleted(ctx, plugin.NewStreamEvent(plugin.EventCompleted, updated.Clone(), caller, now))
	}

	return withdrawn, nil
}

// ──────────────────────────────────────────────────
// Cancel
// ──────────────────────────────────────────────────

// Cancel terminates an active stream. Either party may cancel. The
// recipient's outstanding balance is settled into Withdrawn and the
// unentitled remainder is returned as the sender's settlement.
func (e *Engine) Cancel(ctx context.Context, streamID id.StreamID, caller string, now int64) (stream.Settlement, error) {
	var settlement stream.Settlement

	updated, err := e.store.UpdateStream(ctx, streamID, func(s *stream.Stream) error {
		if caller != s.Sender && caller != s.Recipient {
			return fmt.Errorf("%w: %q is not a party to stream %s", ErrUnauthorized, caller, s.ID)
		}
		if !s.IsActive() {
			return fmt.Errorf("%w: stream %s is %s", ErrInactive, s.ID, s.Status)
		}

		bal, err := stream.Compute(s, now)
		if err != nil {
			return err
		}

		settlement = stream.Settlement{
			SenderAmount:    bal.Sender,
			RecipientAmount: bal.Recipient,
		}

		s.Withdrawn = bal.Entitled
		s.Status = stream.StatusCanceled
		s.CanceledAt = now
		s.SenderSettlement = settlement.SenderAmount
		s.RecipientSettlement = settlement.RecipientAmount
		s.TouchAt(now)
		return nil
	})
	if err != nil {
		return stream.Settlement{}, err
	}

	e.logger.Debug("stream canceled",
		"stream_id", streamID.String(),
		"canceled_by", caller,
		"sender_settlement", settlement.SenderAmount.String(),
		"recipient_settlement", settlement.RecipientAmount.String(),
	)

	evt := plugin.NewStreamEvent(plugin.EventCanceled, updated, caller, now)
	evt.Amount = settlement.RecipientAmount
	evt.Settlement = &settlement
	e.plugins.EmitStreamCanceled(ctx, evt)

	return settlement, nil
}
