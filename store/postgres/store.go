package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/stream"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// maxUpdateAttempts bounds the optimistic retry loop in UpdateStream.
const maxUpdateAttempts = 8

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db     *grove.DB
	pg     *pgdriver.PgDB
	closed atomic.Bool
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("paystream/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("paystream/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return paystream.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// ==================== Stream Store ====================

func (s *Store) CreateStream(ctx context.Context, st *stream.Stream) (id.StreamID, error) {
	if s.closed.Load() {
		return id.Nil, paystream.ErrStoreClosed
	}

	rec := st.Clone()
	if rec.ID.IsNil() {
		rec.ID = id.NewStreamID()
	}

	res, err := s.pg.NewInsert(toStreamModel(rec)).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return id.Nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return id.Nil, err
	}
	if rows == 0 {
		return id.Nil, fmt.Errorf("%w: %s", paystream.ErrDuplicateID, rec.ID)
	}
	return rec.ID, nil
}

func (s *Store) GetStream(ctx context.Context, streamID id.StreamID) (*stream.Stream, error) {
	if s.closed.Load() {
		return nil, paystream.ErrStoreClosed
	}

	m := new(streamModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", streamID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", paystream.ErrStreamNotFound, streamID)
		}
		return nil, err
	}
	return fromStreamModel(m)
}

// UpdateStream reads the current row, applies fn, and commits with a
// compare-and-swap on the version column. A lost race re-reads and re-runs
// fn against the fresh row.
func (s *Store) UpdateStream(ctx context.Context, streamID id.StreamID, fn stream.MutateFunc) (*stream.Stream, error) {
	for range maxUpdateAttempts {
		cur, err := s.GetStream(ctx, streamID)
		if err != nil {
			return nil, err
		}

		next := cur.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		if err := stream.CheckIdentity(cur, next); err != nil {
			return nil, err
		}
		next.Version = cur.Version + 1

		res, err := s.pg.NewUpdate(toStreamModel(next)).
			Where("id = ?", next.ID.String()).
			Where("version = ?", cur.Version).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("%w: stream %s", paystream.ErrConflict, streamID)
}

func (s *Store) ListStreamsBySender(ctx context.Context, sender string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return s.list(ctx, "sender", sender, opts)
}

func (s *Store) ListStreamsByRecipient(ctx context.Context, recipient string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return s.list(ctx, "recipient", recipient, opts)
}

func (s *Store) list(ctx context.Context, column, account string, opts stream.ListOpts) ([]*stream.Stream, error) {
	if s.closed.Load() {
		return nil, paystream.ErrStoreClosed
	}

	var models []streamModel
	q := s.pg.NewSelect(&models).Where(column+" = $1", account)

	if opts.Status != "" {
		q = q.Where("status = $2", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*stream.Stream, len(models))
	for i := range models {
		st, err := fromStreamModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
