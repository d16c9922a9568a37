package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/stream"
)

// Collection name constants.
const (
	colStreams = "paystream_streams"
)

// maxUpdateAttempts bounds the optimistic retry loop in UpdateStream.
const maxUpdateAttempts = 8

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	closed atomic.Bool

	// seqMu orders inserts made through this store; seq is the last value
	// handed out.
	seqMu sync.Mutex
	seq   int64
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the paystream collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("paystream/mongo: migrate %s indexes: %w", col, err)
		}
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

	_, err := s.mdb.NewInsert(toStreamModel(rec, s.nextSeq())).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return id.Nil, fmt.Errorf("%w: %s", paystream.ErrDuplicateID, rec.ID)
		}
		return id.Nil, fmt.Errorf("paystream/mongo: create stream: %w", err)
	}
	return rec.ID, nil
}

func (s *Store) GetStream(ctx context.Context, streamID id.StreamID) (*stream.Stream, error) {
	m, err := s.getModel(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return fromStreamModel(m)
}

// UpdateStream applies fn to the current document and replaces it only if
// its version is unchanged, retrying against a fresh read otherwise.
func (s *Store) UpdateStream(ctx context.Context, streamID id.StreamID, fn stream.MutateFunc) (*stream.Stream, error) {
	for range maxUpdateAttempts {
		m, err := s.getModel(ctx, streamID)
		if err != nil {
			return nil, err
		}
		cur, err := fromStreamModel(m)
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

		res, err := s.mdb.NewUpdate(toStreamModel(next, m.Seq)).
			Filter(bson.M{"_id": m.ID, "version": cur.Version}).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("paystream/mongo: update stream: %w", err)
		}
		if res.MatchedCount() == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("%w: stream %s", paystream.ErrConflict, streamID)
}

func (s *Store) ListStreamsBySender(ctx context.Context, sender string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return s.list(ctx, bson.M{"sender": sender}, opts)
}

func (s *Store) ListStreamsByRecipient(ctx context.Context, recipient string, opts stream.ListOpts) ([]*stream.Stream, error) {
	return s.list(ctx, bson.M{"recipient": recipient}, opts)
}

func (s *Store) list(ctx context.Context, filter bson.M, opts stream.ListOpts) ([]*stream.Stream, error) {
	if s.closed.Load() {
		return nil, paystream.ErrStoreClosed
	}

	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []streamModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("paystream/mongo: list streams: %w", err)
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

func (s *Store) getModel(ctx context.Context, streamID id.StreamID) (*streamModel, error) {
	if s.closed.Load() {
		return nil, paystream.ErrStoreClosed
	}

	var m streamModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": streamID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", paystream.ErrStreamNotFound, streamID)
		}
		return nil, fmt.Errorf("paystream/mongo: get stream: %w", err)
	}
	return &m, nil
}

// nextSeq returns a strictly increasing insertion sequence. It follows the
// wall clock so that sequences from separate processes interleave roughly
// in creation order.
func (s *Store) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq = max(time.Now().UnixNano(), s.seq+1)
	return s.seq
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all paystream collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colStreams: {
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "_id", Value: 1}, {Key: "version", Value: 1}},
				Options: options.Index().SetName("idx_paystream_streams_version"),
			},
		},
	}
}
