package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	streamfeestore "github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/subscriber"
)

// Collection name constants.
const (
	colProviders   = "streamfee_providers"
	colSubscribers = "streamfee_subscribers"
)

// compile-time interface check
var _ streamfeestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Commit runs in a multi-document transaction, which MongoDB only offers
// on replica sets and sharded clusters.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
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

// Migrate creates indexes for all streamfee collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("streamfee/mongo: %w: %s indexes: %w", streamfee.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Provider Store ====================

func (s *Store) CreateProvider(ctx context.Context, p *provider.Provider) error {
	m := toProviderModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return streamfee.ErrProviderExists
		}
		return fmt.Errorf("streamfee/mongo: create provider: %w", err)
	}
	return nil
}

func (s *Store) GetProvider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	var m providerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": providerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, streamfee.ErrProviderNotFound
		}
		return nil, fmt.Errorf("streamfee/mongo: get provider: %w", err)
	}
	return fromProviderModel(&m)
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var models []providerModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Owner != "" {
		filter["owner"] = opts.Owner
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamfee/mongo: list providers: %w", err)
	}

	result := make([]*provider.Provider, len(models))
	for i := range models {
		p, err := fromProviderModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Subscriber Store ====================

func (s *Store) CreateSubscriber(ctx context.Context, sub *subscriber.Subscriber) error {
	m := toSubscriberModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return streamfee.ErrSubscriberExists
		}
		return fmt.Errorf("streamfee/mongo: create subscriber: %w", err)
	}
	return nil
}

func (s *Store) GetSubscriber(ctx context.Context, subscriberID id.SubscriberID) (*subscriber.Subscriber, error) {
	var m subscriberModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subscriberID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, streamfee.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("streamfee/mongo: get subscriber: %w", err)
	}
	return fromSubscriberModel(&m)
}

func (s *Store) ListSubscribers(ctx context.Context, opts subscriber.ListOpts) ([]*subscriber.Subscriber, error) {
	var models []subscriberModel

	filter := bson.M{}
	if opts.Owner != "" {
		filter["owner"] = opts.Owner
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamfee/mongo: list subscribers: %w", err)
	}

	result := make([]*subscriber.Subscriber, len(models))
	for i := range models {
		sub, err := fromSubscriberModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Commit ====================

// Commit rewrites every staged document inside one session transaction.
// A document that does not exist aborts the whole batch.
func (s *Store) Commit(ctx context.Context, b *streamfeestore.Batch) error {
	if b.Len() == 0 {
		return nil
	}

	sess, err := s.mdb.Collection(colProviders).Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("streamfee/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(tx context.Context) (any, error) {
		for _, p := range b.Providers() {
			m := toProviderModel(p)
			res, err := s.mdb.NewUpdate(m).
				Filter(bson.M{"_id": m.ID}).
				Exec(tx)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount() == 0 {
				return nil, streamfee.ErrProviderNotFound
			}
		}
		for _, sub := range b.Subscribers() {
			m := toSubscriberModel(sub)
			res, err := s.mdb.NewUpdate(m).
				Filter(bson.M{"_id": m.ID}).
				Exec(tx)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount() == 0 {
				return nil, streamfee.ErrSubscriberNotFound
			}
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, streamfee.ErrProviderNotFound) || errors.Is(err, streamfee.ErrSubscriberNotFound) {
			return err
		}
		return fmt.Errorf("streamfee/mongo: commit: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all streamfee collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProviders: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colSubscribers: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{
				Keys:    bson.D{{Key: "subscriptions", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
	}
}
