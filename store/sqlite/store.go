package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	streamfeestore "github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/subscriber"
)

// compile-time interface check
var _ streamfeestore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("streamfee/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("streamfee/sqlite: %w: %w", streamfee.ErrMigrationFailed, err)
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
	return s.insert(ctx, toProviderModel(p), streamfee.ErrProviderExists)
}

func (s *Store) GetProvider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", providerID.String()).
		Where("kind = ?", kindProvider).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, streamfee.ErrProviderNotFound
		}
		return nil, err
	}
	return fromProviderModel(m)
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var models []accountModel
	q := s.sdb.NewSelect(&models).Where("kind = ?", kindProvider)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Owner != "" {
		q = q.Where("owner = ?", opts.Owner)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	m, err := toSubscriberModel(sub)
	if err != nil {
		return err
	}
	return s.insert(ctx, m, streamfee.ErrSubscriberExists)
}

func (s *Store) GetSubscriber(ctx context.Context, subscriberID id.SubscriberID) (*subscriber.Subscriber, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", subscriberID.String()).
		Where("kind = ?", kindSubscriber).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, streamfee.ErrSubscriberNotFound
		}
		return nil, err
	}
	return fromSubscriberModel(m)
}

func (s *Store) ListSubscribers(ctx context.Context, opts subscriber.ListOpts) ([]*subscriber.Subscriber, error) {
	var models []accountModel
	q := s.sdb.NewSelect(&models).Where("kind = ?", kindSubscriber)

	if opts.Owner != "" {
		q = q.Where("owner = ?", opts.Owner)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// Commit writes the batch with one INSERT ... ON CONFLICT statement, which
// SQLite applies atomically. Accounts are never deleted, so the existence
// check ahead of the write cannot go stale.
func (s *Store) Commit(ctx context.Context, b *streamfeestore.Batch) error {
	if b.Len() == 0 {
		return nil
	}

	if err := s.requireAll(ctx, kindProvider, b.ProviderKeys(), streamfee.ErrProviderNotFound); err != nil {
		return err
	}
	if err := s.requireAll(ctx, kindSubscriber, b.SubscriberKeys(), streamfee.ErrSubscriberNotFound); err != nil {
		return err
	}

	models, err := batchModels(b.Providers(), b.Subscribers())
	if err != nil {
		return err
	}
	_, err = s.sdb.NewInsert(&models).
		OnConflict("(id) DO UPDATE").
		Set("owner = EXCLUDED.owner").
		Set("status = EXCLUDED.status").
		Set("fee_per_second = EXCLUDED.fee_per_second").
		Set("subscriber_count = EXCLUDED.subscriber_count").
		Set("pending_fees = EXCLUDED.pending_fees").
		Set("fees_collected = EXCLUDED.fees_collected").
		Set("suspended_at = EXCLUDED.suspended_at").
		Set("balance = EXCLUDED.balance").
		Set("aggregate_fee = EXCLUDED.aggregate_fee").
		Set("subscriptions = EXCLUDED.subscriptions").
		Set("last_updated = EXCLUDED.last_updated").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Helpers ====================

func (s *Store) insert(ctx context.Context, m *accountModel, exists error) error {
	res, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return exists
	}
	return nil
}

// requireAll fails with missing unless every id exists as an account of kind.
func (s *Store) requireAll(ctx context.Context, kind string, ids []string, missing error) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, kind)
	for _, v := range ids {
		args = append(args, v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	var count int64
	err := s.sdb.NewRaw(
		"SELECT COUNT(*) FROM streamfee_accounts WHERE kind = ? AND id IN ("+placeholders+")",
		args...,
	).Scan(ctx, &count)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return missing
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
