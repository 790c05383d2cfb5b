package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the streamfee store.
var Migrations = migrate.NewGroup("streamfee")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_streamfee_accounts",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamfee_accounts (
    id               TEXT PRIMARY KEY,
    kind             TEXT NOT NULL,
    owner            TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT '',
    fee_per_second   TEXT NOT NULL DEFAULT '0',
    subscriber_count BIGINT NOT NULL DEFAULT 0,
    pending_fees     TEXT NOT NULL DEFAULT '0',
    fees_collected   TEXT NOT NULL DEFAULT '0',
    suspended_at     TIMESTAMPTZ,
    balance          TEXT NOT NULL DEFAULT '0',
    aggregate_fee    TEXT NOT NULL DEFAULT '0',
    subscriptions    JSONB NOT NULL DEFAULT '[]',
    last_updated     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT streamfee_accounts_kind CHECK (kind IN ('provider', 'subscriber')),
    CONSTRAINT streamfee_accounts_count CHECK (subscriber_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_streamfee_accounts_kind_owner ON streamfee_accounts (kind, owner);
CREATE INDEX IF NOT EXISTS idx_streamfee_accounts_kind_status ON streamfee_accounts (kind, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamfee_accounts`)
				return err
			},
		},
	)
}
