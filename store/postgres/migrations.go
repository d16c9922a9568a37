package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the paystream store.
var Migrations = migrate.NewGroup("paystream")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_paystream_streams",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paystream_streams (
    seq                  BIGSERIAL,
    id                   TEXT PRIMARY KEY,
    sender               TEXT NOT NULL,
    recipient            TEXT NOT NULL,
    deposit              BIGINT NOT NULL CHECK (deposit > 0),
    rate_per_second      BIGINT NOT NULL DEFAULT 0,
    start_time           BIGINT NOT NULL,
    stop_time            BIGINT NOT NULL,
    withdrawn            BIGINT NOT NULL DEFAULT 0,
    status               TEXT NOT NULL DEFAULT 'active',
    version              BIGINT NOT NULL DEFAULT 0,
    canceled_at          BIGINT NOT NULL DEFAULT 0,
    completed_at         BIGINT NOT NULL DEFAULT 0,
    sender_settlement    BIGINT NOT NULL DEFAULT 0,
    recipient_settlement BIGINT NOT NULL DEFAULT 0,
    metadata             JSONB NOT NULL DEFAULT '{}',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (stop_time > start_time),
    CHECK (withdrawn >= 0 AND withdrawn <= deposit)
);

CREATE INDEX IF NOT EXISTS idx_paystream_streams_sender ON paystream_streams (sender, seq);
CREATE INDEX IF NOT EXISTS idx_paystream_streams_recipient ON paystream_streams (recipient, seq);
CREATE INDEX IF NOT EXISTS idx_paystream_streams_status ON paystream_streams (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paystream_streams`)
				return err
			},
		},
	)
}
