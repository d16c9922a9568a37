package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the paystream store (SQLite).
var Migrations = migrate.NewGroup("paystream")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_paystream_streams",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paystream_streams (
    id                   TEXT PRIMARY KEY,
    sender               TEXT NOT NULL,
    recipient            TEXT NOT NULL,
    deposit              INTEGER NOT NULL CHECK (deposit > 0),
    rate_per_second      INTEGER NOT NULL DEFAULT 0,
    start_time           INTEGER NOT NULL,
    stop_time            INTEGER NOT NULL,
    withdrawn            INTEGER NOT NULL DEFAULT 0,
    status               TEXT NOT NULL DEFAULT 'active',
    version              INTEGER NOT NULL DEFAULT 0,
    canceled_at          INTEGER NOT NULL DEFAULT 0,
    completed_at         INTEGER NOT NULL DEFAULT 0,
    sender_settlement    INTEGER NOT NULL DEFAULT 0,
    recipient_settlement INTEGER NOT NULL DEFAULT 0,
    metadata             TEXT NOT NULL DEFAULT '{}',
    created_at           INTEGER NOT NULL,
    updated_at           INTEGER NOT NULL,
    CHECK (stop_time > start_time),
    CHECK (withdrawn >= 0 AND withdrawn <= deposit)
);

CREATE INDEX IF NOT EXISTS idx_paystream_streams_sender ON paystream_streams (sender);
CREATE INDEX IF NOT EXISTS idx_paystream_streams_recipient ON paystream_streams (recipient);
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
