package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the autophage store (PostgreSQL).
var Migrations = migrate.NewGroup("autophage")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_autophage_balances",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS autophage_balances (
    account      TEXT NOT NULL,
    category     SMALLINT NOT NULL,
    amount       BIGINT NOT NULL DEFAULT 0,
    last_update  TIMESTAMPTZ NOT NULL DEFAULT now(),
    locked_until TIMESTAMPTZ,
    lock_days    INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (account, category)
);

CREATE INDEX IF NOT EXISTS idx_autophage_balances_account ON autophage_balances (account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS autophage_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_autophage_categories",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS autophage_categories (
    category     SMALLINT PRIMARY KEY,
    decay_rate   BIGINT NOT NULL DEFAULT 0,
    tiers        JSONB NOT NULL DEFAULT '[]',
    total_issued BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS autophage_categories`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_autophage_claims",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS autophage_claims (
    id                BIGSERIAL PRIMARY KEY,
    ref               TEXT NOT NULL DEFAULT '',
    claimant          TEXT NOT NULL DEFAULT '',
    amount            BIGINT NOT NULL DEFAULT 0,
    urgency           INTEGER NOT NULL DEFAULT 1,
    claim_type        TEXT NOT NULL DEFAULT '',
    verification_hash TEXT NOT NULL DEFAULT '',
    submitted_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    processed         BOOLEAN NOT NULL DEFAULT FALSE,
    processed_at      TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_autophage_claims_pending ON autophage_claims (processed, id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_autophage_claims_ref ON autophage_claims (ref);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS autophage_claims`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_autophage_reserve",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS autophage_reserve (
    id                INTEGER PRIMARY KEY,
    balance           BIGINT NOT NULL DEFAULT 0,
    total_deposits    BIGINT NOT NULL DEFAULT 0,
    annual_revenue    BIGINT NOT NULL DEFAULT 0,
    daily_spend       JSONB NOT NULL DEFAULT '[]',
    current_epoch_day BIGINT NOT NULL DEFAULT 0,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS autophage_reserve`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_autophage_chambers",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS autophage_chambers (
    category    SMALLINT PRIMARY KEY,
    collected   BIGINT NOT NULL DEFAULT 0,
    distributed BIGINT NOT NULL DEFAULT 0,
    current     BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS autophage_chambers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_autophage_journal",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS autophage_journal (
    id       TEXT PRIMARY KEY,
    kind     TEXT NOT NULL DEFAULT '',
    account  TEXT NOT NULL DEFAULT '',
    category SMALLINT NOT NULL DEFAULT 0,
    amount   BIGINT NOT NULL DEFAULT 0,
    claim_id BIGINT NOT NULL DEFAULT 0,
    at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    note     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_autophage_journal_kind ON autophage_journal (kind, at);
CREATE INDEX IF NOT EXISTS idx_autophage_journal_account ON autophage_journal (account, at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS autophage_journal`)
				return err
			},
		},
	)
}
