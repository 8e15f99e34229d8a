package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations run in order inside one transaction each. Statements must be
// re-runnable; we track nothing fancier than IF NOT EXISTS.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		stage TEXT NOT NULL DEFAULT 'INTAKE',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		closed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_stage_created ON orders (stage, created_at)`,
	`CREATE TABLE IF NOT EXISTS items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		seq INT NOT NULL,
		deadline TIMESTAMPTZ,
		certificate_type TEXT NOT NULL,
		what_it_is TEXT NOT NULL,
		reference_code TEXT,
		jewelry_type TEXT,
		metal TEXT,
		gem_count INT NOT NULL DEFAULT 1,
		set_components TEXT,
		gem_name TEXT,
		gem_shape TEXT NOT NULL DEFAULT '',
		gem_weight NUMERIC(7,2),
		comments TEXT,
		UNIQUE (order_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_order_deadline ON items (order_id, deadline)`,
	`CREATE TABLE IF NOT EXISTS item_photos (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		file_name TEXT NOT NULL,
		caption TEXT,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stage_times (
		item_type TEXT NOT NULL,
		certificate_type TEXT NOT NULL,
		intake_seconds BIGINT,
		photo_seconds BIGINT,
		review_seconds BIGINT,
		print_seconds BIGINT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (item_type, certificate_type)
	)`,
}

// Migrate creates the schema. Safe to call on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
