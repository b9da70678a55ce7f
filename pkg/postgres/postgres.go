package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

// PgDatabase wraps a connection pool to PostgreSQL, the source-of-truth
// store for watches, price history, alerts, deal filters and reports.
type PgDatabase struct {
	Pool *pgxpool.Pool
	Dsn  string
	cfg  *cfg.PGDBCfg
}

func NewPgDatabase(pool *pgxpool.Pool, cfg *cfg.PGDBCfg, dsn string) *PgDatabase {
	return &PgDatabase{Pool: pool, cfg: cfg, Dsn: dsn}
}

func Connect(cfg *cfg.PGDBCfg) (*PgDatabase, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return NewPgDatabase(pool, cfg, dsn), nil
}

func (db *PgDatabase) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func (db *PgDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// schemaStatements are idempotent DDL run at startup. There is no
// separate migration tool: every statement is safe to re-run, so the
// schema advances by appending statements here.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		messaging_chat_id TEXT NOT NULL DEFAULT '',
		webhook_url TEXT NOT NULL DEFAULT '',
		deleted BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS watched_products (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		product_code TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		domain INT NOT NULL,
		current_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		target_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		volatility DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		last_checked_at TIMESTAMPTZ,
		last_price_change_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, product_code, domain)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_watched_products_status ON watched_products(status) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		watch_id UUID NOT NULL REFERENCES watched_products(id) ON DELETE CASCADE,
		product_code TEXT NOT NULL,
		domain INT NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_watch ON price_history(watch_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS price_alerts (
		id UUID PRIMARY KEY,
		watch_id UUID NOT NULL REFERENCES watched_products(id) ON DELETE CASCADE,
		triggered_price NUMERIC(12,2) NOT NULL,
		target_price NUMERIC(12,2) NOT NULL,
		old_price NUMERIC(12,2) NOT NULL,
		new_price NUMERIC(12,2) NOT NULL,
		discount_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		channel TEXT NOT NULL DEFAULT '',
		triggered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		sent_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_alerts_watch ON price_alerts(watch_id, triggered_at DESC)`,
	`CREATE TABLE IF NOT EXISTS deal_filters (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		categories TEXT[] NOT NULL DEFAULT '{}',
		min_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		max_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		min_discount NUMERIC(5,2) NOT NULL DEFAULT 0,
		max_discount NUMERIC(5,2) NOT NULL DEFAULT 0,
		min_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deal_filters_active ON deal_filters(active) WHERE active`,
	`CREATE TABLE IF NOT EXISTS collected_deals (
		id UUID PRIMARY KEY,
		product_code TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		current_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		original_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		discount_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		review_count INT NOT NULL DEFAULT 0,
		sales_rank INT NOT NULL DEFAULT 0,
		domain INT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		deal_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		prime_eligible BOOLEAN NOT NULL DEFAULT false,
		layout TEXT NOT NULL DEFAULT '',
		collected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (product_code, domain, collected_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_collected_deals_score ON collected_deals(deal_score DESC)`,
	`CREATE TABLE IF NOT EXISTS deal_reports (
		id UUID PRIMARY KEY,
		filter_id UUID NOT NULL REFERENCES deal_filters(id) ON DELETE CASCADE,
		payload_ref TEXT NOT NULL DEFAULT '',
		generated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		sent_at TIMESTAMPTZ
	)`,
}

// EnsureSchema applies every DDL statement in order. Each one is safe
// to re-run, so this doubles as the only "migration" mechanism.
func (db *PgDatabase) EnsureSchema(ctx context.Context, log logger.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}
	log.Infof("schema bootstrap complete")
	return nil
}
