package pgdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/tr"
	"github.com/shopspring/decimal"
)

type WatchRepo struct {
	pool *pgxpool.Pool
}

func NewWatchRepo(pool *pgxpool.Pool) *WatchRepo {
	return &WatchRepo{pool: pool}
}

func scanWatch(row pgx.Row) (*domain.WatchedProduct, error) {
	var (
		w                 domain.WatchedProduct
		lastCheckedAt     *time.Time
		lastPriceChangeAt *time.Time
	)
	err := row.Scan(
		&w.ID, &w.UserID, &w.ProductCode, &w.Title, &w.Domain,
		&w.CurrentPrice, &w.TargetPrice, &w.Volatility, &w.Status,
		&lastCheckedAt, &lastPriceChangeAt,
	)
	if err != nil {
		return nil, err
	}
	if lastCheckedAt != nil {
		w.LastCheckedAt = *lastCheckedAt
	}
	if lastPriceChangeAt != nil {
		w.LastPriceChangeAt = *lastPriceChangeAt
	}
	return &w, nil
}

const watchColumns = `id, user_id, product_code, title, domain, current_price, target_price, volatility, status, last_checked_at, last_price_change_at`

// GetActiveWatches returns every ACTIVE watch, the input set for each
// price-check iteration.
func (r *WatchRepo) GetActiveWatches(ctx context.Context) ([]*domain.WatchedProduct, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+watchColumns+` FROM watched_products WHERE status = $1`,
		domain.WatchActive,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var out []*domain.WatchedProduct
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListWatches returns every non-deleted watch owned by a user.
func (r *WatchRepo) ListWatches(ctx context.Context, userID uuid.UUID) ([]*domain.WatchedProduct, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+watchColumns+` FROM watched_products
		WHERE user_id = $1 AND status != $2
		ORDER BY created_at DESC`,
		userID, domain.WatchInactive,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var out []*domain.WatchedProduct
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// FindByProductCode returns every ACTIVE watch tracking a product code
// on a domain, across every owning user including the system user.
func (r *WatchRepo) FindByProductCode(ctx context.Context, productCode string, domainID int) ([]*domain.WatchedProduct, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+watchColumns+` FROM watched_products
		WHERE product_code = $1 AND domain = $2 AND status = $3`,
		productCode, domainID, domain.WatchActive,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var out []*domain.WatchedProduct
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CreateWatch inserts a new watch for a user-declared target price.
func (r *WatchRepo) CreateWatch(ctx context.Context, userID uuid.UUID, productCode, title string, domainID int, targetPrice decimal.Decimal) (*domain.WatchedProduct, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO watched_products (id, user_id, product_code, title, domain, target_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+watchColumns,
		uuid.New(), userID, productCode, title, domainID, targetPrice, domain.WatchActive,
	)
	w, err := scanWatch(row)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return w, nil
}

func (r *WatchRepo) setStatus(ctx context.Context, watchID uuid.UUID, status domain.WatchStatus) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE watched_products SET status = $1 WHERE id = $2`, status, watchID)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrWatchNotFound)
	}
	return nil
}

func (r *WatchRepo) PauseWatch(ctx context.Context, watchID uuid.UUID) error {
	return r.setStatus(ctx, watchID, domain.WatchPaused)
}

func (r *WatchRepo) ResumeWatch(ctx context.Context, watchID uuid.UUID) error {
	return r.setStatus(ctx, watchID, domain.WatchActive)
}

func (r *WatchRepo) DeleteWatch(ctx context.Context, watchID uuid.UUID) error {
	return r.setStatus(ctx, watchID, domain.WatchInactive)
}

// UpdateWatchPrice atomically updates the watch's current price and
// appends a PriceHistory row in the same transaction. Callers compose
// this inside pgdb.WithTx when it must participate in a larger write;
// without an ambient transaction it opens its own.
func (r *WatchRepo) UpdateWatchPrice(ctx context.Context, watchID uuid.UUID, price decimal.Decimal, source string) (*domain.WatchedProduct, error) {
	if _, err := tr.TxFromCtx(ctx); err != nil {
		var updated *domain.WatchedProduct
		txErr := WithTx(ctx, r.pool, func(ctx context.Context) error {
			var err error
			updated, err = r.UpdateWatchPrice(ctx, watchID, price, source)
			return err
		})
		return updated, txErr
	}

	q := querier(ctx, r.pool)

	var current decimal.Decimal
	if err := q.QueryRow(ctx, `SELECT current_price FROM watched_products WHERE id = $1`, watchID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrWatchNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	priceChanged := !current.Equal(price)

	row := q.QueryRow(ctx, `
		UPDATE watched_products SET
			current_price = $1,
			last_checked_at = now(),
			last_price_change_at = CASE WHEN $2 THEN now() ELSE last_price_change_at END
		WHERE id = $3
		RETURNING `+watchColumns,
		price, priceChanged, watchID,
	)
	w, err := scanWatch(row)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO price_history (watch_id, product_code, domain, price, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		w.ID, w.ProductCode, w.Domain, price, source,
	); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return w, nil
}

// EnsureTrackedProduct finds or creates a system-owned watch for a
// product code discovered outside a user's explicit watch list.
func (r *WatchRepo) EnsureTrackedProduct(ctx context.Context, productCode, title string, domainID int, currentPrice decimal.Decimal) (uuid.UUID, error) {
	q := querier(ctx, r.pool)

	var id uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT id FROM watched_products WHERE user_id = $1 AND product_code = $2 AND domain = $3`,
		domain.SystemUserID, productCode, domainID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, e.Wrap(whereami.WhereAmI(), err)
	}

	id = uuid.New()
	_, err = q.Exec(ctx, `
		INSERT INTO watched_products (id, user_id, product_code, title, domain, current_price, target_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (user_id, product_code, domain) DO NOTHING`,
		id, domain.SystemUserID, productCode, title, domainID, currentPrice, domain.WatchActive,
	)
	if err != nil {
		return uuid.Nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return id, nil
}

// RecordDealPrice composes EnsureTrackedProduct, a PriceHistory insert
// and a watch-level price update for a price observed by the deal feed
// rather than a direct product query.
func (r *WatchRepo) RecordDealPrice(ctx context.Context, productCode, title string, domainID int, price decimal.Decimal, source string) error {
	watchID, err := r.EnsureTrackedProduct(ctx, productCode, title, domainID, price)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := r.UpdateWatchPrice(ctx, watchID, price, source); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// BackfillPriceHistoryFromDeals seeds PriceHistory for system-tracked
// watches that have none yet, from their current collected-deal price.
// Idempotent: a watch with existing history is left untouched.
func (r *WatchRepo) BackfillPriceHistoryFromDeals(ctx context.Context) (int, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT w.id, w.product_code, w.domain, w.current_price
		FROM watched_products w
		WHERE w.user_id = $1
		AND NOT EXISTS (SELECT 1 FROM price_history h WHERE h.watch_id = w.id)`,
		domain.SystemUserID,
	)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	type pending struct {
		id          uuid.UUID
		productCode string
		domainID    int
		price       decimal.Decimal
	}
	var items []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.productCode, &p.domainID, &p.price); err != nil {
			rows.Close()
			return 0, e.Wrap(whereami.WhereAmI(), err)
		}
		items = append(items, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	count := 0
	for _, p := range items {
		if _, err := r.pool.Exec(ctx, `
			INSERT INTO price_history (watch_id, product_code, domain, price, source, recorded_at)
			VALUES ($1, $2, $3, $4, 'backfill', now())`,
			p.id, p.productCode, p.domainID, p.price,
		); err != nil {
			return count, e.Wrap(whereami.WhereAmI(), err)
		}
		count++
	}
	return count, nil
}

// CreatePriceAlert inserts a PENDING alert row for a target-crossing event.
func (r *WatchRepo) CreatePriceAlert(ctx context.Context, watchID uuid.UUID, triggered, target, oldPrice, newPrice decimal.Decimal) (uuid.UUID, error) {
	discount := decimal.Zero
	if oldPrice.IsPositive() {
		discount = oldPrice.Sub(newPrice).Div(oldPrice).Mul(decimal.NewFromInt(100))
	}

	id := uuid.New()
	_, err := querier(ctx, r.pool).Exec(ctx, `
		INSERT INTO price_alerts (id, watch_id, triggered_price, target_price, old_price, new_price, discount_percent, status, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		id, watchID, triggered, target, oldPrice, newPrice, discount, domain.AlertPending,
	)
	if err != nil {
		return uuid.Nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return id, nil
}

// HasRecentAlert reports whether watchID has a PENDING or SENT alert
// within the given window, guarding against duplicate alert creation.
func (r *WatchRepo) HasRecentAlert(ctx context.Context, watchID uuid.UUID, window time.Duration) (bool, error) {
	var exists bool
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM price_alerts
			WHERE watch_id = $1
			AND status IN ($2, $3)
			AND triggered_at > now() - (interval '1 second' * $4)
		)`,
		watchID, domain.AlertPending, domain.AlertSent, window.Seconds(),
	).Scan(&exists)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	return exists, nil
}
