package pgdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/tr"
)

type CollectedDealRepo struct {
	pool *pgxpool.Pool
}

func NewCollectedDealRepo(pool *pgxpool.Pool) *CollectedDealRepo {
	return &CollectedDealRepo{pool: pool}
}

// SaveCollectedDealsBatch inserts a batch of deals from one deal
// pipeline iteration, one statement per deal inside a single
// transaction (the caller's, if ctx carries one), skipping any that
// duplicate a deal already collected for the same product at the same
// instant.
func (r *CollectedDealRepo) SaveCollectedDealsBatch(ctx context.Context, deals []*domain.CollectedDeal) (int, error) {
	if len(deals) == 0 {
		return 0, nil
	}

	if _, err := tr.TxFromCtx(ctx); err != nil {
		var count int
		txErr := WithTx(ctx, r.pool, func(ctx context.Context) error {
			var err error
			count, err = r.SaveCollectedDealsBatch(ctx, deals)
			return err
		})
		if txErr != nil {
			return 0, txErr
		}
		return count, nil
	}

	q := querier(ctx, r.pool)
	count := 0
	for _, d := range deals {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		tag, err := q.Exec(ctx, `
			INSERT INTO collected_deals (
				id, product_code, title, current_price, original_price, discount_percent,
				rating, review_count, sales_rank, domain, category, deal_score, url,
				prime_eligible, layout, collected_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
			ON CONFLICT (product_code, domain, collected_at) DO NOTHING`,
			d.ID, d.ProductCode, d.Title, d.CurrentPrice, d.OriginalPrice, d.DiscountPercent,
			d.Rating, d.ReviewCount, d.SalesRank, d.Domain, d.Category, d.DealScore, d.URL,
			d.PrimeEligible, d.Layout,
		)
		if err != nil {
			return count, e.Wrap(whereami.WhereAmI(), err)
		}
		count += int(tag.RowsAffected())
	}
	return count, nil
}

// RecentByCategory returns collected deals from the last window,
// optionally filtered by category, used by the daily report cycle to
// evaluate each active DealFilter.
func (r *CollectedDealRepo) RecentByCategory(ctx context.Context, category string, since int) ([]*domain.CollectedDeal, error) {
	var rowsIter interface {
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close()
	}
	var err error

	if category == "" {
		rowsIter, err = querier(ctx, r.pool).Query(ctx, `
			SELECT id, product_code, title, current_price, original_price, discount_percent,
				rating, review_count, sales_rank, domain, category, deal_score, url,
				prime_eligible, layout, collected_at
			FROM collected_deals
			WHERE collected_at > now() - (interval '1 hour' * $1)
			ORDER BY deal_score DESC`, since)
	} else {
		rowsIter, err = querier(ctx, r.pool).Query(ctx, `
			SELECT id, product_code, title, current_price, original_price, discount_percent,
				rating, review_count, sales_rank, domain, category, deal_score, url,
				prime_eligible, layout, collected_at
			FROM collected_deals
			WHERE collected_at > now() - (interval '1 hour' * $1) AND category ILIKE $2
			ORDER BY deal_score DESC`, since, category)
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rowsIter.Close()

	var out []*domain.CollectedDeal
	for rowsIter.Next() {
		var d domain.CollectedDeal
		if err := rowsIter.Scan(
			&d.ID, &d.ProductCode, &d.Title, &d.CurrentPrice, &d.OriginalPrice, &d.DiscountPercent,
			&d.Rating, &d.ReviewCount, &d.SalesRank, &d.Domain, &d.Category, &d.DealScore, &d.URL,
			&d.PrimeEligible, &d.Layout, &d.CollectedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		out = append(out, &d)
	}
	return out, rowsIter.Err()
}
