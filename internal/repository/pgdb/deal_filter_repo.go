package pgdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
)

type DealFilterRepo struct {
	pool *pgxpool.Pool
}

func NewDealFilterRepo(pool *pgxpool.Pool) *DealFilterRepo {
	return &DealFilterRepo{pool: pool}
}

const dealFilterColumns = `id, user_id, categories, min_price, max_price, min_discount, max_discount, min_rating, active`

func scanDealFilter(row interface {
	Scan(dest ...any) error
}) (*domain.DealFilter, error) {
	var f domain.DealFilter
	if err := row.Scan(&f.ID, &f.UserID, &f.Categories, &f.MinPrice, &f.MaxPrice, &f.MinDiscount, &f.MaxDiscount, &f.MinRating, &f.Active); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertDealFilter inserts a new filter, or updates an existing one by
// id when the filter already has one.
func (r *DealFilterRepo) UpsertDealFilter(ctx context.Context, f *domain.DealFilter) (*domain.DealFilter, error) {
	q := querier(ctx, r.pool)

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
		row := q.QueryRow(ctx, `
			INSERT INTO deal_filters (`+dealFilterColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+dealFilterColumns,
			f.ID, f.UserID, f.Categories, f.MinPrice, f.MaxPrice, f.MinDiscount, f.MaxDiscount, f.MinRating, f.Active,
		)
		out, err := scanDealFilter(row)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		return out, nil
	}

	row := q.QueryRow(ctx, `
		UPDATE deal_filters SET
			categories = $2, min_price = $3, max_price = $4,
			min_discount = $5, max_discount = $6, min_rating = $7, active = $8
		WHERE id = $1
		RETURNING `+dealFilterColumns,
		f.ID, f.Categories, f.MinPrice, f.MaxPrice, f.MinDiscount, f.MaxDiscount, f.MinRating, f.Active,
	)
	out, err := scanDealFilter(row)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return out, nil
}

// ListActiveDealFilters returns every filter the daily report cycle
// must evaluate.
func (r *DealFilterRepo) ListActiveDealFilters(ctx context.Context) ([]*domain.DealFilter, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+dealFilterColumns+` FROM deal_filters WHERE active`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var out []*domain.DealFilter
	for rows.Next() {
		f, err := scanDealFilter(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
