package pgdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
)

type DealReportRepo struct {
	pool *pgxpool.Pool
}

func NewDealReportRepo(pool *pgxpool.Pool) *DealReportRepo {
	return &DealReportRepo{pool: pool}
}

// SaveDealReport records a generated report artifact, pointing at its
// payload in object storage.
func (r *DealReportRepo) SaveDealReport(ctx context.Context, report *domain.DealReport) (uuid.UUID, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	_, err := querier(ctx, r.pool).Exec(ctx, `
		INSERT INTO deal_reports (id, filter_id, payload_ref, generated_at)
		VALUES ($1, $2, $3, now())`,
		report.ID, report.FilterID, report.PayloadRef,
	)
	if err != nil {
		return uuid.Nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return report.ID, nil
}

// MarkSent stamps a report's delivery time. Nothing in this module
// delivers reports or calls it.
func (r *DealReportRepo) MarkSent(ctx context.Context, reportID uuid.UUID) error {
	_, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE deal_reports SET sent_at = now() WHERE id = $1`, reportID)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
