package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/internal/infrastructure/search"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

// CoreUseCase is the sole implementation of CoreUC, composing the
// persistence repositories the façade needs with the search writer's
// read-only aggregation queries.
type CoreUseCase struct {
	watchRepo  *pgdb.WatchRepo
	filterRepo *pgdb.DealFilterRepo
	search     *search.Writer
	logger     logger.Logger
}

func NewCoreUseCase(watchRepo *pgdb.WatchRepo, filterRepo *pgdb.DealFilterRepo, searchWriter *search.Writer, log logger.Logger) *CoreUseCase {
	return &CoreUseCase{watchRepo: watchRepo, filterRepo: filterRepo, search: searchWriter, logger: log}
}

func (u *CoreUseCase) CreateWatch(ctx context.Context, userID uuid.UUID, productCode, title string, domainID int, targetPrice decimal.Decimal) (*domain.WatchedProduct, error) {
	if productCode == "" || targetPrice.IsNegative() || targetPrice.IsZero() {
		return nil, e.Wrap("CoreUseCase.CreateWatch", e.ErrMissingFields)
	}
	return u.watchRepo.CreateWatch(ctx, userID, productCode, title, domainID, targetPrice)
}

func (u *CoreUseCase) ListWatches(ctx context.Context, userID uuid.UUID) ([]*domain.WatchedProduct, error) {
	return u.watchRepo.ListWatches(ctx, userID)
}

func (u *CoreUseCase) PauseWatch(ctx context.Context, watchID uuid.UUID) error {
	return u.watchRepo.PauseWatch(ctx, watchID)
}

func (u *CoreUseCase) ResumeWatch(ctx context.Context, watchID uuid.UUID) error {
	return u.watchRepo.ResumeWatch(ctx, watchID)
}

func (u *CoreUseCase) DeleteWatch(ctx context.Context, watchID uuid.UUID) error {
	return u.watchRepo.DeleteWatch(ctx, watchID)
}

func (u *CoreUseCase) UpsertDealFilter(ctx context.Context, f *domain.DealFilter) (*domain.DealFilter, error) {
	if f.UserID == uuid.Nil {
		return nil, e.Wrap("CoreUseCase.UpsertDealFilter", e.ErrMissingFields)
	}
	return u.filterRepo.UpsertDealFilter(ctx, f)
}

func (u *CoreUseCase) ListDealFilters(ctx context.Context) ([]*domain.DealFilter, error) {
	return u.filterRepo.ListActiveDealFilters(ctx)
}

func (u *CoreUseCase) SearchDeals(ctx context.Context, minDiscount, minRating float64, domainID int) (*search.DealAggregations, error) {
	return u.search.DealAggregationsFor(ctx, minDiscount, minRating, domainID)
}

func (u *CoreUseCase) PriceStats(ctx context.Context, productCode string) (*search.PriceStatistics, error) {
	if productCode == "" {
		return nil, e.Wrap("CoreUseCase.PriceStats", e.ErrMissingFields)
	}
	return u.search.PriceStatisticsFor(ctx, productCode)
}
