// Package usecase is the thin application layer the HTTP façade drives:
// one interface per externally visible capability, backed by a single
// concrete implementation wired against the persistence and search
// layers.
package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/internal/infrastructure/search"
)

// CoreUC is the application surface the HTTP façade calls into -
// exactly the capabilities SPEC_FULL's C10 section exposes.
type CoreUC interface {
	CreateWatch(ctx context.Context, userID uuid.UUID, productCode, title string, domainID int, targetPrice decimal.Decimal) (*domain.WatchedProduct, error)
	ListWatches(ctx context.Context, userID uuid.UUID) ([]*domain.WatchedProduct, error)
	PauseWatch(ctx context.Context, watchID uuid.UUID) error
	ResumeWatch(ctx context.Context, watchID uuid.UUID) error
	DeleteWatch(ctx context.Context, watchID uuid.UUID) error

	UpsertDealFilter(ctx context.Context, f *domain.DealFilter) (*domain.DealFilter, error)
	ListDealFilters(ctx context.Context) ([]*domain.DealFilter, error)

	SearchDeals(ctx context.Context, minDiscount, minRating float64, domainID int) (*search.DealAggregations, error)
	PriceStats(ctx context.Context, productCode string) (*search.PriceStatistics, error)
}
