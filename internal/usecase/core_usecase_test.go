package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
)

// Validation failures return before any repo is touched, so a
// zero-value CoreUseCase (nil repos) is safe to exercise here.
func TestCreateWatchRejectsEmptyProductCode(t *testing.T) {
	u := &CoreUseCase{}

	_, err := u.CreateWatch(context.Background(), uuid.New(), "", "title", 1, decimal.NewFromInt(10))
	if !errors.Is(err, e.ErrMissingFields) {
		t.Errorf("err = %v, want ErrMissingFields", err)
	}
}

func TestCreateWatchRejectsNonPositiveTargetPrice(t *testing.T) {
	u := &CoreUseCase{}

	cases := []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)}
	for _, price := range cases {
		_, err := u.CreateWatch(context.Background(), uuid.New(), "B001", "title", 1, price)
		if !errors.Is(err, e.ErrMissingFields) {
			t.Errorf("price %s: err = %v, want ErrMissingFields", price, err)
		}
	}
}

func TestUpsertDealFilterRejectsNilUserID(t *testing.T) {
	u := &CoreUseCase{}

	_, err := u.UpsertDealFilter(context.Background(), &domain.DealFilter{UserID: uuid.Nil})
	if !errors.Is(err, e.ErrMissingFields) {
		t.Errorf("err = %v, want ErrMissingFields", err)
	}
}

func TestPriceStatsRejectsEmptyProductCode(t *testing.T) {
	u := &CoreUseCase{}

	_, err := u.PriceStats(context.Background(), "")
	if !errors.Is(err, e.ErrMissingFields) {
		t.Errorf("err = %v, want ErrMissingFields", err)
	}
}
