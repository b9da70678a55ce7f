package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectedDeal is a raw, system-wide deal snapshot produced by the deal
// pipeline. Duplicates across time are allowed; CollectedAt distinguishes
// them.
type CollectedDeal struct {
	ID              uuid.UUID
	ProductCode     string
	Title           string
	CurrentPrice    decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountPercent decimal.Decimal
	Rating          float64
	ReviewCount     int
	SalesRank       int
	Domain          int
	Category        string
	DealScore       float64
	URL             string
	PrimeEligible   bool
	Layout          string
	CollectedAt     time.Time
}

// DealFilter is a user-defined predicate over CollectedDeal, consumed
// daily by the report pipeline.
type DealFilter struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Categories  []string
	MinPrice    decimal.Decimal
	MaxPrice    decimal.Decimal
	MinDiscount decimal.Decimal
	MaxDiscount decimal.Decimal
	MinRating   float64
	Active      bool
}

// Matches reports whether a collected deal satisfies the filter's
// criteria. Zero-value bounds are treated as unset (no constraint).
func (f *DealFilter) Matches(d *CollectedDeal) bool {
	if len(f.Categories) > 0 && !containsFold(f.Categories, d.Category) {
		return false
	}
	if !f.MinPrice.IsZero() && d.CurrentPrice.LessThan(f.MinPrice) {
		return false
	}
	if !f.MaxPrice.IsZero() && d.CurrentPrice.GreaterThan(f.MaxPrice) {
		return false
	}
	if !f.MinDiscount.IsZero() && d.DiscountPercent.LessThan(f.MinDiscount) {
		return false
	}
	if !f.MaxDiscount.IsZero() && d.DiscountPercent.GreaterThan(f.MaxDiscount) {
		return false
	}
	if f.MinRating > 0 && d.Rating < f.MinRating {
		return false
	}
	return true
}

func containsFold(categories []string, category string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// DealReport is a generated report artifact, persisted with its payload
// archived in object storage; it is not passed to the alert dispatcher.
type DealReport struct {
	ID           uuid.UUID
	FilterID     uuid.UUID
	PayloadRef   string // object storage key for the structured payload
	GeneratedAt  time.Time
	SentAt       *time.Time
}
