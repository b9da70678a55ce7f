package dealpipeline

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestScoreWeightsSumToFullMarksOnPerfectDeal(t *testing.T) {
	d := &NormalizedDeal{
		DiscountPercent: decimal.NewFromInt(100),
		Rating:          5,
		SalesRank:       0,
		CurrentPrice:    decimal.Zero,
	}
	got := Score(d)
	if got < 99.999 || got > 100.001 {
		t.Fatalf("Score() = %v, want ~100", got)
	}
}

func TestScoreWorstCaseIsZero(t *testing.T) {
	d := &NormalizedDeal{
		DiscountPercent: decimal.Zero,
		Rating:          0,
		SalesRank:       200_000,
		CurrentPrice:    decimal.NewFromInt(1000),
	}
	got := Score(d)
	if got != 0 {
		t.Fatalf("Score() = %v, want 0", got)
	}
}

func TestScoreDiscountDominatesWeighting(t *testing.T) {
	highDiscount := &NormalizedDeal{DiscountPercent: decimal.NewFromInt(80), Rating: 3, SalesRank: 50_000, CurrentPrice: decimal.NewFromInt(250)}
	lowDiscount := &NormalizedDeal{DiscountPercent: decimal.NewFromInt(10), Rating: 5, SalesRank: 0, CurrentPrice: decimal.Zero}

	if Score(highDiscount) <= Score(lowDiscount) {
		t.Fatalf("expected a deep discount with mediocre rating to still score competitively: high=%v low=%v", Score(highDiscount), Score(lowDiscount))
	}
}

func TestScoreClampsOutOfRangeInputs(t *testing.T) {
	d := &NormalizedDeal{
		DiscountPercent: decimal.NewFromInt(500), // pathological upstream value
		Rating:          5,
		SalesRank:       -10, // negative rank shouldn't push rankScore above 1
		CurrentPrice:    decimal.NewFromInt(-5),  // negative price shouldn't push priceScore above 1
	}
	got := Score(d)
	if got < 99.999 || got > 100.001 {
		t.Fatalf("Score() = %v, want clamped to ~100", got)
	}
}
