package dealpipeline

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeAcceptsCamelCaseFields(t *testing.T) {
	raw := map[string]any{
		"productCode":     "B07W6JN8V8",
		"title":           "Logitech MX Keys",
		"currentPrice":    79.99,
		"originalPrice":   99.99,
		"rating":          4.5,
		"reviewCount":     1200.0,
		"salesRank":       500.0,
		"domain":          3.0,
		"primeEligible":   true,
	}

	got := Normalize(raw)

	if got.ProductCode != "B07W6JN8V8" || got.Title != "Logitech MX Keys" {
		t.Fatalf("unexpected identity fields: %+v", got)
	}
	if !got.PrimeEligible || got.Domain != 3 || got.ReviewCount != 1200 || got.SalesRank != 500 {
		t.Fatalf("unexpected scalar fields: %+v", got)
	}
}

func TestNormalizeAcceptsUnderscoreAliases(t *testing.T) {
	raw := map[string]any{
		"product_code":   "B0815RRGV6",
		"product_title":  "Corsair K70",
		"current_price":  "109.99", // stringified number
		"list_price":     "149.99",
		"review_count":   "42",
		"sales_rank":     "10000",
		"prime_eligible": "true",
	}

	got := Normalize(raw)

	if got.ProductCode != "B0815RRGV6" || got.Title != "Corsair K70" {
		t.Fatalf("unexpected identity fields via underscore aliases: %+v", got)
	}
	if !got.CurrentPrice.Equal(decimal.NewFromFloat(109.99)) {
		t.Errorf("CurrentPrice = %v, want 109.99", got.CurrentPrice)
	}
	if got.ReviewCount != 42 || got.SalesRank != 10000 || !got.PrimeEligible {
		t.Fatalf("unexpected scalar fields via underscore/stringified aliases: %+v", got)
	}
}

func TestNormalizeComputesDiscountWhenBothPricesPositive(t *testing.T) {
	raw := map[string]any{
		"productCode":   "B07GJT1WM8",
		"currentPrice":  75.0,
		"originalPrice": 100.0,
	}

	got := Normalize(raw)
	if !got.DiscountPercent.Equal(decimal.NewFromFloat(25.0)) {
		t.Errorf("DiscountPercent = %v, want 25.0", got.DiscountPercent)
	}
}

func TestNormalizeFallsBackToUpstreamDiscountWhenPricesAbsent(t *testing.T) {
	raw := map[string]any{
		"productCode":     "B07GJT1WM8",
		"discountPercent": 30.0,
	}

	got := Normalize(raw)
	if !got.DiscountPercent.Equal(decimal.NewFromFloat(30)) {
		t.Errorf("DiscountPercent = %v, want 30", got.DiscountPercent)
	}
}
