package dealpipeline

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizedDeal is the canonical shape every upstream record is
// coerced into before scoring and filtering, regardless of which field
// names or value types the source payload used.
type NormalizedDeal struct {
	ProductCode     string
	Title           string
	CurrentPrice    decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountPercent decimal.Decimal
	Rating          float64
	ReviewCount     int
	SalesRank       int
	Category        string
	URL             string
	PrimeEligible   bool
	Domain          int
}

// Normalize accepts a raw deal record whose keys may use underscore_case
// or camelCase, and whose numeric fields may be JSON numbers or
// stringified numbers, and produces a canonical record. Discount is
// computed from the prices when both are positive and list exceeds
// current; otherwise the upstream-supplied discount is kept as-is.
func Normalize(raw map[string]any) *NormalizedDeal {
	d := &NormalizedDeal{
		ProductCode:   firstString(raw, "productCode", "product_code", "asin"),
		Title:         firstString(raw, "title", "productTitle", "product_title"),
		Category:      firstString(raw, "category", "categoryName", "category_name"),
		URL:           firstString(raw, "url", "productUrl", "product_url"),
		PrimeEligible: firstBool(raw, "primeEligible", "prime_eligible", "isPrimeEligible"),
		Domain:        int(firstNumber(raw, "domain", "domainId", "domain_id")),
		Rating:        firstNumber(raw, "rating", "starRating", "star_rating"),
		ReviewCount:   int(firstNumber(raw, "reviewCount", "review_count", "numReviews")),
		SalesRank:     int(firstNumber(raw, "salesRank", "sales_rank", "rank")),
	}

	current := decimal.NewFromFloat(firstNumber(raw, "currentPrice", "current_price", "price"))
	list := decimal.NewFromFloat(firstNumber(raw, "originalPrice", "original_price", "listPrice", "list_price"))
	d.CurrentPrice = current
	d.OriginalPrice = list

	if current.IsPositive() && list.IsPositive() && list.GreaterThan(current) {
		pct := list.Sub(current).Div(list).Mul(decimal.NewFromInt(100))
		d.DiscountPercent = pct.Round(1)
	} else {
		d.DiscountPercent = decimal.NewFromFloat(firstNumber(raw, "discountPercent", "discount_percent", "discount"))
	}

	return d
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			parsed, err := strconv.ParseBool(b)
			if err == nil {
				return parsed
			}
		}
	}
	return false
}

// firstNumber resolves the first present key among aliases, accepting
// either a JSON number or a numeric string, tolerating whitespace and a
// trailing percent sign.
func firstNumber(raw map[string]any, keys ...string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			s := strings.TrimSpace(strings.TrimSuffix(n, "%"))
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}
