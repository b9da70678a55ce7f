package keepa

// Series indexes into the upstream's packed price-history arrays. Each
// series is a flat [t0,v0,t1,v1,...] sequence in chronological order;
// -1 means unavailable at that point, -2 means the series never
// populated. Values are integer cents, except Rating (half-stars, i.e.
// 10x the rating) and SalesRank/ReviewCount (plain counts).
const (
	SeriesAmazon        = 0
	SeriesMarketplaceNew = 1
	SeriesMarketplaceUsed = 2
	SeriesSalesRank      = 3
	SeriesNewFBA         = 7
	SeriesWarehouse      = 9
	SeriesBuyBox         = 11
	SeriesUsedLikeNew    = 12
	SeriesRating         = 16
	SeriesReviewCount    = 17
	SeriesBuyBoxUsed     = 18
)

// priceSeriesPriority is the order in which price series are consulted
// to determine a product's current price.
var priceSeriesPriority = []int{
	SeriesAmazon,
	SeriesBuyBox,
	SeriesNewFBA,
	SeriesMarketplaceNew,
	SeriesUsedLikeNew,
	SeriesBuyBoxUsed,
	SeriesWarehouse,
}

const (
	sentinelUnavailableNow = -1
	sentinelNeverPopulated = -2
)

// lastValue returns the value of the last (time, value) pair of a packed
// series, or ok=false if the series is absent or empty.
func lastValue(csv [][]int64, seriesIndex int) (int64, bool) {
	if seriesIndex < 0 || seriesIndex >= len(csv) {
		return 0, false
	}
	series := csv[seriesIndex]
	if len(series) < 2 {
		return 0, false
	}
	return series[len(series)-1], true
}

// extractCurrentPriceCents walks the priority chain over csv, falling
// back to stats.current (same priority), then offers, then buyBoxPrice.
// Returns false if nothing resolves.
func extractCurrentPriceCents(csv [][]int64, statsCurrent map[int]int64, offers []offer, buyBoxPrice int64) (int64, bool) {
	for _, idx := range priceSeriesPriority {
		if v, ok := lastValue(csv, idx); ok && v > 0 {
			return v, true
		}
	}

	for _, idx := range priceSeriesPriority {
		if v, ok := statsCurrent[idx]; ok && v > 0 {
			return v, true
		}
	}

	for _, o := range offers {
		if o.Price > 0 {
			return o.Price, true
		}
	}

	if buyBoxPrice > 0 {
		return buyBoxPrice, true
	}

	return 0, false
}

// extractRating reads the last rating value, reported in tenths of a
// star, and normalizes it to stars; a result still above 10 is taken as
// hundredths and divided by 10 once more.
func extractRating(csv [][]int64) (float64, bool) {
	v, ok := lastValue(csv, SeriesRating)
	if !ok || v <= 0 {
		return 0, false
	}

	rating := float64(v) / 10
	if rating > 10 {
		rating = rating / 10
	}
	return rating, true
}

func extractSalesRank(csv [][]int64) (int, bool) {
	v, ok := lastValue(csv, SeriesSalesRank)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}

func extractReviewCount(csv [][]int64) (int, bool) {
	v, ok := lastValue(csv, SeriesReviewCount)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}
