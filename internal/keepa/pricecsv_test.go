package keepa

import "testing"

func series(seriesIndex int, n int, lastValue int64) [][]int64 {
	csv := make([][]int64, seriesIndex+1)
	csv[seriesIndex] = []int64{0, lastValue - 1, 1, lastValue}
	return csv
}

func TestExtractCurrentPriceCentsPrefersAmazonSeries(t *testing.T) {
	csv := make([][]int64, SeriesBuyBox+1)
	csv[SeriesAmazon] = []int64{0, 1999}
	csv[SeriesBuyBox] = []int64{0, 999}

	price, ok := extractCurrentPriceCents(csv, nil, nil, 0)
	if !ok || price != 1999 {
		t.Fatalf("want amazon price 1999, got %d ok=%v", price, ok)
	}
}

func TestExtractCurrentPriceCentsSkipsUnavailableSeries(t *testing.T) {
	csv := make([][]int64, SeriesBuyBox+1)
	csv[SeriesAmazon] = []int64{0, -1}
	csv[SeriesBuyBox] = []int64{0, 1599}

	price, ok := extractCurrentPriceCents(csv, nil, nil, 0)
	if !ok || price != 1599 {
		t.Fatalf("want buybox fallback 1599, got %d ok=%v", price, ok)
	}
}

func TestExtractCurrentPriceCentsFallsBackToStats(t *testing.T) {
	csv := [][]int64{}
	stats := map[int]int64{SeriesNewFBA: 2499}

	price, ok := extractCurrentPriceCents(csv, stats, nil, 0)
	if !ok || price != 2499 {
		t.Fatalf("want stats fallback 2499, got %d ok=%v", price, ok)
	}
}

func TestExtractCurrentPriceCentsFallsBackToOffers(t *testing.T) {
	offers := []offer{{Price: 0}, {Price: 3199}}

	price, ok := extractCurrentPriceCents(nil, nil, offers, 0)
	if !ok || price != 3199 {
		t.Fatalf("want offer fallback 3199, got %d ok=%v", price, ok)
	}
}

func TestExtractCurrentPriceCentsFallsBackToBuyBoxPrice(t *testing.T) {
	price, ok := extractCurrentPriceCents(nil, nil, nil, 4599)
	if !ok || price != 4599 {
		t.Fatalf("want buyBoxPrice fallback 4599, got %d ok=%v", price, ok)
	}
}

func TestExtractCurrentPriceCentsNoSignalReturnsFalse(t *testing.T) {
	_, ok := extractCurrentPriceCents(nil, nil, nil, 0)
	if ok {
		t.Fatal("expected no price to resolve")
	}
}

func TestExtractRatingHalfStarEncoding(t *testing.T) {
	csv := series(SeriesRating, 1, 45) // 4.5 stars encoded as 45
	rating, ok := extractRating(csv)
	if !ok || rating != 4.5 {
		t.Fatalf("want 4.5, got %v ok=%v", rating, ok)
	}
}

func TestExtractRatingDoubleEncodedAnomaly(t *testing.T) {
	csv := series(SeriesRating, 1, 450) // anomalous double-scaled value
	rating, ok := extractRating(csv)
	if !ok || rating != 4.5 {
		t.Fatalf("want re-normalized 4.5, got %v ok=%v", rating, ok)
	}
}

func TestExtractRatingAbsentSeries(t *testing.T) {
	_, ok := extractRating(nil)
	if ok {
		t.Fatal("expected no rating")
	}
}

func TestExtractSalesRankAndReviewCount(t *testing.T) {
	csv := make([][]int64, SeriesReviewCount+1)
	csv[SeriesSalesRank] = []int64{0, 12000}
	csv[SeriesReviewCount] = []int64{0, 340}

	rank, ok := extractSalesRank(csv)
	if !ok || rank != 12000 {
		t.Fatalf("want rank 12000, got %d ok=%v", rank, ok)
	}

	reviews, ok := extractReviewCount(csv)
	if !ok || reviews != 340 {
		t.Fatalf("want reviews 340, got %d ok=%v", reviews, ok)
	}
}
