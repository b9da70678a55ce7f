package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/pkg/e"
)

// PriceSearchCriteria narrows a search_prices-style query against the
// prices index. Zero values are treated as "no filter" for that field.
type PriceSearchCriteria struct {
	ProductCode string
	MinPrice    float64
	MaxPrice    float64
	Domain      int
	From        time.Time
	To          time.Time
	Page        int
	Size        int
}

// PriceSearchResult is one page of price documents, newest first.
type PriceSearchResult struct {
	Total int               `json:"total"`
	Hits  []json.RawMessage `json:"hits"`
}

// PriceStatistics summarizes the price history of one product code:
// min/max/avg plus a coarse histogram of observed price buckets.
type PriceStatistics struct {
	Min             float64          `json:"min"`
	Max             float64          `json:"max"`
	Avg             float64          `json:"avg"`
	DataPoints      int              `json:"dataPoints"`
	HistogramBucket map[string]int64 `json:"histogramBuckets"`
}

// DealAggregations summarizes the current deal pool by discount bucket
// and marketplace domain, matching get_deal_aggregations.
type DealAggregations struct {
	ByDiscount  map[string]int64 `json:"byDiscount"`
	ByDomain    map[string]int64 `json:"byDomain"`
	AvgPrice    float64          `json:"avgPrice"`
	AvgDiscount float64          `json:"avgDiscount"`
}

// DealPriceStats reconstructs a product's price trajectory purely from
// deal snapshots indexed into keeper-deals, matching get_deal_price_stats.
type DealPriceStats struct {
	Min           float64          `json:"min"`
	Max           float64          `json:"max"`
	Avg           float64          `json:"avg"`
	Current       float64          `json:"current"`
	DataPoints    int              `json:"dataPoints"`
	PriceOverTime []DailyPriceStat `json:"priceOverTime"`
}

type DailyPriceStat struct {
	Date     string  `json:"date"`
	AvgPrice float64 `json:"avgPrice"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}

// SearchPrices runs a bool/must query over the prices index, sorted by
// timestamp descending, paginated by page/size.
func (w *Writer) SearchPrices(ctx context.Context, c PriceSearchCriteria) (*PriceSearchResult, error) {
	var must []map[string]any

	if c.ProductCode != "" {
		must = append(must, map[string]any{"term": map[string]any{"productCode": c.ProductCode}})
	}
	if c.MinPrice > 0 || c.MaxPrice > 0 {
		rng := map[string]any{}
		if c.MinPrice > 0 {
			rng["gte"] = c.MinPrice
		}
		if c.MaxPrice > 0 {
			rng["lte"] = c.MaxPrice
		}
		must = append(must, map[string]any{"range": map[string]any{"currentPrice": rng}})
	}
	if c.Domain != 0 {
		must = append(must, map[string]any{"term": map[string]any{"domain": c.Domain}})
	}
	if !c.From.IsZero() || !c.To.IsZero() {
		rng := map[string]any{}
		if !c.From.IsZero() {
			rng["gte"] = c.From.Format(time.RFC3339)
		}
		if !c.To.IsZero() {
			rng["lte"] = c.To.Format(time.RFC3339)
		}
		must = append(must, map[string]any{"range": map[string]any{"timestamp": rng}})
	}

	var query map[string]any
	if len(must) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must}}
	} else {
		query = map[string]any{"match_all": map[string]any{}}
	}

	size := c.Size
	if size <= 0 {
		size = 20
	}

	body := map[string]any{
		"query": query,
		"from":  c.Page * size,
		"size":  size,
		"sort":  []map[string]any{{"timestamp": "desc"}},
	}

	raw, err := w.doSearch(ctx, w.cfg.IndexPrices, body)
	if err != nil {
		return nil, err
	}
	return parsePriceSearchResult(raw)
}

// PriceStatisticsFor computes min/max/avg plus a price histogram for
// the given product code, matching get_price_statistics.
func (w *Writer) PriceStatisticsFor(ctx context.Context, productCode string) (*PriceStatistics, error) {
	body := map[string]any{
		"query": map[string]any{"term": map[string]any{"productCode": productCode}},
		"size":  0,
		"aggs": map[string]any{
			"price_stats":   map[string]any{"stats": map[string]any{"field": "currentPrice"}},
			"price_changes": map[string]any{"histogram": map[string]any{"field": "currentPrice", "interval": 10}},
		},
	}
	raw, err := w.doSearch(ctx, w.cfg.IndexPrices, body)
	if err != nil {
		return nil, err
	}
	return parsePriceStatistics(raw)
}

// DealAggregationsFor summarizes discount/domain distribution across
// the current deal pool, matching get_deal_aggregations.
func (w *Writer) DealAggregationsFor(ctx context.Context, minDiscount, minRating float64, domain int) (*DealAggregations, error) {
	must := []map[string]any{
		{"range": map[string]any{"discountPercent": map[string]any{"gte": minDiscount}}},
		{"range": map[string]any{"rating": map[string]any{"gte": minRating}}},
	}
	if domain != 0 {
		must = append(must, map[string]any{"term": map[string]any{"domain": domain}})
	}

	body := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"size":  0,
		"aggs": map[string]any{
			"by_discount":  map[string]any{"terms": map[string]any{"field": "discountPercent", "size": 10}},
			"by_domain":    map[string]any{"terms": map[string]any{"field": "domain"}},
			"avg_price":    map[string]any{"avg": map[string]any{"field": "currentPrice"}},
			"avg_discount": map[string]any{"avg": map[string]any{"field": "discountPercent"}},
		},
	}
	raw, err := w.doSearch(ctx, w.cfg.IndexDeals, body)
	if err != nil {
		return nil, err
	}
	return parseDealAggregations(raw)
}

// DealPriceStatsFor reconstructs a product's observed price trajectory
// from deal snapshots, matching get_deal_price_stats.
func (w *Writer) DealPriceStatsFor(ctx context.Context, productCode string) (*DealPriceStats, error) {
	body := map[string]any{
		"query": map[string]any{"term": map[string]any{"productCode": productCode}},
		"size":  0,
		"aggs": map[string]any{
			"price_stats": map[string]any{"stats": map[string]any{"field": "currentPrice"}},
			"latest_price": map[string]any{
				"top_hits": map[string]any{
					"size":    1,
					"sort":    []map[string]any{{"timestamp": "desc"}},
					"_source": []string{"currentPrice", "timestamp"},
				},
			},
			"price_over_time": map[string]any{
				"date_histogram": map[string]any{"field": "timestamp", "calendar_interval": "day"},
				"aggs": map[string]any{
					"avg_price": map[string]any{"avg": map[string]any{"field": "currentPrice"}},
					"min_price": map[string]any{"min": map[string]any{"field": "currentPrice"}},
					"max_price": map[string]any{"max": map[string]any{"field": "currentPrice"}},
				},
			},
		},
	}
	raw, err := w.doSearch(ctx, w.cfg.IndexDeals, body)
	if err != nil {
		return nil, err
	}
	return parseDealPriceStats(raw)
}

func (w *Writer) doSearch(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	resp, err := w.client.Search(
		w.client.Search.WithContext(ctx),
		w.client.Search.WithIndex(index),
		w.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("search %s: %s", index, resp.String()))
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return decoded, nil
}

func parsePriceSearchResult(raw map[string]any) (*PriceSearchResult, error) {
	result := &PriceSearchResult{}

	hitsBlock, _ := raw["hits"].(map[string]any)
	if hitsBlock == nil {
		return result, nil
	}

	if totalBlock, ok := hitsBlock["total"].(map[string]any); ok {
		if v, ok := totalBlock["value"].(float64); ok {
			result.Total = int(v)
		}
	}

	hitList, _ := hitsBlock["hits"].([]any)
	for _, h := range hitList {
		hit, ok := h.(map[string]any)
		if !ok {
			continue
		}
		source, err := json.Marshal(hit["_source"])
		if err != nil {
			continue
		}
		result.Hits = append(result.Hits, json.RawMessage(source))
	}
	return result, nil
}

func parsePriceStatistics(raw map[string]any) (*PriceStatistics, error) {
	stats := &PriceStatistics{HistogramBucket: map[string]int64{}}

	aggs, _ := raw["aggregations"].(map[string]any)
	if aggs == nil {
		return stats, nil
	}

	if priceStats, ok := aggs["price_stats"].(map[string]any); ok {
		stats.Min = floatOf(priceStats["min"])
		stats.Max = floatOf(priceStats["max"])
		stats.Avg = floatOf(priceStats["avg"])
		stats.DataPoints = int(floatOf(priceStats["count"]))
	}

	if histogram, ok := aggs["price_changes"].(map[string]any); ok {
		buckets, _ := histogram["buckets"].([]any)
		for _, b := range buckets {
			bucket, ok := b.(map[string]any)
			if !ok {
				continue
			}
			key := fmt.Sprintf("%v", bucket["key"])
			stats.HistogramBucket[key] = int64(floatOf(bucket["doc_count"]))
		}
	}
	return stats, nil
}

func parseDealAggregations(raw map[string]any) (*DealAggregations, error) {
	result := &DealAggregations{ByDiscount: map[string]int64{}, ByDomain: map[string]int64{}}

	aggs, _ := raw["aggregations"].(map[string]any)
	if aggs == nil {
		return result, nil
	}

	fillTermsBucket(aggs, "by_discount", result.ByDiscount)
	fillTermsBucket(aggs, "by_domain", result.ByDomain)

	if avgPrice, ok := aggs["avg_price"].(map[string]any); ok {
		result.AvgPrice = floatOf(avgPrice["value"])
	}
	if avgDiscount, ok := aggs["avg_discount"].(map[string]any); ok {
		result.AvgDiscount = floatOf(avgDiscount["value"])
	}
	return result, nil
}

func fillTermsBucket(aggs map[string]any, key string, dest map[string]int64) {
	agg, ok := aggs[key].(map[string]any)
	if !ok {
		return
	}
	buckets, _ := agg["buckets"].([]any)
	for _, b := range buckets {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		dest[fmt.Sprintf("%v", bucket["key"])] = int64(floatOf(bucket["doc_count"]))
	}
}

func parseDealPriceStats(raw map[string]any) (*DealPriceStats, error) {
	result := &DealPriceStats{}

	aggs, _ := raw["aggregations"].(map[string]any)
	if aggs == nil {
		return result, nil
	}

	if priceStats, ok := aggs["price_stats"].(map[string]any); ok {
		result.Min = floatOf(priceStats["min"])
		result.Max = floatOf(priceStats["max"])
		result.Avg = floatOf(priceStats["avg"])
		result.DataPoints = int(floatOf(priceStats["count"]))
	}

	if latest, ok := aggs["latest_price"].(map[string]any); ok {
		if hitsBlock, ok := latest["hits"].(map[string]any); ok {
			if hitList, ok := hitsBlock["hits"].([]any); ok && len(hitList) > 0 {
				if hit, ok := hitList[0].(map[string]any); ok {
					if source, ok := hit["_source"].(map[string]any); ok {
						result.Current = floatOf(source["currentPrice"])
					}
				}
			}
		}
	}

	if overTime, ok := aggs["price_over_time"].(map[string]any); ok {
		buckets, _ := overTime["buckets"].([]any)
		for _, b := range buckets {
			bucket, ok := b.(map[string]any)
			if !ok {
				continue
			}
			day := DailyPriceStat{Date: fmt.Sprintf("%v", bucket["key_as_string"])}
			if avg, ok := bucket["avg_price"].(map[string]any); ok {
				day.AvgPrice = floatOf(avg["value"])
			}
			if min, ok := bucket["min_price"].(map[string]any); ok {
				day.MinPrice = floatOf(min["value"])
			}
			if max, ok := bucket["max_price"].(map[string]any); ok {
				day.MaxPrice = floatOf(max["value"])
			}
			result.PriceOverTime = append(result.PriceOverTime, day)
		}
	}
	return result, nil
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}
