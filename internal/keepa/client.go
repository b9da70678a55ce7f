// Package keepa talks to the rate-limited external price API: resolving
// current prices and metadata for tracked products, searching the
// provider's deal feed, and discovering new product codes by category.
// Every call is gated by a shared token bucket and synced back against
// the server-reported token balance afterward.
package keepa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/tokenbucket"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/jitter"
	"github.com/ktrack/pricecore/pkg/logger"
)

const (
	baseURL = "https://api.keepa.com"

	productCost = 15
	dealCost    = 5
	finderCost  = 10
	statusCost  = 0

	retryBase    = time.Second
	retryMax     = 4 * time.Second
	maxRetries   = 1
	throttlePause = 60 * time.Second
)

// Client is the EU-marketplace price API client. One Client is shared
// process-wide; its Bucket field is the sole admission point for every
// outbound call.
type Client struct {
	httpClient *http.Client
	bucket     *tokenbucket.Bucket
	apiKey     string
	log        logger.Logger
}

func New(apiKey string, bucket *tokenbucket.Bucket, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		bucket:     bucket,
		apiKey:     apiKey,
		log:        log,
	}
}

func isValidProductCode(code string) bool {
	if len(code) != 10 {
		return false
	}
	for _, r := range code {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}

// QueryProduct resolves the current price and a handful of ranking
// signals for a single product code on a given marketplace.
func (c *Client) QueryProduct(ctx context.Context, productCode string, domain Domain) (*Product, error) {
	if !isValidProductCode(productCode) {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidAsin)
	}

	if err := c.bucket.Acquire(ctx, productCost, 0); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("domain", strconv.Itoa(int(domain)))
	q.Set("asin", productCode)
	q.Set("stats", "90")
	q.Set("history", "1")
	q.Set("offers", "20")

	var raw rawProductResponse
	if err := c.doGet(ctx, "/product", q, &raw); err != nil {
		return nil, err
	}

	c.bucket.Sync(raw.TokensLeft)

	if len(raw.Products) == 0 {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidResponse)
	}

	p := raw.Products[0]

	statsCurrent := make(map[int]int64, len(p.Stats.Current))
	for idx, v := range p.Stats.Current {
		statsCurrent[idx] = v
	}

	offers := make([]offer, len(p.Offers))
	for i, o := range p.Offers {
		offers[i] = offer{Price: o.Price}
	}

	priceCents, hasPrice := extractCurrentPriceCents(p.CSV, statsCurrent, offers, p.BuyBoxPrice)
	rating, _ := extractRating(p.CSV)
	salesRank, _ := extractSalesRank(p.CSV)
	reviewCount, _ := extractReviewCount(p.CSV)

	return &Product{
		ProductCode: productCode,
		Title:       p.Title,
		Domain:      domain,
		PriceCents:  priceCents,
		HasPrice:    hasPrice,
		Rating:      rating,
		SalesRank:   salesRank,
		ReviewCount: reviewCount,
		URL:         ProductURL(domain, productCode),
		FetchedAt:   time.Now(),
	}, nil
}

// SearchDeals pages through the provider's deal feed for a marketplace,
// returning raw deal candidates for the pipeline to normalize and score.
func (c *Client) SearchDeals(ctx context.Context, domain Domain, category string) ([]Deal, error) {
	if err := c.bucket.Acquire(ctx, dealCost, 0); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	body := map[string]any{
		"domainId": int(domain),
	}
	if category != "" {
		body["includeCategories"] = []string{category}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)

	var raw rawDealResponse
	if err := c.doPost(ctx, "/deal", q, payload, &raw); err != nil {
		return nil, err
	}

	c.bucket.Sync(raw.TokensLeft)

	deals := make([]Deal, 0, len(raw.Deals.DealObjects))
	for _, d := range raw.Deals.DealObjects {
		deals = append(deals, Deal{
			ProductCode:     d.Asin,
			Title:           d.Title,
			CurrentPrice:    d.CurrentPrice,
			OriginalPrice:   d.OriginalPrice,
			DiscountPercent: d.DiscountPercent,
			Rating:          normalizeFlatRating(d.Rating),
			ReviewCount:     d.ReviewCount,
			SalesRank:       d.SalesRank,
			Domain:          domain,
			Category:        d.Category,
			URL:             ProductURL(domain, d.Asin),
			PrimeEligible:   d.IsPrime,
		})
	}
	return deals, nil
}

func normalizeFlatRating(v int64) float64 {
	if v <= 0 {
		return 0
	}
	rating := float64(v) / 10
	if rating > 10 {
		rating = rating / 10
	}
	return rating
}

// ProductFinder discovers product codes in a category on a marketplace,
// used when deal_source_mode=discover supplements the seed list.
func (c *Client) ProductFinder(ctx context.Context, domain Domain, category string) ([]string, error) {
	if err := c.bucket.Acquire(ctx, finderCost, 0); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	body := map[string]any{
		"domainId":   int(domain),
		"categories": []string{category},
		"perPage":    50,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)

	var raw rawFinderResponse
	if err := c.doPost(ctx, "/query", q, payload, &raw); err != nil {
		return nil, err
	}

	c.bucket.Sync(raw.TokensLeft)
	return raw.AsinList, nil
}

// GetTokenStatus is a free call reporting the server's view of the
// remaining token balance, used to periodically reconcile drift.
func (c *Client) GetTokenStatus(ctx context.Context) (*TokenStatus, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)

	var raw rawTokenResponse
	if err := c.doGet(ctx, "/token", q, &raw); err != nil {
		return nil, err
	}

	c.bucket.Sync(raw.TokensLeft)

	return &TokenStatus{
		Available:     raw.TokensLeft,
		RefillIn:      time.Duration(raw.RefillIn) * time.Millisecond,
		RatePerMinute: raw.RefillRate,
	}, nil
}

func (c *Client) doGet(ctx context.Context, path string, q url.Values, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, q, nil, out)
}

func (c *Client) doPost(ctx context.Context, path string, q url.Values, body []byte, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, q, body, out)
}

// doRequest executes one HTTP round trip with the upstream's error
// taxonomy translated into sentinel errors, retrying transient failures
// with jittered backoff and pausing once on throttling.
func (c *Client) doRequest(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		status, respBody, err := c.rawRequest(ctx, method, path, q, body)
		if err != nil {
			lastErr = e.Wrap(whereami.WhereAmI(), e.ErrUpstreamUnavailable)
			if !c.sleepBeforeRetry(ctx, attempt) {
				break
			}
			continue
		}

		switch {
		case status == http.StatusNotFound:
			return e.Wrap(whereami.WhereAmI(), e.ErrDealAccessDenied)
		case status == http.StatusTooManyRequests:
			if attempt >= 1 {
				return e.Wrap(whereami.WhereAmI(), e.ErrUpstreamThrottled)
			}
			c.log.Warnf("keepa: throttled, pausing %s before single retry", throttlePause)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(throttlePause):
			}
			lastErr = e.Wrap(whereami.WhereAmI(), e.ErrUpstreamThrottled)
			continue
		case status >= 500:
			lastErr = e.Wrap(whereami.WhereAmI(), e.ErrUpstreamUnavailable)
			if !c.sleepBeforeRetry(ctx, attempt) {
				return lastErr
			}
			continue
		case status >= 400:
			return e.Wrap(whereami.WhereAmI(), e.ErrInvalidInput)
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return e.Wrap(whereami.WhereAmI(), e.ErrInvalidResponse)
		}
		return nil
	}

	return lastErr
}

func (c *Client) sleepBeforeRetry(ctx context.Context, attempt int) bool {
	if attempt >= maxRetries {
		return false
	}
	wait := jitter.ExponentialBackoff(retryBase, retryMax, attempt, jitter.DefaultJitter)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

func (c *Client) rawRequest(ctx context.Context, method, path string, q url.Values, body []byte) (int, []byte, error) {
	u := baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, respBody, nil
}
