// Package search writes price and deal events into an Elasticsearch-
// compatible index and serves the read-only aggregation queries behind
// the HTTP façade's search endpoints. Writes are best-effort: a failed
// index write never aborts the caller, since the relational store
// remains the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/jitter"
	"github.com/ktrack/pricecore/pkg/logger"
)

const (
	indexRetries  = 3
	indexBackoff  = time.Second
	indexBackoffMax = 4 * time.Second
)

type Writer struct {
	client *elasticsearch.Client
	cfg    *cfg.ElasticCfg
	log    logger.Logger
}

func New(elasticCfg *cfg.ElasticCfg, log logger.Logger) (*Writer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{elasticCfg.URL},
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return &Writer{client: client, cfg: elasticCfg, log: log}, nil
}

// EnsureIndices creates each of the three indexes with its declared
// mapping if it does not already exist.
func (w *Writer) EnsureIndices(ctx context.Context) error {
	indices := map[string]string{
		w.cfg.IndexPrices:  priceIndexMapping,
		w.cfg.IndexDeals:   dealIndexMapping,
		w.cfg.IndexMetrics: metricsIndexMapping,
	}
	for name, mapping := range indices {
		exists, err := w.indexExists(ctx, name)
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		if exists {
			continue
		}
		resp, err := w.client.Indices.Create(name, w.client.Indices.Create.WithContext(ctx), w.client.Indices.Create.WithBody(strings.NewReader(mapping)))
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		defer resp.Body.Close()
		if resp.IsError() {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("create index %s: %s", name, resp.String()))
		}
		w.log.Infof("created search index %s", name)
	}
	return nil
}

func (w *Writer) indexExists(ctx context.Context, name string) (bool, error) {
	resp, err := w.client.Indices.Exists([]string{name}, w.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == 200, nil
}

// IndexPriceUpdate writes a price document into keeper-prices with
// three-retry exponential backoff, never returning an error that would
// abort the caller's own write path.
func (w *Writer) IndexPriceUpdate(ctx context.Context, doc any) {
	w.indexWithRetry(ctx, w.cfg.IndexPrices, doc)
}

// IndexDealUpdate writes a deal document into keeper-deals.
func (w *Writer) IndexDealUpdate(ctx context.Context, doc any) {
	w.indexWithRetry(ctx, w.cfg.IndexDeals, doc)
}

// IndexTokenMetric writes a token-bucket telemetry document into
// keeper-metrics. No retry: this is pure telemetry, never read back by
// any consumer in this core.
func (w *Writer) IndexTokenMetric(ctx context.Context, doc any) {
	body, err := json.Marshal(doc)
	if err != nil {
		return
	}
	resp, err := w.client.Index(w.cfg.IndexMetrics, bytes.NewReader(body), w.client.Index.WithContext(ctx))
	if err != nil {
		w.log.Warnf("token metric index failed: %v", err)
		return
	}
	resp.Body.Close()
}

func (w *Writer) indexWithRetry(ctx context.Context, index string, doc any) {
	body, err := json.Marshal(doc)
	if err != nil {
		w.log.Warnf("search: marshal failed for %s: %v", index, err)
		return
	}

	for attempt := 0; attempt < indexRetries; attempt++ {
		resp, err := w.client.Index(index, bytes.NewReader(body), w.client.Index.WithContext(ctx))
		if err == nil {
			ok := !resp.IsError()
			resp.Body.Close()
			if ok {
				return
			}
		}

		if attempt < indexRetries-1 {
			wait := jitter.ExponentialBackoff(indexBackoff, indexBackoffMax, attempt, jitter.DefaultJitter)
			w.log.Warnf("search index retry %d/%d for %s, waiting %s", attempt+1, indexRetries, index, wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
	w.log.Warnf("search index failed after %d retries for %s", indexRetries, index)
}

// DeleteOldData drops documents older than the given number of days
// from both the prices and deals indexes, returning the deleted count.
func (w *Writer) DeleteOldData(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)
	query := fmt.Sprintf(`{"query":{"range":{"timestamp":{"lt":%q}}}}`, cutoff)

	resp, err := w.client.DeleteByQuery(
		[]string{w.cfg.IndexPrices, w.cfg.IndexDeals},
		strings.NewReader(query),
		w.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return 0, e.Wrap(whereami.WhereAmI(), fmt.Errorf("delete_by_query: %s", resp.String()))
	}

	var decoded struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, nil // best-effort count; deletion itself already succeeded
	}
	return decoded.Deleted, nil
}

func (w *Writer) Close() error {
	return nil
}
