// Package dealpipeline runs the continuous deal-collection task: it
// resolves a seed set of product codes, queries the upstream API per
// domain, normalizes and scores each result, applies the spam and
// keyboard-domain filters, and fans the survivors out to persistence,
// the event log, the search index, and (when a watching user's target
// is crossed) a pending alert.
package dealpipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/internal/domain"
	ikafka "github.com/ktrack/pricecore/internal/infrastructure/kafka"
	"github.com/ktrack/pricecore/internal/infrastructure/search"
	"github.com/ktrack/pricecore/internal/keepa"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

// discoverCategory is the single category this core scans in discover
// mode; the pipeline tracks one product vertical (keyboards), so there
// is no need for a configurable category list yet.
const discoverCategory = "Computer Keyboards"

// Pipeline is the long-running deal-collection task launched by the
// scheduler at startup.
type Pipeline struct {
	client   *keepa.Client
	resolver *Resolver
	dealRepo *pgdb.CollectedDealRepo
	watchRepo *pgdb.WatchRepo
	producer *ikafka.Producer
	search   *search.Writer
	log      logger.Logger
	cfg      *cfg.DealPipelineCfg
	sourceMode string

	mu               sync.Mutex
	dealEndpointDown bool
}

func New(
	client *keepa.Client,
	dealRepo *pgdb.CollectedDealRepo,
	watchRepo *pgdb.WatchRepo,
	producer *ikafka.Producer,
	searchWriter *search.Writer,
	log logger.Logger,
	pipelineCfg *cfg.DealPipelineCfg,
	sourceMode string,
) *Pipeline {
	return &Pipeline{
		client:     client,
		resolver:   NewResolver(pipelineCfg.TargetsFile, pipelineCfg.SeedFile, pipelineCfg.SeedASINs),
		dealRepo:   dealRepo,
		watchRepo:  watchRepo,
		producer:   producer,
		search:     searchWriter,
		log:        log,
		cfg:        pipelineCfg,
		sourceMode: sourceMode,
	}
}

// Run blocks, running one iteration immediately and then every
// ScanIntervalSeconds, until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	interval := time.Duration(p.cfg.ScanIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	p.runIteration(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runIteration(ctx)
		}
	}
}

func (p *Pipeline) runIteration(ctx context.Context) {
	seeds := p.resolver.Resolve()

	if p.sourceMode == "discover" {
		seeds = append(seeds, p.discoverSupplement(ctx)...)
	}

	grouped := GroupByDomain(seeds)

	var kept []*domain.CollectedDeal
	var mu sync.Mutex

	for dom, codes := range grouped {
		results := p.collectDomain(ctx, dom, codes)
		mu.Lock()
		kept = append(kept, results...)
		mu.Unlock()
	}

	if len(kept) == 0 {
		return
	}

	inserted, err := p.dealRepo.SaveCollectedDealsBatch(ctx, kept)
	if err != nil {
		p.log.Warnf("deal pipeline: batch insert failed: %v", err)
	} else {
		p.log.Infof("deal pipeline: collected %d deals (%d new)", len(kept), inserted)
	}

	for _, d := range kept {
		p.publishAndIndex(ctx, d)
		p.maybeAlert(ctx, d)
	}
}

// discoverSupplement runs ProductFinder for the tracked category on
// every EU domain and returns the discovered codes as additional seeds.
func (p *Pipeline) discoverSupplement(ctx context.Context) []SeedCode {
	var out []SeedCode
	for _, dom := range keepa.EUDomains {
		codes, err := p.client.ProductFinder(ctx, dom, discoverCategory)
		if err != nil {
			p.log.Warnf("deal pipeline: discover seeding failed for domain %d: %v", dom, err)
			continue
		}
		for _, code := range codes {
			out = append(out, SeedCode{ProductCode: code, Domain: dom})
		}
	}
	return out
}

// collectDomain queries one domain's seed codes with bounded
// concurrency, returning the subset of results that pass normalization,
// scoring, and both filters. One failing code does not abort the batch.
func (p *Pipeline) collectDomain(ctx context.Context, dom keepa.Domain, codes []string) []*domain.CollectedDeal {
	concurrency := p.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var kept []*domain.CollectedDeal

	useDealEndpoint := p.sourceMode != "product_only" && !p.dealEndpointDisabled()

	if useDealEndpoint {
		deals, err := p.client.SearchDeals(ctx, dom, discoverCategory)
		if err == nil {
			for i := range deals {
				if d := p.evaluate(rawFromDeal(&deals[i])); d != nil {
					mu.Lock()
					kept = append(kept, d)
					mu.Unlock()
				}
			}
			return kept
		}
		if errors.Is(err, e.ErrDealAccessDenied) {
			p.disableDealEndpoint()
			p.log.Warnf("deal pipeline: deal endpoint denied for domain %d, falling back to product queries", dom)
		} else {
			p.log.Warnf("deal pipeline: deal search failed for domain %d: %v", dom, err)
		}
	}

	sourceTag := "product_query"
	if p.dealEndpointDisabled() {
		sourceTag = "product_heuristic"
	}
	p.log.Debugf("deal pipeline: domain %d using source %s for %d codes", dom, sourceTag, len(codes))

	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			product, err := p.client.QueryProduct(ctx, code, dom)
			if err != nil {
				p.log.Debugf("deal pipeline: product query failed for %s: %v", code, err)
				return
			}
			if !product.HasPrice {
				return
			}
			if d := p.evaluate(rawFromProduct(product)); d != nil {
				mu.Lock()
				kept = append(kept, d)
				mu.Unlock()
			}
		}(code)
	}
	wg.Wait()

	return kept
}

// evaluate runs the normalize -> score -> filter chain for one raw
// record, returning nil if it is dropped by either filter.
func (p *Pipeline) evaluate(raw map[string]any) *domain.CollectedDeal {
	norm := Normalize(raw)

	if IsSpam(norm) {
		return nil
	}
	if !IsKeyboard(norm) {
		return nil
	}

	return &domain.CollectedDeal{
		ID:              uuid.New(),
		ProductCode:     norm.ProductCode,
		Title:           norm.Title,
		CurrentPrice:    norm.CurrentPrice,
		OriginalPrice:   norm.OriginalPrice,
		DiscountPercent: norm.DiscountPercent,
		Rating:          norm.Rating,
		ReviewCount:     norm.ReviewCount,
		SalesRank:       norm.SalesRank,
		Domain:          norm.Domain,
		Category:        discoverCategory,
		DealScore:       Score(norm),
		URL:             norm.URL,
		PrimeEligible:   norm.PrimeEligible,
		Layout:          Layout(norm),
		CollectedAt:     time.Now(),
	}
}

func (p *Pipeline) dealEndpointDisabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dealEndpointDown
}

func (p *Pipeline) disableDealEndpoint() {
	p.mu.Lock()
	p.dealEndpointDown = true
	p.mu.Unlock()
}

func (p *Pipeline) publishAndIndex(ctx context.Context, d *domain.CollectedDeal) {
	event := ikafka.DealUpdateEvent{
		EventType:       "deal_collected",
		ProductCode:     d.ProductCode,
		ProductTitle:    d.Title,
		CurrentPrice:    d.CurrentPrice.InexactFloat64(),
		OriginalPrice:   d.OriginalPrice.InexactFloat64(),
		DiscountPercent: d.DiscountPercent.InexactFloat64(),
		Domain:          d.Domain,
		Timestamp:       d.CollectedAt.Format(time.RFC3339),
	}
	if err := p.producer.SendDealUpdate(ctx, d.ProductCode, event); err != nil {
		p.log.Warnf("deal pipeline: publish failed for %s: %v", d.ProductCode, err)
	}

	p.search.IndexDealUpdate(ctx, event)
}

// maybeAlert creates a pending alert for every active watch on this
// product/domain whose target price has been crossed by the collected
// deal's price.
func (p *Pipeline) maybeAlert(ctx context.Context, d *domain.CollectedDeal) {
	watches, err := p.watchRepo.FindByProductCode(ctx, d.ProductCode, d.Domain)
	if err != nil || len(watches) == 0 {
		return
	}

	for _, w := range watches {
		if d.CurrentPrice.GreaterThan(w.TargetPrice.Mul(decimal.NewFromFloat(1.01))) {
			continue
		}

		hasRecent, err := p.watchRepo.HasRecentAlert(ctx, w.ID, time.Hour)
		if err != nil || hasRecent {
			continue
		}

		if _, err := p.watchRepo.CreatePriceAlert(ctx, w.ID, d.CurrentPrice, w.TargetPrice, w.CurrentPrice, d.CurrentPrice); err != nil {
			p.log.Warnf("deal pipeline: alert creation failed for watch %s: %v", w.ID, err)
		}
	}
}

func rawFromDeal(d *keepa.Deal) map[string]any {
	return map[string]any{
		"productCode":     d.ProductCode,
		"title":           d.Title,
		"currentPrice":    float64(d.CurrentPrice) / 100,
		"originalPrice":   float64(d.OriginalPrice) / 100,
		"discountPercent": d.DiscountPercent,
		"rating":          d.Rating,
		"reviewCount":     d.ReviewCount,
		"salesRank":       d.SalesRank,
		"category":        d.Category,
		"url":             d.URL,
		"primeEligible":   d.PrimeEligible,
		"domain":          int(d.Domain),
	}
}

func rawFromProduct(p *keepa.Product) map[string]any {
	return map[string]any{
		"productCode":  p.ProductCode,
		"title":        p.Title,
		"currentPrice": float64(p.PriceCents) / 100,
		"rating":       p.Rating,
		"reviewCount":  p.ReviewCount,
		"salesRank":    p.SalesRank,
		"url":          p.URL,
		"domain":       int(p.Domain),
	}
}
