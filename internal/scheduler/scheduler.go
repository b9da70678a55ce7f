// Package scheduler runs the two periodic cycles that sit on top of the
// deal pipeline: a price re-check sweep over every active watch, and a
// lower-frequency daily deal-report cycle that evaluates each user's
// saved deal filter against recently collected deals.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/internal/domain"
	ikafka "github.com/ktrack/pricecore/internal/infrastructure/kafka"
	minioinfra "github.com/ktrack/pricecore/internal/infrastructure/minio"
	"github.com/ktrack/pricecore/internal/infrastructure/search"
	"github.com/ktrack/pricecore/internal/keepa"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	"github.com/ktrack/pricecore/pkg/logger"
)

// dealReportsPerCheckCycles is how many price-check ticks make up one
// daily deal-report tick: with the default 6h check interval that is
// 4 ticks, i.e. once every 24h.
const dealReportsPerCheckCycles = 4

// reportLookbackHours bounds how far back RecentByCategory looks when
// building a daily deal report.
const reportLookbackHours = 24

// Scheduler owns the two periodic cycles: the price check and the daily
// deal report. The long-running deal collection task is started
// separately by the app.
type Scheduler struct {
	client     *keepa.Client
	watchRepo  *pgdb.WatchRepo
	filterRepo *pgdb.DealFilterRepo
	dealRepo   *pgdb.CollectedDealRepo
	reportRepo *pgdb.DealReportRepo
	producer   *ikafka.Producer
	search     *search.Writer
	archiver   *minioinfra.ReportArchiver
	log        logger.Logger
	cfg        *cfg.SchedulerCfg

	cycle int
}

func New(
	client *keepa.Client,
	watchRepo *pgdb.WatchRepo,
	filterRepo *pgdb.DealFilterRepo,
	dealRepo *pgdb.CollectedDealRepo,
	reportRepo *pgdb.DealReportRepo,
	producer *ikafka.Producer,
	searchWriter *search.Writer,
	archiver *minioinfra.ReportArchiver,
	log logger.Logger,
	schedulerCfg *cfg.SchedulerCfg,
) *Scheduler {
	return &Scheduler{
		client:     client,
		watchRepo:  watchRepo,
		filterRepo: filterRepo,
		dealRepo:   dealRepo,
		reportRepo: reportRepo,
		producer:   producer,
		search:     searchWriter,
		archiver:   archiver,
		log:        log,
		cfg:        schedulerCfg,
	}
}

// Run blocks, running one price-check cycle immediately and then every
// CheckIntervalSeconds, folding in a deal-report cycle every
// dealReportsPerCheckCycles ticks, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.CheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	s.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.runPriceCheck(ctx)

	if s.cycle%dealReportsPerCheckCycles == 0 {
		s.runDailyDealReports(ctx)
	}
	s.cycle++
}

// runPriceCheck fans out one price fetch per active watch, bounded by
// ParallelPriceFetch concurrent calls, persisting and publishing every
// successful result.
func (s *Scheduler) runPriceCheck(ctx context.Context) {
	watches, err := s.watchRepo.GetActiveWatches(ctx)
	if err != nil {
		s.log.Warnf("scheduler: failed to load active watches: %v", err)
		return
	}
	if len(watches) == 0 {
		return
	}

	concurrency := s.cfg.ParallelPriceFetch
	if concurrency <= 0 {
		concurrency = 5
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for _, w := range watches {
		wg.Add(1)
		go func(w *domain.WatchedProduct) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s.checkOneWatch(ctx, w)
		}(w)
	}
	wg.Wait()
}

func (s *Scheduler) checkOneWatch(ctx context.Context, w *domain.WatchedProduct) {
	product, err := s.client.QueryProduct(ctx, w.ProductCode, keepa.Domain(w.Domain))
	if err != nil {
		s.log.Debugf("scheduler: price check failed for watch %s (%s): %v", w.ID, w.ProductCode, err)
		return
	}
	if !product.HasPrice {
		return
	}

	newPrice := decimal.New(product.PriceCents, -2)
	oldPrice := w.CurrentPrice

	updated, err := s.watchRepo.UpdateWatchPrice(ctx, w.ID, newPrice, "keepa_scheduler")
	if err != nil {
		s.log.Warnf("scheduler: price update failed for watch %s: %v", w.ID, err)
		return
	}

	percentChange := 0.0
	if oldPrice.IsPositive() {
		percentChange, _ = newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100)).Float64()
	}

	event := ikafka.PriceUpdateEvent{
		EventType:     "price_checked",
		ProductCode:   updated.ProductCode,
		ProductTitle:  updated.Title,
		CurrentPrice:  newPrice.InexactFloat64(),
		TargetPrice:   updated.TargetPrice.InexactFloat64(),
		PreviousPrice: oldPrice.InexactFloat64(),
		PercentChange: percentChange,
		Domain:        updated.Domain,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	if err := s.producer.SendPriceUpdate(ctx, updated.ProductCode, event); err != nil {
		s.log.Warnf("scheduler: price event publish failed for watch %s: %v", w.ID, err)
	}
	s.search.IndexPriceUpdate(ctx, event)

	if !updated.TargetCrossed() {
		return
	}

	hasRecent, err := s.watchRepo.HasRecentAlert(ctx, updated.ID, time.Hour)
	if err != nil {
		s.log.Warnf("scheduler: alert dedup check failed for watch %s: %v", w.ID, err)
		return
	}
	if hasRecent {
		return
	}

	if _, err := s.watchRepo.CreatePriceAlert(ctx, updated.ID, newPrice, updated.TargetPrice, oldPrice, newPrice); err != nil {
		s.log.Warnf("scheduler: alert creation failed for watch %s: %v", w.ID, err)
	}
}

// runDailyDealReports evaluates every active deal filter against
// recently collected deals, archives and persists a report for each
// filter that matched at least one deal.
func (s *Scheduler) runDailyDealReports(ctx context.Context) {
	filters, err := s.filterRepo.ListActiveDealFilters(ctx)
	if err != nil {
		s.log.Warnf("scheduler: failed to load active deal filters: %v", err)
		return
	}

	for _, f := range filters {
		s.runOneDealReport(ctx, f)
	}
}

func (s *Scheduler) runOneDealReport(ctx context.Context, f *domain.DealFilter) {
	category := ""
	if len(f.Categories) == 1 {
		category = f.Categories[0]
	}

	recent, err := s.dealRepo.RecentByCategory(ctx, category, reportLookbackHours)
	if err != nil {
		s.log.Warnf("scheduler: failed to load recent deals for filter %s: %v", f.ID, err)
		return
	}

	var matched []*domain.CollectedDeal
	for _, d := range recent {
		if f.Matches(d) {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		return
	}

	reportID := uuid.New()
	payloadRef, err := s.archiver.ArchivePayload(ctx, reportID, matched)
	if err != nil {
		s.log.Warnf("scheduler: failed to archive deal report payload for filter %s: %v", f.ID, err)
		return
	}

	report := &domain.DealReport{
		ID:         reportID,
		FilterID:   f.ID,
		PayloadRef: payloadRef,
	}
	if _, err := s.reportRepo.SaveDealReport(ctx, report); err != nil {
		s.log.Warnf("scheduler: failed to persist deal report for filter %s: %v", f.ID, err)
		s.archiver.CleanupDiscarded(payloadRef)
		return
	}

	s.log.Infof("scheduler: generated deal report %s for filter %s (%d matches)", reportID, f.ID, len(matched))
}
