// Package app wires every component's constructor together in
// dependency order and owns the process lifecycle: startup, the
// blocking run, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	config "github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/internal/alertdispatch"
	"github.com/ktrack/pricecore/internal/dealpipeline"
	v1Http "github.com/ktrack/pricecore/internal/delivery/v1/http"
	ikafka "github.com/ktrack/pricecore/internal/infrastructure/kafka"
	minioInfra "github.com/ktrack/pricecore/internal/infrastructure/minio"
	"github.com/ktrack/pricecore/internal/infrastructure/search"
	"github.com/ktrack/pricecore/internal/keepa"
	s3Repo "github.com/ktrack/pricecore/internal/repository/minio"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	redisRepo "github.com/ktrack/pricecore/internal/repository/redis"
	"github.com/ktrack/pricecore/internal/scheduler"
	"github.com/ktrack/pricecore/internal/tokenbucket"
	"github.com/ktrack/pricecore/internal/usecase"
	"github.com/ktrack/pricecore/pkg/closer"
	"github.com/ktrack/pricecore/pkg/clients"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
	"github.com/ktrack/pricecore/pkg/postgres"
	"github.com/jimlawless/whereami"
)

// shutdownGrace bounds the graceful shutdown pass, per SPEC_FULL's
// default 30s cancellation deadline.
const shutdownGrace = 30 * time.Second

// App owns every long-running task and the resources they share. Run
// blocks until a shutdown signal or a fatal startup/serving error.
type App struct {
	cfg    *config.Config
	log    logger.Logger
	closer *closer.Closer

	db           *postgres.PgDatabase
	producer     *ikafka.Producer
	searchWriter *search.Writer
	priceConsumer *ikafka.PriceConsumer
	dealConsumer  *ikafka.DealConsumer
	pipeline     *dealpipeline.Pipeline
	sched        *scheduler.Scheduler
	dispatcher   *alertdispatch.Dispatcher
	httpSrv      *v1Http.Server
}

// NewApp constructs every component in dependency order, failing fast
// on the first unrecoverable error.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	const op = "app.NewApp"

	db, err := initPGDB(log, cfg)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	userRepo := pgdb.NewUserRepo(db.Pool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := userRepo.EnsureSystemUser(ctx); err != nil {
		cancel()
		return nil, e.Wrap(op, err)
	}
	cancel()

	watchRepo := pgdb.NewWatchRepo(db.Pool)
	filterRepo := pgdb.NewDealFilterRepo(db.Pool)
	dealRepo := pgdb.NewCollectedDealRepo(db.Pool)
	reportRepo := pgdb.NewDealReportRepo(db.Pool)
	alertRepo := pgdb.NewPriceAlertRepo(db.Pool)

	backfillCtx, backfillCancel := context.WithTimeout(context.Background(), 30*time.Second)
	backfilled, err := watchRepo.BackfillPriceHistoryFromDeals(backfillCtx)
	backfillCancel()
	if err != nil {
		log.Warnf("price history backfill failed: %v", err)
	} else if backfilled > 0 {
		log.Infof("backfilled price history for %d system-tracked watches", backfilled)
	}

	producer := ikafka.NewProducer(log, cfg.Kafka)
	noopCtx, noopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	noopErr := producer.Noop(noopCtx)
	noopCancel()
	if noopErr != nil {
		log.Warnf("kafka broker ack check failed at startup: %v", noopErr)
	}

	searchWriter, err := search.New(cfg.Elastic, log)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := searchWriter.EnsureIndices(indexCtx); err != nil {
		indexCancel()
		return nil, e.Wrap(op, err)
	}
	indexCancel()

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		minioCancel()
		return nil, e.Wrap(op, err)
	}
	minioCancel()
	reportBlobRepo := s3Repo.NewReportBlobRepo(minioClient, cfg.Minio)

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	pingErr := redisClient.Ping(redisCtx)
	redisCancel()
	if pingErr != nil {
		return nil, e.Wrap(op, pingErr)
	}
	dispatchCache := redisRepo.NewDispatchCacheRepo(redisClient, cfg.Redis, cfg.Dispatch)

	bucket := tokenbucket.New(0, 0)
	keepaClient := keepa.New(cfg.Keepa.APIKey, bucket, log)

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	archiver := minioInfra.NewReportArchiver(reportBlobRepo, log, shutdownCtx)

	priceConsumer := ikafka.NewPriceConsumer(cfg.Kafka, watchRepo, db.Pool, log)
	dealConsumer := ikafka.NewDealConsumer(cfg.Kafka, watchRepo, db.Pool, log)

	pipeline := dealpipeline.New(keepaClient, dealRepo, watchRepo, producer, searchWriter, log, cfg.Deal, cfg.Keepa.DealSourceMode)

	sched := scheduler.New(keepaClient, watchRepo, filterRepo, dealRepo, reportRepo, producer, searchWriter, archiver, log, cfg.Scheduler)

	sender := alertdispatch.NewHTTPSender()
	dispatchIntervalSeconds := 30
	dispatcher := alertdispatch.New(alertRepo, dispatchCache, sender, log, cfg.Dispatch, dispatchIntervalSeconds)

	coreUC := usecase.NewCoreUseCase(watchRepo, filterRepo, searchWriter, log)

	router := chi.NewRouter()
	httpRouter := v1Http.NewRouter(router, log)
	httpRouter.Init(coreUC)
	httpSrv := v1Http.NewServer(router, cfg.Http)

	// Closer closes in LIFO order, so Add order here is the reverse of
	// the desired shutdown sequence: stop accepting HTTP traffic and
	// consumers first, close persistence last so in-flight writes from
	// the steps above still land.
	c := closer.NewCloser(5 * time.Second)
	c.Add(func(ctx context.Context) error { db.Close(); return nil })
	c.Add(func(ctx context.Context) error {
		if err := redisClient.Client.Close(); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		return nil
	})
	c.Add(func(ctx context.Context) error { return searchWriter.Close() })
	c.Add(func(ctx context.Context) error { return producer.Close() })
	c.Add(func(ctx context.Context) error { shutdownCancel(); return archiver.WaitForCleanup(ctx) })
	c.Add(func(ctx context.Context) error { dealConsumer.Stop(); return nil })
	c.Add(func(ctx context.Context) error { priceConsumer.Stop(); return nil })
	c.Add(func(ctx context.Context) error { return httpSrv.Stop(ctx) })

	return &App{
		cfg:           cfg,
		log:           log,
		closer:        c,
		db:            db,
		producer:      producer,
		searchWriter:  searchWriter,
		priceConsumer: priceConsumer,
		dealConsumer:  dealConsumer,
		pipeline:      pipeline,
		sched:         sched,
		dispatcher:    dispatcher,
		httpSrv:       httpSrv,
	}, nil
}

// Run starts every background task and the HTTP façade, then blocks
// until a shutdown signal arrives or a task fails fatally.
func (a *App) Run() error {
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	a.priceConsumer.Start(runCtx)
	a.dealConsumer.Start(runCtx)
	go a.pipeline.Run(runCtx)
	go a.sched.Run(runCtx)
	go a.dispatcher.Run(runCtx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP façade starting on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-errCh:
		a.log.Errorf(runErr, "HTTP façade fatal error")
	case <-shutdown:
		a.log.Infof("shutdown signal received, stopping gracefully")
	}

	shutdownCtx, shutdownTimeoutCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownTimeoutCancel()
	runCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.log.Warnf("shutdown finished with errors: %v", err)
	} else {
		a.log.Infof("shutdown complete")
	}

	return runErr
}

func initPGDB(log logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer schemaCancel()
	if err := db.EnsureSchema(schemaCtx, log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
