package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	"github.com/ktrack/pricecore/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const reconnectBackoff = 5 * time.Second

// PriceConsumer reads the price-updates topic as the keeper-consumer-group
// cohort, appending history and raising alerts for tracked watches.
type PriceConsumer struct {
	reader    *kafka.Reader
	watchRepo *pgdb.WatchRepo
	dbPool    transaction.Transactional
	log       logger.Logger
	stop      chan struct{}
	wg        sync.WaitGroup
}

func NewPriceConsumer(kafkaCfg *cfg.KafkaCfg, watchRepo *pgdb.WatchRepo, dbPool transaction.Transactional, log logger.Logger) *PriceConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: kafkaCfg.Brokers,
		Topic:   kafkaCfg.TopicPrices,
		GroupID: kafkaCfg.ConsumerGroup,
	})
	return &PriceConsumer{reader: reader, watchRepo: watchRepo, dbPool: dbPool, log: log, stop: make(chan struct{})}
}

func (c *PriceConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

func (c *PriceConsumer) Stop() {
	close(c.stop)
	c.wg.Wait()
	c.reader.Close()
}

func (c *PriceConsumer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if isRetryableError(err) {
				c.log.Warnf("price consumer fetch failed, reconnecting in %s: %v", reconnectBackoff, err)
				time.Sleep(reconnectBackoff)
				continue
			}
			return
		}

		if err := c.process(ctx, msg); err != nil {
			c.log.Warnf("price consumer: failed to process message, cursor not advanced: %v", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Warnf("price consumer: commit failed: %v", err)
		}
	}
}

func (c *PriceConsumer) process(ctx context.Context, msg kafka.Message) error {
	var event PriceUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.Warnf("price consumer: malformed message, skipping: %v", err)
		return nil
	}

	watches, err := c.watchRepo.FindByProductCode(ctx, event.ProductCode, event.Domain)
	if err != nil {
		return err
	}
	if len(watches) == 0 {
		return nil // not a tracked product, skip per spec
	}

	price := decimal.NewFromFloat(event.CurrentPrice)

	return pgdb.WithTx(ctx, c.dbPool, func(ctx context.Context) error {
		for _, w := range watches {
			old := w.CurrentPrice
			updated, err := c.watchRepo.UpdateWatchPrice(ctx, w.ID, price, "kafka")
			if err != nil {
				return err
			}

			if !updated.TargetCrossed() {
				continue
			}

			hasRecent, err := c.watchRepo.HasRecentAlert(ctx, w.ID, time.Hour)
			if err != nil {
				return err
			}
			if hasRecent {
				continue
			}

			if _, err := c.watchRepo.CreatePriceAlert(ctx, w.ID, price, updated.TargetPrice, old, price); err != nil {
				return err
			}
		}
		return nil
	})
}

// DealConsumer reads the deal-updates topic as the
// keeper-consumer-group-deals cohort, tracking newly discovered deals
// under the system user.
type DealConsumer struct {
	reader    *kafka.Reader
	watchRepo *pgdb.WatchRepo
	dbPool    transaction.Transactional
	log       logger.Logger
	stop      chan struct{}
	wg        sync.WaitGroup
}

func NewDealConsumer(kafkaCfg *cfg.KafkaCfg, watchRepo *pgdb.WatchRepo, dbPool transaction.Transactional, log logger.Logger) *DealConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: kafkaCfg.Brokers,
		Topic:   kafkaCfg.TopicDeals,
		GroupID: kafkaCfg.ConsumerGroupDeals,
	})
	return &DealConsumer{reader: reader, watchRepo: watchRepo, dbPool: dbPool, log: log, stop: make(chan struct{})}
}

func (c *DealConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

func (c *DealConsumer) Stop() {
	close(c.stop)
	c.wg.Wait()
	c.reader.Close()
}

func (c *DealConsumer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if isRetryableError(err) {
				c.log.Warnf("deal consumer fetch failed, reconnecting in %s: %v", reconnectBackoff, err)
				time.Sleep(reconnectBackoff)
				continue
			}
			return
		}

		if err := c.process(ctx, msg); err != nil {
			c.log.Warnf("deal consumer: failed to process message, cursor not advanced: %v", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Warnf("deal consumer: commit failed: %v", err)
		}
	}
}

func (c *DealConsumer) process(ctx context.Context, msg kafka.Message) error {
	var event DealUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.Warnf("deal consumer: malformed message, skipping: %v", err)
		return nil
	}

	price := decimal.NewFromFloat(event.CurrentPrice)

	return pgdb.WithTx(ctx, c.dbPool, func(ctx context.Context) error {
		return c.watchRepo.RecordDealPrice(ctx, event.ProductCode, event.ProductTitle, event.Domain, price, "kafka_deals")
	})
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused", "i/o timeout", "network is unreachable",
		"broker not available", "connection reset", "broken pipe", "no such host",
	} {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
