package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// PriceUpdateEvent is the price-updates topic payload.
type PriceUpdateEvent struct {
	EventType       string  `json:"eventType"`
	ProductCode     string  `json:"productCode"`
	ProductTitle    string  `json:"productTitle"`
	CurrentPrice    float64 `json:"currentPrice"`
	TargetPrice     float64 `json:"targetPrice"`
	PreviousPrice   float64 `json:"previousPrice"`
	PercentChange   float64 `json:"percentChange"`
	Domain          int     `json:"domain"`
	Currency        string  `json:"currency"`
	Timestamp       string  `json:"timestamp"`
}

// DealUpdateEvent is the deal-updates topic payload.
type DealUpdateEvent struct {
	EventType       string  `json:"eventType"`
	ProductCode     string  `json:"productCode"`
	ProductTitle    string  `json:"productTitle"`
	CurrentPrice    float64 `json:"currentPrice"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	Domain          int     `json:"domain"`
	Currency        string  `json:"currency"`
	Timestamp       string  `json:"timestamp"`
}

// TokenMetricEvent carries a free-form token-bucket telemetry snapshot
// to the supplemental token-metrics topic. Fire-and-forget; no consumer
// cohort in this core reads it back.
type TokenMetricEvent struct {
	Available     int    `json:"available"`
	RatePerMinute int    `json:"ratePerMinute"`
	TotalConsumed int64  `json:"totalConsumed"`
	Timestamp     string `json:"timestamp"`
}

// Producer publishes JSON-encoded events to one of the three topics,
// blocking until the broker acknowledges (at-least-once).
type Producer struct {
	priceWriter  *kafka.Writer
	dealWriter   *kafka.Writer
	metricWriter *kafka.Writer
	log          logger.Logger
	cfg          *cfg.KafkaCfg
}

func newWriter(brokers []string, topic string, log logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keyed by product code, guarantees per-product partition ordering
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warnf("kafka producer error: %s", err.Error())
			}
		},
	}
}

func NewProducer(log logger.Logger, kafkaCfg *cfg.KafkaCfg) *Producer {
	return &Producer{
		priceWriter:  newWriter(kafkaCfg.Brokers, kafkaCfg.TopicPrices, log),
		dealWriter:   newWriter(kafkaCfg.Brokers, kafkaCfg.TopicDeals, log),
		metricWriter: newWriter(kafkaCfg.Brokers, kafkaCfg.TopicTokenMetrics, log),
		log:          log,
		cfg:          kafkaCfg,
	}
}

// SendPriceUpdate publishes a price-updates event keyed by product code.
func (p *Producer) SendPriceUpdate(ctx context.Context, key string, event PriceUpdateEvent) error {
	return p.send(ctx, p.priceWriter, key, event)
}

// SendDealUpdate publishes a deal-updates event keyed by product code.
func (p *Producer) SendDealUpdate(ctx context.Context, key string, event DealUpdateEvent) error {
	return p.send(ctx, p.dealWriter, key, event)
}

// SendTokenMetric is fire-and-forget: callers should not block the
// caching call path on its error, only log it.
func (p *Producer) SendTokenMetric(ctx context.Context, event TokenMetricEvent) error {
	return p.send(ctx, p.metricWriter, "", event)
}

func (p *Producer) send(ctx context.Context, w *kafka.Writer, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	msg := kafka.Message{Value: value}
	if key != "" {
		msg.Key = []byte(key)
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		return e.Wrap(whereami.WhereAmI(), e.ErrEventLogUnavailable)
	}
	return nil
}

// EnsureTopic creates a topic if it does not already exist, used at
// startup for each of the three topics before the broker-ACK noop.
func (p *Producer) EnsureTopic(ctx context.Context, topic string, timeout time.Duration) error {
	conn, err := kafka.DialContext(ctx, p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	if partitions, err := conn.ReadPartitions(topic); err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("create topic %s: %w", topic, err))
		}
		return nil
	case <-time.After(timeout):
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout creating topic %s", topic))
	}
}

// Noop publishes a harmless message to confirm the broker is reachable
// and acknowledging writes, per the scheduler's startup sequence.
func (p *Producer) Noop(ctx context.Context) error {
	return p.send(ctx, p.priceWriter, "startup-noop", map[string]string{"eventType": "noop"})
}

func (p *Producer) Close() error {
	var firstErr error
	for _, w := range []*kafka.Writer{p.priceWriter, p.dealWriter, p.metricWriter} {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
