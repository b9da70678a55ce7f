package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WatchStatus string

const (
	WatchActive   WatchStatus = "ACTIVE"
	WatchPaused   WatchStatus = "PAUSED"
	WatchInactive WatchStatus = "INACTIVE"
)

// WatchedProduct is a user's declared interest in a product code on one
// marketplace domain, with a target price that triggers alerts.
type WatchedProduct struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	ProductCode       string
	Title             string
	Domain            int
	CurrentPrice      decimal.Decimal
	TargetPrice       decimal.Decimal
	Volatility        float64
	Status            WatchStatus
	LastCheckedAt     time.Time
	LastPriceChangeAt time.Time
}

// TargetCrossed reports whether the current price is within the
// tolerance band of the target price. Preserved verbatim from upstream:
// the 1% tolerance is not relaxed even though its origin is unclear.
func (w *WatchedProduct) TargetCrossed() bool {
	const targetPriceTolerance = 1.01
	bound := w.TargetPrice.Mul(decimal.NewFromFloat(targetPriceTolerance))
	return w.CurrentPrice.LessThanOrEqual(bound)
}

// PriceHistory is an append-only record of an observed price for a watch.
type PriceHistory struct {
	ID          uuid.UUID
	WatchID     uuid.UUID
	Price       decimal.Decimal
	Source      string // "backfill", "kafka", "kafka_deals", "keepa_scheduler", seller name, or ""
	RecordedAt  time.Time
}

type AlertStatus string

const (
	AlertPending AlertStatus = "PENDING"
	AlertSent    AlertStatus = "SENT"
	AlertFailed  AlertStatus = "FAILED"
)

// PriceAlert is a target-crossing event awaiting delivery.
type PriceAlert struct {
	ID              uuid.UUID
	WatchID         uuid.UUID
	TriggeredPrice  decimal.Decimal
	TargetPrice     decimal.Decimal
	OldPrice        decimal.Decimal
	NewPrice        decimal.Decimal
	DiscountPercent decimal.Decimal
	Status          AlertStatus
	Channel         string
	TriggeredAt     time.Time
	SentAt          *time.Time
}
