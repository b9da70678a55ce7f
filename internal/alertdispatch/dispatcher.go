// Package alertdispatch drains PENDING price alerts and delivers them
// through a user's configured channels, enforcing a per-watch duplicate
// window, a per-user hourly rate cap, and a bounded per-channel retry
// schedule before falling through to the next channel.
package alertdispatch

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	"github.com/ktrack/pricecore/internal/repository/redis"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

// retryDelays are the per-channel send attempt offsets; three attempts,
// falling through to the next channel on exhaustion. cfg.DispatchCfg's
// MaxRetries is expected to match len(retryDelays); a mismatch only
// changes how many of these offsets are used.
var retryDelays = []time.Duration{0, 30 * time.Second, 120 * time.Second}

type formattedAlert struct {
	ProductCode     string
	ProductTitle    string
	NewPrice        decimal.Decimal
	TargetPrice     decimal.Decimal
	DiscountPercent decimal.Decimal
}

func (a *formattedAlert) DiscountPercentFloat() float64 {
	f, _ := a.DiscountPercent.Float64()
	return f
}

// Dispatcher is the long-running drain loop launched by the scheduler
// alongside the price-check and deal-report cycles.
type Dispatcher struct {
	alertRepo *pgdb.PriceAlertRepo
	cache     *redis.DispatchCacheRepo
	sender    ChannelSender
	log       logger.Logger
	cfg       *cfg.DispatchCfg

	intervalSeconds int
}

func New(alertRepo *pgdb.PriceAlertRepo, cache *redis.DispatchCacheRepo, sender ChannelSender, log logger.Logger, dispatchCfg *cfg.DispatchCfg, intervalSeconds int) *Dispatcher {
	return &Dispatcher{
		alertRepo:       alertRepo,
		cache:           cache,
		sender:          sender,
		log:             log,
		cfg:             dispatchCfg,
		intervalSeconds: intervalSeconds,
	}
}

// Run blocks, draining PENDING alerts every interval until ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := time.Duration(d.intervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	pending, err := d.alertRepo.ListPending(ctx)
	if err != nil {
		d.log.Warnf("dispatcher: failed to load pending alerts: %v", err)
		return
	}

	for _, a := range pending {
		d.dispatchOne(ctx, a)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, a *pgdb.PendingAlert) {
	roundedPrice := a.NewPrice.Round(2)

	duplicateWindow := d.cfg.DuplicateWindow
	if duplicateWindow <= 0 {
		duplicateWindow = time.Hour
	}
	isDuplicate, err := d.alertRepo.HasRecentSentAlert(ctx, a.WatchID, roundedPrice, duplicateWindow.Seconds())
	if err != nil {
		d.log.Warnf("dispatcher: duplicate check failed for alert %s: %v", a.AlertID, err)
		return
	}
	if isDuplicate {
		d.log.Debugf("dispatcher: duplicate blocked for watch %s at %s", a.WatchID, roundedPrice)
		if err := d.alertRepo.MarkFailed(ctx, a.AlertID); err != nil {
			d.log.Warnf("dispatcher: failed to mark duplicate alert %s failed: %v", a.AlertID, err)
		}
		return
	}

	exceeded, err := d.cache.IncrementAndCheckRateCap(ctx, a.UserID.String())
	if err != nil {
		d.log.Warnf("dispatcher: rate cap check failed for user %s: %v", a.UserID, err)
	}
	if exceeded {
		d.log.Infof("dispatcher: rate cap exceeded for user %s, leaving alert %s pending for a later drain", a.UserID, a.AlertID)
		return
	}

	formatted := &formattedAlert{
		ProductCode:     a.ProductCode,
		ProductTitle:    a.ProductTitle,
		NewPrice:        a.NewPrice,
		TargetPrice:     a.TargetPrice,
		DiscountPercent: a.DiscountPercent,
	}

	channel, sendErr := d.sendThroughChannels(ctx, a, formatted)
	if sendErr == nil {
		if err := d.alertRepo.MarkSent(ctx, a.AlertID, channel); err != nil {
			d.log.Warnf("dispatcher: failed to mark alert %s sent: %v", a.AlertID, err)
		}
		priceCents := roundedPrice.Mul(decimal.NewFromInt(100)).IntPart()
		if ok, err := d.cache.MarkSentIfAbsent(ctx, a.WatchID.String(), priceCents, channel); err != nil {
			d.log.Warnf("dispatcher: dedup cache write failed for alert %s: %v", a.AlertID, err)
		} else if !ok {
			d.log.Debugf("dispatcher: dedup cache already held entry for watch %s channel %s", a.WatchID, channel)
		}
		return
	}

	d.log.Warnf("dispatcher: all channels exhausted for alert %s: %v", a.AlertID, sendErr)
	if err := d.alertRepo.MarkFailed(ctx, a.AlertID); err != nil {
		d.log.Warnf("dispatcher: failed to mark alert %s failed: %v", a.AlertID, err)
	}
}

// sendThroughChannels tries email, then messaging, then webhook -
// whichever the user has credentials for - making up to three attempts
// on each before falling through to the next. Returns the channel name
// that succeeded, or the last error once every configured channel is
// exhausted.
func (d *Dispatcher) sendThroughChannels(ctx context.Context, a *pgdb.PendingAlert, formatted *formattedAlert) (string, error) {
	type attempt struct {
		channel string
		send    func(ctx context.Context) error
	}

	var attempts []attempt
	if a.UserEmail != "" {
		attempts = append(attempts, attempt{"email", func(ctx context.Context) error {
			return d.sender.SendEmail(ctx, a.UserEmail, "Price alert: "+formatted.ProductTitle, formatAlertBody(formatted))
		}})
	}
	if a.MessagingChatID != "" {
		attempts = append(attempts, attempt{"messaging", func(ctx context.Context) error {
			return d.sender.SendMessaging(ctx, a.MessagingChatID, formatAlertBody(formatted))
		}})
	}
	if a.WebhookURL != "" {
		attempts = append(attempts, attempt{"webhook", func(ctx context.Context) error {
			return d.sender.SendWebhook(ctx, a.WebhookURL, formatted)
		}})
	}

	if len(attempts) == 0 {
		return "", e.ErrNoChannelsConfigured
	}

	var lastErr error
	for _, at := range attempts {
		if err := d.sendWithRetry(ctx, at.send); err == nil {
			return at.channel, nil
		} else {
			lastErr = err
		}
	}
	return "", lastErr
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, send func(ctx context.Context) error) error {
	delays := retryDelays
	if d.cfg.MaxRetries > 0 && d.cfg.MaxRetries < len(delays) {
		delays = delays[:d.cfg.MaxRetries]
	}

	var lastErr error
	for attempt, delay := range delays {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := send(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}
