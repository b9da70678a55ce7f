// Package redis backs the alert dispatcher's dedup window and per-user
// rate cap with a Redis-resident cache, so both survive a process
// restart and stay correct if the dispatcher ever runs as more than
// one instance.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/pkg/clients"
	"github.com/ktrack/pricecore/pkg/e"
)

type DispatchCacheRepo struct {
	client      *clients.RedisClient
	redisCfg    *cfg.RedisCfg
	dispatchCfg *cfg.DispatchCfg
}

func NewDispatchCacheRepo(client *clients.RedisClient, redisCfg *cfg.RedisCfg, dispatchCfg *cfg.DispatchCfg) *DispatchCacheRepo {
	return &DispatchCacheRepo{client: client, redisCfg: redisCfg, dispatchCfg: dispatchCfg}
}

func dedupKey(watchID string, roundedPriceCents int64, channel string) string {
	return fmt.Sprintf("dispatch:dedup:%s:%d:%s", watchID, roundedPriceCents, channel)
}

func rateCapKey(userID string) string {
	return fmt.Sprintf("dispatch:ratecap:%s:%s", userID, time.Now().UTC().Format("2006010215"))
}

// MarkSentIfAbsent atomically records a channel delivery for
// (watch, rounded price), returning false without writing if an entry
// already exists - the in-memory half of the duplicate-window check,
// mirroring the teacher's cache-aside idiom.
func (r *DispatchCacheRepo) MarkSentIfAbsent(ctx context.Context, watchID string, roundedPriceCents int64, channel string) (bool, error) {
	ttl := r.redisCfg.DedupTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	ok, err := r.client.Client.SetNX(ctx, dedupKey(watchID, roundedPriceCents, channel), "1", ttl).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	return ok, nil
}

// IncrementAndCheckRateCap increments the current hour's delivery
// counter for a user and reports whether the cap was already reached
// before this increment. The dispatcher leaves the alert PENDING when
// exceeded is true; no digest is built.
func (r *DispatchCacheRepo) IncrementAndCheckRateCap(ctx context.Context, userID string) (exceeded bool, err error) {
	key := rateCapKey(userID)

	pipe := r.client.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	limit := r.dispatchCfg.MaxAlertsPerHour
	if limit <= 0 {
		limit = 10
	}
	return incr.Val() > int64(limit), nil
}
