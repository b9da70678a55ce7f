package pgdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/shopspring/decimal"
)

type PriceAlertRepo struct {
	pool *pgxpool.Pool
}

func NewPriceAlertRepo(pool *pgxpool.Pool) *PriceAlertRepo {
	return &PriceAlertRepo{pool: pool}
}

// PendingAlert is a PENDING PriceAlert joined with enough watch and user
// context for the dispatcher to format and route it without a second
// round trip per alert.
type PendingAlert struct {
	AlertID         uuid.UUID
	WatchID         uuid.UUID
	ProductCode     string
	ProductTitle    string
	TriggeredPrice  decimal.Decimal
	TargetPrice     decimal.Decimal
	OldPrice        decimal.Decimal
	NewPrice        decimal.Decimal
	DiscountPercent decimal.Decimal
	UserID          uuid.UUID
	UserEmail       string
	MessagingChatID string
	WebhookURL      string
}

// ListPending returns every PENDING alert with its owning watch and
// user, the dispatcher's input set for one drain pass.
func (r *PriceAlertRepo) ListPending(ctx context.Context) ([]*PendingAlert, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT a.id, a.watch_id, w.product_code, w.title,
			a.triggered_price, a.target_price, a.old_price, a.new_price, a.discount_percent,
			u.id, u.email, u.messaging_chat_id, u.webhook_url
		FROM price_alerts a
		JOIN watched_products w ON w.id = a.watch_id
		JOIN users u ON u.id = w.user_id
		WHERE a.status = $1
		ORDER BY a.triggered_at`,
		domain.AlertPending,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var out []*PendingAlert
	for rows.Next() {
		var a PendingAlert
		if err := rows.Scan(
			&a.AlertID, &a.WatchID, &a.ProductCode, &a.ProductTitle,
			&a.TriggeredPrice, &a.TargetPrice, &a.OldPrice, &a.NewPrice, &a.DiscountPercent,
			&a.UserID, &a.UserEmail, &a.MessagingChatID, &a.WebhookURL,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// MarkSent stamps an alert delivered over a channel as SENT.
func (r *PriceAlertRepo) MarkSent(ctx context.Context, alertID uuid.UUID, channel string) error {
	_, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE price_alerts SET status = $1, channel = $2, sent_at = now() WHERE id = $3`,
		domain.AlertSent, channel, alertID,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// MarkFailed marks an alert as FAILED once every configured channel has
// been exhausted without a successful delivery.
func (r *PriceAlertRepo) MarkFailed(ctx context.Context, alertID uuid.UUID) error {
	_, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE price_alerts SET status = $1 WHERE id = $2`,
		domain.AlertFailed, alertID,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// HasRecentSentAlert reports whether a SENT alert exists for this watch
// with a triggered price rounded to the cent matching roundedPrice,
// within the given window - the duplicate-window authoritative check.
func (r *PriceAlertRepo) HasRecentSentAlert(ctx context.Context, watchID uuid.UUID, roundedPrice decimal.Decimal, windowSeconds float64) (bool, error) {
	var exists bool
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM price_alerts
			WHERE watch_id = $1
			AND status = $2
			AND round(triggered_price, 2) = $3
			AND triggered_at > now() - (interval '1 second' * $4)
		)`,
		watchID, domain.AlertSent, roundedPrice.Round(2), windowSeconds,
	).Scan(&exists)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	return exists, nil
}
