package pgdb

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/pkg/e"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// EnsureSystemUser idempotently creates the reserved all-zero user the
// deal pipeline attributes auto-tracked watches to.
func (r *UserRepo) EnsureSystemUser(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		domain.SystemUserID, "system@keeper.local",
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT id, email, messaging_chat_id, webhook_url, deleted
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.MessagingChatID, &u.WebhookURL, &u.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrUserNotFound)
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return &u, nil
}
