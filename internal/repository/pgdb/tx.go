package pgdb

import (
	"context"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/tr"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, letting a repo
// method run against whichever one is in scope: the pool for an
// unscoped read, or the ambient transaction for a composed write.
type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// querier resolves the dbtx to use for this call: the transaction
// attached to ctx if one is present, otherwise the pool.
func querier(ctx context.Context, pool dbtx) dbtx {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}
	return pool
}

// WithTx runs fn inside a managed transaction attached to ctx, committing
// on success and rolling back on error. Repository methods pull the tx
// back out via tr.TxFromCtx instead of taking it as a parameter.
func WithTx(ctx context.Context, pool transaction.Transactional, fn func(ctx context.Context) error) error {
	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, pool)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	if err := fn(ctx); err != nil {
		if tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
