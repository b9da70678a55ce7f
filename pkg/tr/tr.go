package tr

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/ktrack/pricecore/pkg/e"
)

// TxFromCtx extracts the pgx.Tx attached to ctx by the transaction
// manager. Callers that need to compose several repository calls inside
// one managed transaction read it back this way instead of threading a
// tx parameter through every signature.
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	txAny := ctx.Value("tx")
	tx, ok := txAny.(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}
