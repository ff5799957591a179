package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories must accept NoTX and run on their pool in that case.
type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a single store transaction.
//
// Only local writes that belong together go through it (order completion,
// ledger resolution). Provisioning never holds a transaction across a panel
// call: the panel is not a participant and the saga compensates instead.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
