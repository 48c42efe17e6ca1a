package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository methods.
// The concrete type is infra-defined (pgx.Tx for Postgres). Repositories
// MUST gracefully accept NoTX / nil (non-transactional path).
type Tx interface{}

// NoTX is passed where no transaction is in flight.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `tx`. It keeps use-case interfaces free
// of storage-specific transaction types: the quota-then-insert sequence and
// the guard-recheck-then-delete sequence both run under it.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
