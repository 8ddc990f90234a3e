package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
)

// TxRunner executes fn inside a single database transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
type TxRunner interface {
	ExecTx(ctx context.Context, fn func(q dbgen.Querier) error) error
}

// PoolTx runs transactions on a pgx pool.
type PoolTx struct {
	Pool *pgxpool.Pool
}

// ExecTx implements TxRunner.
func (p PoolTx) ExecTx(ctx context.Context, fn func(q dbgen.Querier) error) error {
	return pgx.BeginTxFunc(ctx, p.Pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(dbgen.New(tx))
	})
}
