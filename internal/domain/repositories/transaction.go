package repositories

import "context"

// TxFn runs within a transaction; repositories called with the ctx it receives join it.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx runs fn in a transaction, committing if fn returns nil
	ExecTx(ctx context.Context, fn TxFn) error
}
