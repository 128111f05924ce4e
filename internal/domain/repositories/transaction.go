package repositories

import "context"

// TxFn runs inside a transaction; the context carries the transaction
type TxFn func(ctx context.Context) error

// TransactionManager groups several store writes into one atomic unit
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
