package contracts

import "context"

// TxManager scopes a function to one storage transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
