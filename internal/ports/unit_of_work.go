package ports

import "context"

// Tx is an opaque transaction handle owned by the infrastructure layer (a *gorm.DB for SQL stores).
type Tx interface{}

// UnitOfWork runs fn inside one transaction: a nil return commits, an error rolls back.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// WithTxContext stores a transaction handle in context so repositories join it.
func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction joined by ctx, or nil.
func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
